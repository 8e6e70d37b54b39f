// Package testutil provides a small blog catalog and a matching SQLite
// database for tests that need to execute generated SQL.
package testutil

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/filter_engine/internal/schema"
)

//go:embed testdata/blog.json
var blogTemplate []byte

//go:embed testdata/blog.sql
var blogSQL string

// BlogTemplate returns the catalog template of the blog fixture.
func BlogTemplate(t testing.TB) schema.SchemaTemplate {
	t.Helper()
	var tmpl schema.SchemaTemplate
	require.NoError(t, json.Unmarshal(blogTemplate, &tmpl))
	return tmpl
}

// BlogTemplateFile writes the blog template to a temporary file and returns
// its path.
func BlogTemplateFile(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blog.json")
	require.NoError(t, os.WriteFile(path, blogTemplate, 0o600))
	return path
}

// BlogSchema builds the blog catalog with tables qualified by dbName.
// Pass an empty dbName for SQLite.
func BlogSchema(t testing.TB, dbName string) *schema.Schema {
	t.Helper()
	tmpl := BlogTemplate(t)
	tmpl.DBName = dbName
	s, err := schema.NewSchema(tmpl)
	require.NoError(t, err)
	return s
}

// Model returns a model of s, failing the test when it is missing.
func Model(t testing.TB, s *schema.Schema, name string) *schema.Model {
	t.Helper()
	m := s.Model(name)
	require.NotNil(t, m, "model %s", name)
	return m
}

// OpenBlogDB opens an in-memory SQLite database loaded with the blog rows.
func OpenBlogDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(blogSQL)
	require.NoError(t, err)
	return db
}

// QueryIDs runs a statement returning one integer column and collects the
// values in ascending order.
func QueryIDs(t testing.TB, db *sql.DB, query string, args ...any) []int64 {
	t.Helper()
	rows, err := db.Query(query, args...)
	require.NoError(t, err, "query: %s", query)
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
