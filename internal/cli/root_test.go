package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/filter_engine/internal/testutil"
)

const chainedFilter = `{
	"relation": {
		"field": "posts",
		"condition": "AT_LEAST_ONE_RELATED_NODE",
		"nested_filter": {"relation": {
			"field": "comments",
			"condition": "AT_LEAST_ONE_RELATED_NODE",
			"nested_filter": {"scalar": {"field": "approved", "condition": {"equals": {"boolean": true}}}}
		}}
	}
}`

const categoryFilter = `{
	"relation": {
		"field": "categories",
		"condition": "AT_LEAST_ONE_RELATED_NODE",
		"nested_filter": {"scalar": {"field": "name", "condition": {"equals": {"string": "tech"}}}}
	}
}`

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// execute runs the root command with args and stdin, returning stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "filterc", cmd.Use)

	for _, name := range []string{"compile", "models"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
	dialectFlag := cmd.PersistentFlags().Lookup("dialect")
	require.NotNil(t, dialectFlag)
	assert.Equal(t, "postgres", dialectFlag.DefValue)
}

func TestCompileGolden(t *testing.T) {
	schemaFile := testutil.BlogTemplateFile(t)
	g := newGoldie(t)

	tests := []struct {
		golden string
		stdin  string
		args   []string
	}{
		{"compile_every_approved", "", []string{"compile", "-s", schemaFile, "-m", "Post", "testdata/every_approved.json"}},
		{"compile_every_approved_json", "", []string{"compile", "-s", schemaFile, "-m", "Post", "--format", "json", "testdata/every_approved.json"}},
		{"compile_chained_where", chainedFilter, []string{"compile", "-s", schemaFile, "-m", "User", "--statement", "where"}},
		{"compile_categories_count", categoryFilter, []string{"compile", "-s", schemaFile, "-m", "Post", "--statement", "count", "-"}},
	}
	for _, tt := range tests {
		t.Run(tt.golden, func(t *testing.T) {
			out, _, err := execute(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			g.Assert(t, tt.golden, []byte(out))
		})
	}
}

func TestCompileVerbose(t *testing.T) {
	schemaFile := testutil.BlogTemplateFile(t)
	_, errOut, err := execute(t, chainedFilter, "compile", "-v", "-s", schemaFile, "-m", "User")
	require.NoError(t, err)
	assert.Equal(t, "joins: 1, sub-selects: 2\n", errOut)
}

func TestCompileSQLiteDialect(t *testing.T) {
	schemaFile := testutil.BlogTemplateFile(t)
	out, _, err := execute(t, categoryFilter, "compile", "--dialect", "sqlite", "--format", "json", "-s", schemaFile, "-m", "Post")
	require.NoError(t, err)

	var res CompileResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, strings.HasSuffix(res.SQL, `WHERE "_r2"."name" = ?)`), res.SQL)
	assert.Equal(t, []any{"tech"}, res.Args)
	assert.Equal(t, 1, res.Joins)
}

func TestCompileErrors(t *testing.T) {
	schemaFile := testutil.BlogTemplateFile(t)

	tests := []struct {
		name   string
		stdin  string
		args   []string
		errMsg string
	}{
		{"missing schema flag", "{}", []string{"compile", "-m", "Post"}, `"schema" not set`},
		{"missing model flag", "{}", []string{"compile", "-s", schemaFile}, `"model" not set`},
		{"unknown model", "{}", []string{"compile", "-s", schemaFile, "-m", "Ghost"}, `no model named "Ghost"`},
		{"bad format", "{}", []string{"compile", "-s", schemaFile, "-m", "Post", "--format", "xml"}, "invalid format"},
		{"bad dialect", "{}", []string{"compile", "-s", schemaFile, "-m", "Post", "--dialect", "oracle"}, "unknown dialect"},
		{"bad statement", categoryFilter, []string{"compile", "-s", schemaFile, "-m", "Post", "--statement", "drop"}, "unknown statement"},
		{
			"unknown field",
			`{"scalar": {"field": "body", "condition": {"equals": {"string": "x"}}}}`,
			[]string{"compile", "-s", schemaFile, "-m", "Post"},
			"unknown field",
		},
		{"missing filter file", "", []string{"compile", "-s", schemaFile, "-m", "Post", "testdata/missing.json"}, "read filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestModelsGolden(t *testing.T) {
	out, _, err := execute(t, "", "models", "-s", testutil.BlogTemplateFile(t))
	require.NoError(t, err)
	newGoldie(t).Assert(t, "models", []byte(out))
}

func TestModelsJSON(t *testing.T) {
	out, _, err := execute(t, "", "models", "--format", "json", "-s", testutil.BlogTemplateFile(t))
	require.NoError(t, err)

	var models []ModelSummary
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.Len(t, models, 4)
	assert.Equal(t, "Post", models[1].Name)
	assert.Equal(t, "[String]", models[1].Scalars["tags"])
	assert.Equal(t, "[Category]", models[1].Relations["categories"])
	assert.Equal(t, "User", models[0].Relations["invitedBy"])
}
