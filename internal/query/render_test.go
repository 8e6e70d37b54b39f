package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/filter_engine/internal/testutil"
	"github.com/atlekbai/filter_engine/internal/value"
)

func render(t *testing.T, d Dialect, tree Tree) (string, []any) {
	t.Helper()
	s, err := Renderer{Dialect: d}.ToSqlizer(tree)
	require.NoError(t, err)
	sqlStr, args, err := s.ToSql()
	require.NoError(t, err)
	return sqlStr, args
}

func col(name string) Column { return Column{Table: qAlias, Name: name} }

func TestRenderPredicates(t *testing.T) {
	ints := []value.Value{value.Int(1), value.Int(2)}

	tests := []struct {
		name     string
		tree     Tree
		wantSQL  string
		wantArgs []any
	}{
		{"always", NoCondition{}, "1=1", nil},
		{"never", NegativeCondition{}, "1=0", nil},
		{
			"compare",
			SinglePred(Compare{Column: col("views"), Op: OpGt, Value: value.Int(3)}),
			`"_e"."views" > ?`, []any{int64(3)},
		},
		{"is null", SinglePred(IsNull{Column: col("views")}), `"_e"."views" IS NULL`, nil},
		{"is not null", SinglePred(IsNull{Column: col("views"), Negated: true}), `"_e"."views" IS NOT NULL`, nil},
		{
			"like",
			SinglePred(Like{Column: col("title"), Pattern: "%a%"}),
			`"_e"."title" LIKE ? ESCAPE '\'`, []any{"%a%"},
		},
		{
			"not like",
			SinglePred(Like{Column: col("title"), Pattern: "a%", Negated: true}),
			`"_e"."title" NOT LIKE ? ESCAPE '\'`, []any{"a%"},
		},
		{"in", SinglePred(InValues{Column: col("views"), Values: ints}), `"_e"."views" IN (?,?)`, []any{int64(1), int64(2)}},
		{
			"not in",
			SinglePred(InValues{Column: col("views"), Values: ints, Negated: true}),
			`"_e"."views" NOT IN (?,?)`, []any{int64(1), int64(2)},
		},
		{"and", And{Left: pred("a"), Right: pred("b")}, `("_e"."a" = ? AND "_e"."b" = ?)`, []any{int64(1), int64(1)}},
		{"or", Or{Left: pred("a"), Right: pred("b")}, `("_e"."a" = ? OR "_e"."b" = ?)`, []any{int64(1), int64(1)}},
		{"not", Not{Inner: pred("a")}, `NOT ("_e"."a" = ?)`, []any{int64(1)}},
		{"not true", NotTrue{Inner: pred("a")}, `("_e"."a" = ?) IS NOT TRUE`, []any{int64(1)}},
		{
			"not true over and",
			NotTrue{Inner: And{Left: pred("a"), Right: pred("b")}},
			`(("_e"."a" = ? AND "_e"."b" = ?)) IS NOT TRUE`, []any{int64(1), int64(1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlStr, args := render(t, Postgres, tt.tree)
			assert.Equal(t, tt.wantSQL, sqlStr)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestRenderInSelect(t *testing.T) {
	sel := &Select{
		From:   Table{Name: `"comments"`, Alias: "_j1"},
		Column: Column{Table: "_j1", Name: "post_id"},
		Join: &Join{
			Table: Table{Name: `"comments"`, Alias: "_r2"},
			Left:  Column{Table: "_r2", Name: "id"},
			Right: Column{Table: "_j1", Name: "id"},
		},
		Where: pred("approved"),
	}

	sqlStr, args := render(t, Postgres, SinglePred(InSelect{Column: col("id"), Select: sel, Negated: true}))
	assert.Equal(t, `"_e"."id" NOT IN (SELECT "_j1"."post_id" FROM "comments" "_j1" `+
		`JOIN "comments" "_r2" ON "_r2"."id" = "_j1"."id" WHERE "_e"."approved" = ?)`, sqlStr)
	assert.Equal(t, []any{int64(1)}, args)

	// An always-true sub-select condition is omitted.
	sel = &Select{From: Table{Name: `"c"`, Alias: "_j1"}, Column: Column{Table: "_j1", Name: "x"}, Where: NoCondition{}}
	sqlStr, _ = render(t, Postgres, SinglePred(InSelect{Column: col("id"), Select: sel}))
	assert.Equal(t, `"_e"."id" IN (SELECT "_j1"."x" FROM "c" "_j1")`, sqlStr)

	_, err := Renderer{}.ToSqlizer(SinglePred(InSelect{Column: col("id")}))
	assert.Error(t, err)
}

func TestRenderListContains(t *testing.T) {
	two := []value.Value{value.String("go"), value.String("sql")}
	one := two[:1]
	exists := `EXISTS (SELECT 1 FROM json_each("_e"."tags") WHERE json_each.value = ?)`

	tests := []struct {
		name     string
		dialect  Dialect
		mode     ListMode
		values   []value.Value
		wantSQL  string
		wantArgs []any
	}{
		{"pg value", Postgres, ListHasValue, one, `? = ANY("_e"."tags")`, []any{"go"}},
		{"pg every", Postgres, ListHasEvery, two, `"_e"."tags" @> ARRAY[?,?]`, []any{"go", "sql"}},
		{"pg some", Postgres, ListHasSome, two, `"_e"."tags" && ARRAY[?,?]`, []any{"go", "sql"}},
		{"pg every empty", Postgres, ListHasEvery, nil, "1=1", nil},
		{"pg some empty", Postgres, ListHasSome, nil, "1=0", nil},
		{"sqlite value", SQLite, ListHasValue, one, exists, []any{"go"}},
		{"sqlite every", SQLite, ListHasEvery, two, "(" + exists + " AND " + exists + ")", []any{"go", "sql"}},
		{
			"sqlite some", SQLite, ListHasSome, two,
			`EXISTS (SELECT 1 FROM json_each("_e"."tags") WHERE json_each.value IN (?,?))`, []any{"go", "sql"},
		},
		{"sqlite every empty", SQLite, ListHasEvery, nil, "1=1", nil},
		{"sqlite some empty", SQLite, ListHasSome, nil, "1=0", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlStr, args := render(t, tt.dialect, SinglePred(ListContains{Column: col("tags"), Mode: tt.mode, Values: tt.values}))
			assert.Equal(t, tt.wantSQL, sqlStr)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestRenderUnknownNode(t *testing.T) {
	_, err := Renderer{}.ToSqlizer(nil)
	assert.Error(t, err)
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"": Postgres, "PostgreSQL": Postgres, "pg": Postgres, "sqlite3": SQLite, "SQLite": SQLite} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}

func TestBuilder(t *testing.T) {
	s := testutil.BlogSchema(t, "blog")
	post := testutil.Model(t, s, "Post")
	where := And{Left: pred("a"), Right: pred("b")}

	pg := NewBuilder(post, Postgres)

	sqlStr, args, err := pg.BuildSelect(where)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "_e"."id" FROM "blog"."posts" "_e" WHERE ("_e"."a" = $1 AND "_e"."b" = $2)`, sqlStr)
	assert.Equal(t, []any{int64(1), int64(1)}, args)

	sqlStr, _, err = pg.BuildCount(NoCondition{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT count(*) FROM "blog"."posts" "_e"`, sqlStr)

	sqlStr, _, err = pg.WhereSQL(where)
	require.NoError(t, err)
	assert.Equal(t, `("_e"."a" = $1 AND "_e"."b" = $2)`, sqlStr)

	sqlStr, _, err = NewBuilder(post, SQLite).BuildSelect(NegativeCondition{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "_e"."id" FROM "blog"."posts" "_e" WHERE 1=0`, sqlStr)
}

func TestBuilderBuildDispatch(t *testing.T) {
	post := testutil.Model(t, testutil.BlogSchema(t, "blog"), "Post")
	b := NewBuilder(post, Postgres)
	where := pred("a")

	for _, tt := range []struct {
		st   Statement
		want string
	}{
		{StatementSelect, `SELECT "_e"."id" FROM "blog"."posts" "_e" WHERE "_e"."a" = $1`},
		{StatementCount, `SELECT count(*) FROM "blog"."posts" "_e" WHERE "_e"."a" = $1`},
		{StatementWhere, `"_e"."a" = $1`},
	} {
		sqlStr, args, err := b.Build(tt.st, where)
		require.NoError(t, err, tt.st)
		assert.Equal(t, tt.want, sqlStr, tt.st)
		assert.Equal(t, []any{int64(1)}, args, tt.st)
	}

	_, _, err := b.Build("drop", where)
	assert.ErrorContains(t, err, `unknown statement "drop"`)
}

func TestParseStatement(t *testing.T) {
	for in, want := range map[string]Statement{"": StatementSelect, "select": StatementSelect, "count": StatementCount, "where": StatementWhere} {
		got, err := ParseStatement(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"delete", "COUNT"} {
		_, err := ParseStatement(in)
		assert.ErrorContains(t, err, "unknown statement", in)
	}
}
