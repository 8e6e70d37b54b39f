package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/filter_engine/internal/schema"
)

// Statement selects which SQL a Builder produces for a condition tree.
type Statement string

const (
	StatementSelect Statement = "select"
	StatementCount  Statement = "count"
	StatementWhere  Statement = "where"
)

// ParseStatement maps a request or flag value to a Statement. The empty
// string selects ids.
func ParseStatement(s string) (Statement, error) {
	switch st := Statement(s); st {
	case "":
		return StatementSelect, nil
	case StatementSelect, StatementCount, StatementWhere:
		return st, nil
	default:
		return "", fmt.Errorf("unknown statement %q", s)
	}
}

// Builder generates SQL statements filtered by a compiled condition tree.
type Builder interface {
	// BuildSelect returns SELECT id FROM ... WHERE ... for the model.
	BuildSelect(where Tree) (string, []any, error)
	BuildCount(where Tree) (string, []any, error)
	// WhereSQL renders only the condition, with dialect placeholders.
	WhereSQL(where Tree) (string, []any, error)
	// Build dispatches to one of the above by statement.
	Build(st Statement, where Tree) (string, []any, error)
}

// QueryBuilder builds SQL for one model in one dialect.
type QueryBuilder struct {
	model    *schema.Model
	renderer Renderer
}

// NewBuilder returns a query builder for the given model.
func NewBuilder(model *schema.Model, dialect Dialect) Builder {
	return &QueryBuilder{
		model:    model,
		renderer: Renderer{Dialect: dialect},
	}
}

func (b *QueryBuilder) BuildSelect(where Tree) (string, []any, error) {
	col := ColumnRef(IDColumn(qAlias, b.model))
	return b.build(sq.Select(col), where)
}

func (b *QueryBuilder) BuildCount(where Tree) (string, []any, error) {
	return b.build(sq.Select("count(*)"), where)
}

func (b *QueryBuilder) WhereSQL(where Tree) (string, []any, error) {
	cond, err := b.renderer.ToSqlizer(where)
	if err != nil {
		return "", nil, err
	}
	sqlStr, args, err := cond.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("render condition: %w", err)
	}
	sqlStr, err = b.renderer.Dialect.PlaceholderFormat().ReplacePlaceholders(sqlStr)
	if err != nil {
		return "", nil, err
	}
	return sqlStr, args, nil
}

func (b *QueryBuilder) Build(st Statement, where Tree) (string, []any, error) {
	switch st {
	case StatementSelect:
		return b.BuildSelect(where)
	case StatementCount:
		return b.BuildCount(where)
	case StatementWhere:
		return b.WhereSQL(where)
	default:
		return "", nil, fmt.Errorf("unknown statement %q", st)
	}
}

func (b *QueryBuilder) build(qb sq.SelectBuilder, where Tree) (string, []any, error) {
	qb = qb.From(b.model.TableName() + " " + QI(qAlias)).
		PlaceholderFormat(b.renderer.Dialect.PlaceholderFormat())

	if _, always := where.(NoCondition); !always && where != nil {
		cond, err := b.renderer.ToSqlizer(where)
		if err != nil {
			return "", nil, err
		}
		qb = qb.Where(cond)
	}
	return qb.ToSql()
}
