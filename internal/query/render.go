package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/filter_engine/internal/value"
)

// Dialect selects the SQL flavour of backend-specific operators.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a configuration string to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "", "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unknown dialect %q", s)
	}
}

// PlaceholderFormat returns the bind parameter style of the dialect.
func (d Dialect) PlaceholderFormat() sq.PlaceholderFormat {
	if d == SQLite {
		return sq.Question
	}
	return sq.Dollar
}

// Renderer turns condition trees into Squirrel expressions.
type Renderer struct {
	Dialect Dialect
}

// ToSqlizer renders a tree. Placeholders are left as "?"; the statement
// builder applies the dialect's placeholder format.
func (r Renderer) ToSqlizer(t Tree) (sq.Sqlizer, error) {
	switch n := t.(type) {
	case NoCondition:
		return sq.Expr("1=1"), nil

	case NegativeCondition:
		return sq.Expr("1=0"), nil

	case And:
		left, err := r.ToSqlizer(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.ToSqlizer(n.Right)
		if err != nil {
			return nil, err
		}
		return sq.And{left, right}, nil

	case Or:
		left, err := r.ToSqlizer(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.ToSqlizer(n.Right)
		if err != nil {
			return nil, err
		}
		return sq.Or{left, right}, nil

	case Not:
		inner, err := r.ToSqlizer(n.Inner)
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT (?)", inner), nil

	case NotTrue:
		inner, err := r.ToSqlizer(n.Inner)
		if err != nil {
			return nil, err
		}
		return sq.Expr("(?) IS NOT TRUE", inner), nil

	case Single:
		return r.predicate(n.Pred)

	default:
		return nil, fmt.Errorf("unknown condition tree node %T", t)
	}
}

func (r Renderer) predicate(p Predicate) (sq.Sqlizer, error) {
	switch p := p.(type) {
	case Compare:
		return sq.Expr(fmt.Sprintf(`%s %s ?`, ColumnRef(p.Column), p.Op), p.Value.Param()), nil

	case IsNull:
		if p.Negated {
			return sq.NotEq{ColumnRef(p.Column): nil}, nil
		}
		return sq.Eq{ColumnRef(p.Column): nil}, nil

	case Like:
		op := "LIKE"
		if p.Negated {
			op = "NOT LIKE"
		}
		return sq.Expr(fmt.Sprintf(`%s %s ? ESCAPE '\'`, ColumnRef(p.Column), op), p.Pattern), nil

	case InValues:
		col := ColumnRef(p.Column)
		if p.Negated {
			return sq.NotEq{col: value.Params(p.Values)}, nil
		}
		return sq.Eq{col: value.Params(p.Values)}, nil

	case InSelect:
		sub, err := r.subSelect(p.Select)
		if err != nil {
			return nil, err
		}
		op := "IN"
		if p.Negated {
			op = "NOT IN"
		}
		return sq.Expr(fmt.Sprintf(`%s %s (?)`, ColumnRef(p.Column), op), sub), nil

	case ListContains:
		return r.listContains(p), nil

	default:
		return nil, fmt.Errorf("unknown predicate %T", p)
	}
}

func (r Renderer) subSelect(s *Select) (sq.SelectBuilder, error) {
	if s == nil {
		return sq.SelectBuilder{}, fmt.Errorf("sub-select is missing")
	}
	qb := sq.Select(ColumnRef(s.Column)).From(tableSQL(s.From))
	if s.Join != nil {
		qb = qb.Join(fmt.Sprintf(`%s ON %s = %s`,
			tableSQL(s.Join.Table), ColumnRef(s.Join.Left), ColumnRef(s.Join.Right)))
	}
	if s.Where != nil {
		if _, always := s.Where.(NoCondition); !always {
			where, err := r.ToSqlizer(s.Where)
			if err != nil {
				return sq.SelectBuilder{}, err
			}
			qb = qb.Where(where)
		}
	}
	return qb, nil
}

func (r Renderer) listContains(p ListContains) sq.Sqlizer {
	col := ColumnRef(p.Column)
	args := value.Params(p.Values)

	if r.Dialect == SQLite {
		// Lists are stored as JSON arrays.
		member := fmt.Sprintf(`EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = ?)`, col)
		switch p.Mode {
		case ListHasEvery:
			if len(args) == 0 {
				return sq.Expr("1=1")
			}
			conj := make(sq.And, len(args))
			for i, a := range args {
				conj[i] = sq.Expr(member, a)
			}
			return conj
		case ListHasSome:
			if len(args) == 0 {
				return sq.Expr("1=0")
			}
			return sq.Expr(fmt.Sprintf(`EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value IN (%s))`,
				col, sq.Placeholders(len(args))), args...)
		default:
			return sq.Expr(member, firstArg(args))
		}
	}

	switch p.Mode {
	case ListHasEvery:
		if len(args) == 0 {
			return sq.Expr("1=1")
		}
		return sq.Expr(fmt.Sprintf(`%s @> ARRAY[%s]`, col, sq.Placeholders(len(args))), args...)
	case ListHasSome:
		if len(args) == 0 {
			return sq.Expr("1=0")
		}
		return sq.Expr(fmt.Sprintf(`%s && ARRAY[%s]`, col, sq.Placeholders(len(args))), args...)
	default:
		return sq.Expr(fmt.Sprintf(`? = ANY(%s)`, col), firstArg(args))
	}
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func tableSQL(t Table) string {
	if t.Alias == "" {
		return t.Name
	}
	return t.Name + " " + QI(t.Alias)
}
