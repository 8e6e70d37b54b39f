package filter

import (
	"fmt"
	"strings"

	"github.com/atlekbai/filter_engine/internal/query"
	"github.com/atlekbai/filter_engine/internal/schema"
	"github.com/atlekbai/filter_engine/internal/value"
)

func (c *Compiler) compileScalar(f Scalar, sc scope) (query.Tree, error) {
	if err := c.checkScalarField(f.Field, sc); err != nil {
		return nil, err
	}
	col := query.Column{Table: sc.alias, Name: f.Field.ColumnName()}

	pred, err := scalarPredicate(col, f.Condition)
	if err != nil {
		return nil, c.wrap(err)
	}
	return query.SinglePred(pred), nil
}

func (c *Compiler) compileScalarList(f ScalarList, sc scope) (query.Tree, error) {
	if err := c.checkScalarField(f.Field, sc); err != nil {
		return nil, err
	}
	if !f.Field.IsList {
		return nil, c.errorf(ErrMalformedCondition, "field %q is not a list field", f.Field.Name)
	}
	col := query.Column{Table: sc.alias, Name: f.Field.ColumnName()}

	switch cond := f.Condition.(type) {
	case ListContains:
		if cond.Value == nil {
			return nil, c.errorf(ErrMalformedCondition, "contains requires a value")
		}
		return query.SinglePred(query.ListContains{Column: col, Mode: query.ListHasValue, Values: []value.Value{cond.Value}}), nil
	case ListContainsEvery:
		if err := checkValues(cond.Values); err != nil {
			return nil, c.wrap(err)
		}
		return query.SinglePred(query.ListContains{Column: col, Mode: query.ListHasEvery, Values: cond.Values}), nil
	case ListContainsSome:
		if err := checkValues(cond.Values); err != nil {
			return nil, c.wrap(err)
		}
		return query.SinglePred(query.ListContains{Column: col, Mode: query.ListHasSome, Values: cond.Values}), nil
	case nil:
		return nil, c.errorf(ErrMalformedCondition, "missing list condition")
	default:
		return nil, c.errorf(ErrUnsupportedFilter, "unknown list condition %T", cond)
	}
}

func (c *Compiler) checkScalarField(f *schema.ScalarField, sc scope) error {
	if f == nil {
		return c.errorf(ErrMalformedCondition, "missing field")
	}
	if !sc.model.HasScalarField(f) {
		return c.wrap(fmt.Errorf("%w: scalar field %q on model %s", schema.ErrUnknownField, f.Name, sc.model.Name))
	}
	return nil
}

// scalarPredicate builds the predicate for one scalar condition. Null
// comparisons become IS [NOT] NULL checks, as does membership in a list
// holding only Null.
func scalarPredicate(col query.Column, cond ScalarCondition) (query.Predicate, error) {
	switch c := cond.(type) {
	case Equals:
		if c.Value == nil {
			return nil, missingOperand("equals")
		}
		if value.IsNull(c.Value) {
			return query.IsNull{Column: col}, nil
		}
		return query.Compare{Column: col, Op: query.OpEq, Value: c.Value}, nil

	case NotEquals:
		if c.Value == nil {
			return nil, missingOperand("not_equals")
		}
		if value.IsNull(c.Value) {
			return query.IsNull{Column: col, Negated: true}, nil
		}
		return query.Compare{Column: col, Op: query.OpNeq, Value: c.Value}, nil

	case Contains:
		return likePredicate(col, c.Value, "contains", true, true, false)
	case NotContains:
		return likePredicate(col, c.Value, "not_contains", true, true, true)
	case StartsWith:
		return likePredicate(col, c.Value, "starts_with", false, true, false)
	case NotStartsWith:
		return likePredicate(col, c.Value, "not_starts_with", false, true, true)
	case EndsWith:
		return likePredicate(col, c.Value, "ends_with", true, false, false)
	case NotEndsWith:
		return likePredicate(col, c.Value, "not_ends_with", true, false, true)

	case LessThan:
		return comparePredicate(col, query.OpLt, c.Value, "less_than")
	case LessThanOrEquals:
		return comparePredicate(col, query.OpLte, c.Value, "less_than_or_equals")
	case GreaterThan:
		return comparePredicate(col, query.OpGt, c.Value, "greater_than")
	case GreaterThanOrEquals:
		return comparePredicate(col, query.OpGte, c.Value, "greater_than_or_equals")

	case In:
		if err := checkValues(c.Values); err != nil {
			return nil, err
		}
		if isSingleNull(c.Values) {
			return query.IsNull{Column: col}, nil
		}
		return query.InValues{Column: col, Values: c.Values}, nil

	case NotIn:
		if err := checkValues(c.Values); err != nil {
			return nil, err
		}
		if isSingleNull(c.Values) {
			return query.IsNull{Column: col, Negated: true}, nil
		}
		return query.InValues{Column: col, Values: c.Values, Negated: true}, nil

	case nil:
		return nil, fmt.Errorf("%w: missing scalar condition", ErrMalformedCondition)

	default:
		return nil, fmt.Errorf("%w: unknown scalar condition %T", ErrUnsupportedFilter, cond)
	}
}

func comparePredicate(col query.Column, op query.CompareOp, v value.Value, name string) (query.Predicate, error) {
	if v == nil {
		return nil, missingOperand(name)
	}
	return query.Compare{Column: col, Op: op, Value: v}, nil
}

// likePredicate anchors the value with wildcards on the requested sides.
// Wildcards inside the value itself match literally.
func likePredicate(col query.Column, v value.Value, name string, leading, trailing, negated bool) (query.Predicate, error) {
	if v == nil || value.IsNull(v) {
		return nil, missingOperand(name)
	}
	pattern := escapeLike(value.Text(v))
	if leading {
		pattern = "%" + pattern
	}
	if trailing {
		pattern += "%"
	}
	return query.Like{Column: col, Pattern: pattern, Negated: negated}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isSingleNull(vs []value.Value) bool {
	return len(vs) == 1 && value.IsNull(vs[0])
}

func checkValues(vs []value.Value) error {
	for i, v := range vs {
		if v == nil {
			return fmt.Errorf("%w: list element %d has no value", ErrMalformedCondition, i)
		}
	}
	return nil
}

func missingOperand(cond string) error {
	return fmt.Errorf("%w: %s requires a value", ErrMalformedCondition, cond)
}
