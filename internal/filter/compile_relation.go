package filter

import (
	"fmt"

	"github.com/atlekbai/filter_engine/internal/query"
	"github.com/atlekbai/filter_engine/internal/schema"
)

// quantifierPlan decides how a relation quantifier is expressed as a
// membership test. invert negates the sub-select's WHERE condition; notIn
// selects NOT IN for the outer test. "Every related row matches P" is "no
// related row matches NOT P", so EveryRelatedNode is the only quantifier
// that inverts, and it must invert the inner condition, not the outer test.
func quantifierPlan(cond RelationCondition) (invert, notIn bool, err error) {
	switch cond {
	case EveryRelatedNode:
		return true, true, nil
	case NoRelatedNode:
		return false, true, nil
	case AtLeastOneRelatedNode, ToOneRelatedNode:
		return false, false, nil
	default:
		return false, false, fmt.Errorf("%w: unknown relation condition %s", ErrMalformedCondition, cond)
	}
}

// compileRelation renders `outer [NOT] IN (SELECT ...)`, where outer holds
// identifiers of the model the relation field belongs to.
func (c *Compiler) compileRelation(outer query.Column, f Relation, sc scope) (query.Tree, error) {
	if err := c.checkRelationField(f.Field, sc); err != nil {
		return nil, err
	}
	invert, notIn, err := quantifierPlan(f.Condition)
	if err != nil {
		return nil, c.wrap(err)
	}

	sel, err := c.relationSubSelect(f.Field, f.Nested, invert)
	if err != nil {
		return nil, err
	}

	return query.SinglePred(query.InSelect{Column: outer, Select: sel, Negated: notIn}), nil
}

// relationSubSelect selects this side's join column from the relation's
// join table. A nested relation filter continues from the other join column
// without a join; any other nested filter needs the related model's table,
// joined on its identifier.
func (c *Compiler) relationSubSelect(field *schema.RelationField, nested Filter, invert bool) (*query.Select, error) {
	rel := field.Relation()
	related := field.RelatedModel()

	joinAlias := c.nextAlias("_j")
	thisCol := query.Column{Table: joinAlias, Name: field.Column()}
	otherCol := query.Column{Table: joinAlias, Name: field.OppositeColumn()}

	sel := &query.Select{
		From:   query.Table{Name: rel.TableName(), Alias: joinAlias},
		Column: thisCol,
	}

	var (
		inner query.Tree
		err   error
	)
	switch n := nested.(type) {
	case Relation:
		c.push("relation(" + relationFieldName(n.Field) + ")")
		inner, err = c.compileRelation(otherCol, n, scope{model: related, alias: joinAlias})
		c.pop()

	case nil:
		return nil, c.errorf(ErrMalformedCondition, "relation filter on %q has no nested filter", field.Name)

	default:
		relAlias := c.nextAlias("_r")
		sel.Join = &query.Join{
			Table: query.Table{Name: related.TableName(), Alias: relAlias},
			Left:  query.IDColumn(relAlias, related),
			Right: otherCol,
		}
		inner, err = c.compile(nested, scope{model: related, alias: relAlias})
	}
	if err != nil {
		return nil, err
	}

	sel.Where = query.AndTree(pairGuard(field, joinAlias), query.InvertIf(inner, invert))
	return sel, nil
}

// pairGuard restricts inline relations to rows where the foreign key is set.
// A NULL in a NOT IN list would make the outer test unknown for every row.
func pairGuard(field *schema.RelationField, joinAlias string) query.Tree {
	in, ok := field.Relation().Manifestation.(schema.Inline)
	if !ok {
		return query.NoCondition{}
	}
	return query.SinglePred(query.IsNull{
		Column:  query.Column{Table: joinAlias, Name: in.ReferencingColumn},
		Negated: true,
	})
}

// compileOneRelationIsNull checks the foreign key directly when it lives on
// this model's row. Otherwise the relation is absent when no pair in the
// join table references the row.
func (c *Compiler) compileOneRelationIsNull(f OneRelationIsNull, sc scope) (query.Tree, error) {
	if err := c.checkRelationField(f.Field, sc); err != nil {
		return nil, err
	}

	if f.Field.InlineOnModel() {
		return query.SinglePred(query.IsNull{
			Column: query.Column{Table: sc.alias, Name: f.Field.OppositeColumn()},
		}), nil
	}

	joinAlias := c.nextAlias("_j")
	thisCol := query.Column{Table: joinAlias, Name: f.Field.Column()}
	sel := &query.Select{
		From:   query.Table{Name: f.Field.Relation().TableName(), Alias: joinAlias},
		Column: thisCol,
		Where:  query.SinglePred(query.IsNull{Column: thisCol, Negated: true}),
	}
	return query.SinglePred(query.InSelect{
		Column:  query.IDColumn(sc.alias, sc.model),
		Select:  sel,
		Negated: true,
	}), nil
}

func (c *Compiler) checkRelationField(f *schema.RelationField, sc scope) error {
	if f == nil {
		return c.errorf(ErrMalformedCondition, "missing relation field")
	}
	if !sc.model.HasRelationField(f) {
		return c.wrap(fmt.Errorf("%w: relation field %q on model %s", schema.ErrUnknownField, f.Name, sc.model.Name))
	}
	return nil
}
