package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlekbai/filter_engine/internal/value"
)

func pred(name string) Tree {
	return SinglePred(Compare{Column: Column{Table: qAlias, Name: name}, Op: OpEq, Value: value.Int(1)})
}

func TestAndTree(t *testing.T) {
	a, b := pred("a"), pred("b")

	assert.Equal(t, NegativeCondition{}, AndTree(NegativeCondition{}, a))
	assert.Equal(t, NegativeCondition{}, AndTree(a, NegativeCondition{}))
	assert.Equal(t, NegativeCondition{}, AndTree(NoCondition{}, NegativeCondition{}))
	assert.Equal(t, a, AndTree(NoCondition{}, a))
	assert.Equal(t, a, AndTree(a, NoCondition{}))
	assert.Equal(t, NoCondition{}, AndTree(NoCondition{}, NoCondition{}))
	assert.Equal(t, And{Left: a, Right: b}, AndTree(a, b))
}

func TestOrTree(t *testing.T) {
	a, b := pred("a"), pred("b")

	assert.Equal(t, NoCondition{}, OrTree(NoCondition{}, a))
	assert.Equal(t, NoCondition{}, OrTree(a, NoCondition{}))
	assert.Equal(t, NoCondition{}, OrTree(NegativeCondition{}, NoCondition{}))
	assert.Equal(t, a, OrTree(NegativeCondition{}, a))
	assert.Equal(t, a, OrTree(a, NegativeCondition{}))
	assert.Equal(t, NegativeCondition{}, OrTree(NegativeCondition{}, NegativeCondition{}))
	assert.Equal(t, Or{Left: a, Right: b}, OrTree(a, b))
}

func TestNotTree(t *testing.T) {
	a := pred("a")

	assert.Equal(t, NegativeCondition{}, NotTree(NoCondition{}))
	assert.Equal(t, NoCondition{}, NotTree(NegativeCondition{}))
	assert.Equal(t, Not{Inner: a}, NotTree(a))
}

func TestNotTrueTree(t *testing.T) {
	a := pred("a")

	assert.Equal(t, NegativeCondition{}, NotTrueTree(NoCondition{}))
	assert.Equal(t, NoCondition{}, NotTrueTree(NegativeCondition{}))
	assert.Equal(t, NotTrue{Inner: a}, NotTrueTree(a))
	assert.Equal(t, a, InvertIf(a, false))
	assert.Equal(t, NotTrue{Inner: a}, InvertIf(a, true))
	assert.Equal(t, NoCondition{}, InvertIf(NegativeCondition{}, true))
}

func TestCountJoinsAndSubSelects(t *testing.T) {
	inner := &Select{
		From:   Table{Name: `"comments"`, Alias: "_j2"},
		Column: Column{Table: "_j2", Name: "post_id"},
		Join: &Join{
			Table: Table{Name: `"comments"`, Alias: "_r3"},
			Left:  Column{Table: "_r3", Name: "id"},
			Right: Column{Table: "_j2", Name: "id"},
		},
		Where: NotTrueTree(pred("approved")),
	}
	outer := &Select{
		From:   Table{Name: `"posts"`, Alias: "_j1"},
		Column: Column{Table: "_j1", Name: "author_id"},
		Where:  SinglePred(InSelect{Column: Column{Table: "_j1", Name: "id"}, Select: inner}),
	}
	tree := AndTree(pred("a"), NotTree(SinglePred(InSelect{Column: Column{Table: qAlias, Name: "id"}, Select: outer})))

	assert.Equal(t, 1, CountJoins(tree))
	assert.Equal(t, 2, CountSubSelects(tree))
	assert.Equal(t, 0, CountJoins(pred("a")))

	visited := 0
	Walk(tree, func(Tree) { visited++ })
	// And, pred, Not, outer InSelect, inner InSelect, NotTrue, its pred.
	assert.Equal(t, 7, visited)
}
