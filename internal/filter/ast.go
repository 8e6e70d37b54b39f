package filter

import (
	"fmt"

	"github.com/atlekbai/filter_engine/internal/schema"
	"github.com/atlekbai/filter_engine/internal/value"
)

// Filter is a node of a logical filter expression over one model. A filter
// tree owns its children; field handles point into a read-only schema.
type Filter interface {
	filter() // marker method
}

// And matches when every child matches. An empty And matches everything.
type And struct {
	Filters []Filter
}

// Or matches when any child matches. An empty Or also matches everything.
type Or struct {
	Filters []Filter
}

// Not negates the conjunction of its children.
type Not struct {
	Filters []Filter
}

// Scalar compares one scalar field.
type Scalar struct {
	Field     *schema.ScalarField
	Condition ScalarCondition
}

// ScalarList tests a list-valued scalar field.
type ScalarList struct {
	Field     *schema.ScalarField
	Condition ScalarListCondition
}

// OneRelationIsNull matches when a to-one relation is absent.
type OneRelationIsNull struct {
	Field *schema.RelationField
}

// Relation quantifies Nested over the rows related through Field.
type Relation struct {
	Field     *schema.RelationField
	Condition RelationCondition
	Nested    Filter
}

// NodeSubscription marks subscription filters. It has no SQL form and must
// be handled before compilation.
type NodeSubscription struct{}

// Bool is a constant filter.
type Bool struct {
	Value bool
}

func (And) filter()               {}
func (Or) filter()                {}
func (Not) filter()               {}
func (Scalar) filter()            {}
func (ScalarList) filter()        {}
func (OneRelationIsNull) filter() {}
func (Relation) filter()          {}
func (NodeSubscription) filter()  {}
func (Bool) filter()              {}

// RelationCondition is the quantifier of a relation filter.
type RelationCondition int

const (
	EveryRelatedNode RelationCondition = iota
	AtLeastOneRelatedNode
	NoRelatedNode
	ToOneRelatedNode
)

func (c RelationCondition) String() string {
	switch c {
	case EveryRelatedNode:
		return "EVERY_RELATED_NODE"
	case AtLeastOneRelatedNode:
		return "AT_LEAST_ONE_RELATED_NODE"
	case NoRelatedNode:
		return "NO_RELATED_NODE"
	case ToOneRelatedNode:
		return "TO_ONE_RELATED_NODE"
	default:
		return fmt.Sprintf("RelationCondition(%d)", int(c))
	}
}

// ParseRelationCondition is the inverse of RelationCondition.String.
func ParseRelationCondition(s string) (RelationCondition, bool) {
	for c := EveryRelatedNode; c <= ToOneRelatedNode; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// --- Scalar conditions ---

type ScalarCondition interface {
	scalarCondition()
}

type (
	Equals              struct{ Value value.Value }
	NotEquals           struct{ Value value.Value }
	Contains            struct{ Value value.Value }
	NotContains         struct{ Value value.Value }
	StartsWith          struct{ Value value.Value }
	NotStartsWith       struct{ Value value.Value }
	EndsWith            struct{ Value value.Value }
	NotEndsWith         struct{ Value value.Value }
	LessThan            struct{ Value value.Value }
	LessThanOrEquals    struct{ Value value.Value }
	GreaterThan         struct{ Value value.Value }
	GreaterThanOrEquals struct{ Value value.Value }
	In                  struct{ Values []value.Value }
	NotIn               struct{ Values []value.Value }
)

func (Equals) scalarCondition()              {}
func (NotEquals) scalarCondition()           {}
func (Contains) scalarCondition()            {}
func (NotContains) scalarCondition()         {}
func (StartsWith) scalarCondition()          {}
func (NotStartsWith) scalarCondition()       {}
func (EndsWith) scalarCondition()            {}
func (NotEndsWith) scalarCondition()         {}
func (LessThan) scalarCondition()            {}
func (LessThanOrEquals) scalarCondition()    {}
func (GreaterThan) scalarCondition()         {}
func (GreaterThanOrEquals) scalarCondition() {}
func (In) scalarCondition()                  {}
func (NotIn) scalarCondition()               {}

// --- Scalar list conditions ---

type ScalarListCondition interface {
	scalarListCondition()
}

type (
	ListContains      struct{ Value value.Value }
	ListContainsEvery struct{ Values []value.Value }
	ListContainsSome  struct{ Values []value.Value }
)

func (ListContains) scalarListCondition()      {}
func (ListContainsEvery) scalarListCondition() {}
func (ListContainsSome) scalarListCondition()  {}

// --- Constructors ---

func AndOf(fs ...Filter) And { return And{Filters: fs} }
func OrOf(fs ...Filter) Or   { return Or{Filters: fs} }
func NotOf(fs ...Filter) Not { return Not{Filters: fs} }

func EveryRelated(f *schema.RelationField, nested Filter) Relation {
	return Relation{Field: f, Condition: EveryRelatedNode, Nested: nested}
}

func SomeRelated(f *schema.RelationField, nested Filter) Relation {
	return Relation{Field: f, Condition: AtLeastOneRelatedNode, Nested: nested}
}

func NoneRelated(f *schema.RelationField, nested Filter) Relation {
	return Relation{Field: f, Condition: NoRelatedNode, Nested: nested}
}

func ToOneRelated(f *schema.RelationField, nested Filter) Relation {
	return Relation{Field: f, Condition: ToOneRelatedNode, Nested: nested}
}
