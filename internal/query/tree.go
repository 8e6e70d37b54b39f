package query

import (
	"github.com/atlekbai/filter_engine/internal/value"
)

// Tree is a backend-neutral boolean condition. Trees are built fresh per
// compilation and never mutated afterwards.
type Tree interface {
	tree() // marker method
}

// NoCondition is the tautology.
type NoCondition struct{}

// NegativeCondition is the contradiction.
type NegativeCondition struct{}

type Single struct{ Pred Predicate }

type And struct{ Left, Right Tree }

type Or struct{ Left, Right Tree }

type Not struct{ Inner Tree }

// NotTrue holds when Inner is false or unknown. Unlike Not it is never
// unknown itself.
type NotTrue struct{ Inner Tree }

func (NoCondition) tree()       {}
func (NegativeCondition) tree() {}
func (Single) tree()            {}
func (And) tree()               {}
func (Or) tree()                {}
func (Not) tree()               {}
func (NotTrue) tree()           {}

// AndTree conjoins two trees, short-circuiting on constant operands.
func AndTree(left, right Tree) Tree {
	switch {
	case isNegative(left) || isNegative(right):
		return NegativeCondition{}
	case isNoCondition(left):
		return right
	case isNoCondition(right):
		return left
	}
	return And{Left: left, Right: right}
}

// OrTree disjoins two trees, short-circuiting on constant operands.
func OrTree(left, right Tree) Tree {
	switch {
	case isNoCondition(left) || isNoCondition(right):
		return NoCondition{}
	case isNegative(left):
		return right
	case isNegative(right):
		return left
	}
	return Or{Left: left, Right: right}
}

// NotTree negates a tree.
func NotTree(inner Tree) Tree {
	switch inner.(type) {
	case NoCondition:
		return NegativeCondition{}
	case NegativeCondition:
		return NoCondition{}
	}
	return Not{Inner: inner}
}

// NotTrueTree is NotTree for two-valued contexts: rows where inner is
// unknown are kept instead of dropped.
func NotTrueTree(inner Tree) Tree {
	switch inner.(type) {
	case NoCondition:
		return NegativeCondition{}
	case NegativeCondition:
		return NoCondition{}
	}
	return NotTrue{Inner: inner}
}

// InvertIf complements t when invert is set. The complement is two-valued,
// so every row matches exactly one of t and InvertIf(t, true).
func InvertIf(t Tree, invert bool) Tree {
	if invert {
		return NotTrueTree(t)
	}
	return t
}

func SinglePred(p Predicate) Tree { return Single{Pred: p} }

func isNoCondition(t Tree) bool {
	_, ok := t.(NoCondition)
	return ok
}

func isNegative(t Tree) bool {
	_, ok := t.(NegativeCondition)
	return ok
}

// --- Predicates ---

// Predicate is a leaf comparison inside a Single node.
type Predicate interface {
	predicate()
}

// Column references a column through a table name or alias.
type Column struct {
	Table string
	Name  string
}

type CompareOp string

const (
	OpEq  CompareOp = "="
	OpNeq CompareOp = "<>"
	OpLt  CompareOp = "<"
	OpLte CompareOp = "<="
	OpGt  CompareOp = ">"
	OpGte CompareOp = ">="
)

// Compare: column op value
type Compare struct {
	Column Column
	Op     CompareOp
	Value  value.Value
}

// IsNull: column IS [NOT] NULL
type IsNull struct {
	Column  Column
	Negated bool
}

// Like: column [NOT] LIKE pattern
type Like struct {
	Column  Column
	Pattern string
	Negated bool
}

// InValues: column [NOT] IN (v1, v2, ...)
type InValues struct {
	Column  Column
	Values  []value.Value
	Negated bool
}

// InSelect: column [NOT] IN (SELECT ...)
type InSelect struct {
	Column  Column
	Select  *Select
	Negated bool
}

type ListMode int

const (
	ListHasValue ListMode = iota // list contains one value
	ListHasEvery                 // list contains all values
	ListHasSome                  // list contains at least one value
)

// ListContains tests a list-valued column.
type ListContains struct {
	Column Column
	Mode   ListMode
	Values []value.Value
}

func (Compare) predicate()      {}
func (IsNull) predicate()       {}
func (Like) predicate()         {}
func (InValues) predicate()     {}
func (InSelect) predicate()     {}
func (ListContains) predicate() {}

// Table is a FROM or JOIN source. Name is already quoted and qualified.
type Table struct {
	Name  string
	Alias string
}

// Select is a single-column sub-select over a join table.
type Select struct {
	From   Table
	Column Column
	Join   *Join
	Where  Tree
}

// Join is an inner join on Left = Right.
type Join struct {
	Table Table
	Left  Column
	Right Column
}

// Walk visits every tree node depth first, descending into sub-selects.
func Walk(t Tree, fn func(Tree)) {
	fn(t)
	switch n := t.(type) {
	case And:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Or:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Not:
		Walk(n.Inner, fn)
	case NotTrue:
		Walk(n.Inner, fn)
	case Single:
		if in, ok := n.Pred.(InSelect); ok && in.Select != nil && in.Select.Where != nil {
			Walk(in.Select.Where, fn)
		}
	}
}

// CountJoins returns the number of joins synthesized in all sub-selects.
func CountJoins(t Tree) int {
	n := 0
	Walk(t, func(node Tree) {
		if s, ok := node.(Single); ok {
			if in, ok := s.Pred.(InSelect); ok && in.Select != nil && in.Select.Join != nil {
				n++
			}
		}
	})
	return n
}

// CountSubSelects returns the number of sub-selects in the tree.
func CountSubSelects(t Tree) int {
	n := 0
	Walk(t, func(node Tree) {
		if s, ok := node.(Single); ok {
			if _, ok := s.Pred.(InSelect); ok {
				n++
			}
		}
	})
	return n
}
