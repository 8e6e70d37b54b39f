package value

import (
	"fmt"
	"strconv"
)

// Kind identifies the active variant of a Value.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindBoolean
	KindDateTime
	KindEnum
	KindJSON
	KindInt
	KindRelation
	KindNull
	KindUUID
	KindGraphqlID
)

var kindNames = [...]string{
	KindString:    "String",
	KindFloat:     "Float",
	KindBoolean:   "Boolean",
	KindDateTime:  "DateTime",
	KindEnum:      "Enum",
	KindJSON:      "Json",
	KindInt:       "Int",
	KindRelation:  "Relation",
	KindNull:      "Null",
	KindUUID:      "Uuid",
	KindGraphqlID: "GraphqlId",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a scalar used inside filters. Exactly one variant is active and
// values never coerce into each other.
type Value interface {
	Kind() Kind
	// Param converts the value into a bound query parameter.
	Param() any
	value() // marker method
}

type (
	String   string
	Float    float64
	Boolean  bool
	DateTime string // RFC 3339 text
	Enum     string
	JSON     string
	Int      int64
	Relation int64
	UUID     string
	Null     struct{}
)

func (String) Kind() Kind   { return KindString }
func (Float) Kind() Kind    { return KindFloat }
func (Boolean) Kind() Kind  { return KindBoolean }
func (DateTime) Kind() Kind { return KindDateTime }
func (Enum) Kind() Kind     { return KindEnum }
func (JSON) Kind() Kind     { return KindJSON }
func (Int) Kind() Kind      { return KindInt }
func (Relation) Kind() Kind { return KindRelation }
func (UUID) Kind() Kind     { return KindUUID }
func (Null) Kind() Kind     { return KindNull }

func (v String) Param() any   { return string(v) }
func (v Float) Param() any    { return float64(v) }
func (v Boolean) Param() any  { return bool(v) }
func (v DateTime) Param() any { return string(v) }
func (v Enum) Param() any     { return string(v) }
func (v JSON) Param() any     { return string(v) }
func (v Int) Param() any      { return int64(v) }
func (v Relation) Param() any { return int64(v) }
func (v UUID) Param() any     { return string(v) }
func (Null) Param() any       { return nil }

func (String) value()   {}
func (Float) value()    {}
func (Boolean) value()  {}
func (DateTime) value() {}
func (Enum) value()     {}
func (JSON) value()     {}
func (Int) value()      {}
func (Relation) value() {}
func (UUID) value()     {}
func (Null) value()     {}

// GraphqlID is an opaque node identifier, either textual or numeric.
type GraphqlID interface {
	Value
	graphqlID()
}

type (
	StringID string
	IntID    int64
)

func (StringID) Kind() Kind { return KindGraphqlID }
func (IntID) Kind() Kind    { return KindGraphqlID }

func (v StringID) Param() any { return string(v) }
func (v IntID) Param() any    { return int64(v) }

func (StringID) value() {}
func (IntID) value()    {}

func (StringID) graphqlID() {}
func (IntID) graphqlID()    {}

// IsNull reports whether v is the Null variant.
func IsNull(v Value) bool {
	_, ok := v.(Null)
	return ok
}

// Params converts values to bound parameters, preserving order.
func Params(vs []Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v.Param()
	}
	return out
}

// Text renders a value as plain text, used for LIKE patterns.
func Text(v Value) string {
	switch v := v.(type) {
	case String:
		return string(v)
	case Float:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case Boolean:
		return strconv.FormatBool(bool(v))
	case DateTime:
		return string(v)
	case Enum:
		return string(v)
	case JSON:
		return string(v)
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Relation:
		return strconv.FormatInt(int64(v), 10)
	case UUID:
		return string(v)
	case StringID:
		return string(v)
	case IntID:
		return strconv.FormatInt(int64(v), 10)
	case Null:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
