package decode

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/filter_engine/internal/filter"
	"github.com/atlekbai/filter_engine/internal/value"
)

// DecodeValue converts a tagged value object such as {"int": 3} or
// {"null": true}. Values are taken as tagged; no coercion between variants.
func DecodeValue(s *structpb.Struct) (value.Value, error) {
	if s == nil || len(s.Fields) != 1 {
		return nil, fmt.Errorf("%w: value must have exactly one key", filter.ErrMalformedCondition)
	}
	for tag, v := range s.Fields {
		return decodeTagged(tag, v)
	}
	panic("unreachable")
}

func decodeTagged(tag string, v *structpb.Value) (value.Value, error) {
	switch tag {
	case "string":
		s, err := stringOf(tag, v)
		return value.String(s), err

	case "float":
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, malformedValue(tag, v)
		}
		return value.Float(n.NumberValue), nil

	case "boolean":
		b, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, malformedValue(tag, v)
		}
		return value.Boolean(b.BoolValue), nil

	case "date_time":
		s, err := stringOf(tag, v)
		if err != nil {
			return nil, err
		}
		if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
			return nil, fmt.Errorf("%w: date_time %q is not RFC 3339", filter.ErrMalformedCondition, s)
		}
		return value.DateTime(s), nil

	case "enum":
		s, err := stringOf(tag, v)
		return value.Enum(s), err

	case "json":
		// Either JSON text or an inline JSON value.
		if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			return value.JSON(s.StringValue), nil
		}
		raw, err := protojson.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: json: %v", filter.ErrMalformedCondition, err)
		}
		return value.JSON(raw), nil

	case "int":
		n, err := intOf(tag, v)
		return value.Int(n), err

	case "relation":
		n, err := intOf(tag, v)
		return value.Relation(n), err

	case "null":
		switch v.GetKind().(type) {
		case *structpb.Value_NullValue, *structpb.Value_BoolValue:
			return value.Null{}, nil
		}
		return nil, malformedValue(tag, v)

	case "uuid":
		s, err := stringOf(tag, v)
		if err != nil {
			return nil, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: uuid %q: %v", filter.ErrMalformedCondition, s, err)
		}
		return value.UUID(id.String()), nil

	case "graphql_id":
		obj := v.GetStructValue()
		if obj == nil || len(obj.Fields) != 1 {
			return nil, malformedValue(tag, v)
		}
		if s, ok := obj.Fields["string"]; ok {
			str, err := stringOf("graphql_id.string", s)
			return value.StringID(str), err
		}
		if n, ok := obj.Fields["int"]; ok {
			i, err := intOf("graphql_id.int", n)
			return value.IntID(i), err
		}
		return nil, malformedValue(tag, v)

	default:
		return nil, fmt.Errorf("%w: unknown value type %q", filter.ErrMalformedCondition, tag)
	}
}

func stringOf(tag string, v *structpb.Value) (string, error) {
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", malformedValue(tag, v)
	}
	return s.StringValue, nil
}

// intOf accepts a whole JSON number or a decimal string, the protojson
// form of 64-bit integers.
func intOf(tag string, v *structpb.Value) (int64, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %s %v is not an integer", filter.ErrMalformedCondition, tag, n)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not an integer", filter.ErrMalformedCondition, tag, k.StringValue)
		}
		return n, nil
	default:
		return 0, malformedValue(tag, v)
	}
}

func malformedValue(tag string, v *structpb.Value) error {
	return fmt.Errorf("%w: %s has the wrong type %T", filter.ErrMalformedCondition, tag, v.GetKind())
}
