// Package decode builds filter trees from their wire form, a JSON document
// carried as a google.protobuf.Struct:
//
//	{"and": [...]}  {"or": [...]}  {"not": [...]}
//	{"scalar": {"field": "title", "condition": {"equals": {"string": "x"}}}}
//	{"scalar_list": {"field": "tags", "condition": {"contains": {"string": "go"}}}}
//	{"one_relation_is_null": {"field": "author"}}
//	{"relation": {"field": "comments", "condition": "EVERY_RELATED_NODE", "nested_filter": {...}}}
//	{"node_subscription": {}}  {"bool": true}
//
// Field names are resolved against the model while decoding, so the
// resulting tree only references fields that exist.
package decode

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/filter_engine/internal/filter"
	"github.com/atlekbai/filter_engine/internal/schema"
	"github.com/atlekbai/filter_engine/internal/value"
)

// DecodeJSON parses a JSON filter document for model.
func DecodeJSON(model *schema.Model, data []byte) (filter.Filter, error) {
	var doc structpb.Struct
	if err := protojson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid filter document: %v", filter.ErrMalformedCondition, err)
	}
	return Decode(model, &doc)
}

// Decode converts a filter document for model.
func Decode(model *schema.Model, doc *structpb.Struct) (filter.Filter, error) {
	if model == nil {
		return nil, fmt.Errorf("decode filter: no model")
	}
	if doc == nil {
		return nil, &filter.Error{Path: "$", Err: fmt.Errorf("%w: missing filter", filter.ErrMalformedCondition)}
	}
	d := &decoder{}
	return d.filter(model, doc)
}

type decoder struct {
	path []string
}

func (d *decoder) push(seg string) { d.path = append(d.path, seg) }
func (d *decoder) pop()            { d.path = d.path[:len(d.path)-1] }

func (d *decoder) fail(kind error, format string, args ...any) error {
	path := "$"
	if len(d.path) > 0 {
		path = strings.Join(d.path, ".")
	}
	return &filter.Error{Path: path, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

func (d *decoder) malformed(format string, args ...any) error {
	return d.fail(filter.ErrMalformedCondition, format, args...)
}

func (d *decoder) wrap(err error) error {
	path := "$"
	if len(d.path) > 0 {
		path = strings.Join(d.path, ".")
	}
	return &filter.Error{Path: path, Err: err}
}

// single returns the only key of a one-of object.
func (d *decoder) single(s *structpb.Struct, what string) (string, *structpb.Value, error) {
	if s == nil || len(s.Fields) != 1 {
		return "", nil, d.malformed("%s must have exactly one key", what)
	}
	for k, v := range s.Fields {
		return k, v, nil
	}
	panic("unreachable")
}

func (d *decoder) filter(m *schema.Model, s *structpb.Struct) (filter.Filter, error) {
	kind, body, err := d.single(s, "filter")
	if err != nil {
		return nil, err
	}

	switch kind {
	case "and", "or", "not":
		children, err := d.children(m, kind, body)
		if err != nil {
			return nil, err
		}
		switch kind {
		case "and":
			return filter.And{Filters: children}, nil
		case "or":
			return filter.Or{Filters: children}, nil
		default:
			return filter.Not{Filters: children}, nil
		}

	case "scalar":
		obj, name, err := d.fieldObject(body, kind)
		if err != nil {
			return nil, err
		}
		d.push("scalar(" + name + ")")
		defer d.pop()
		f, err := m.FindScalarField(name)
		if err != nil {
			return nil, d.wrap(err)
		}
		cond, err := d.scalarCondition(obj.Fields["condition"].GetStructValue())
		if err != nil {
			return nil, err
		}
		return filter.Scalar{Field: f, Condition: cond}, nil

	case "scalar_list":
		obj, name, err := d.fieldObject(body, kind)
		if err != nil {
			return nil, err
		}
		d.push("scalar_list(" + name + ")")
		defer d.pop()
		f, err := m.FindScalarField(name)
		if err != nil {
			return nil, d.wrap(err)
		}
		cond, err := d.listCondition(obj.Fields["condition"].GetStructValue())
		if err != nil {
			return nil, err
		}
		return filter.ScalarList{Field: f, Condition: cond}, nil

	case "one_relation_is_null":
		_, name, err := d.fieldObject(body, kind)
		if err != nil {
			return nil, err
		}
		d.push("one_relation_is_null(" + name + ")")
		defer d.pop()
		f, err := m.FindRelationField(name)
		if err != nil {
			return nil, d.wrap(err)
		}
		return filter.OneRelationIsNull{Field: f}, nil

	case "relation":
		return d.relation(m, body)

	case "node_subscription":
		return filter.NodeSubscription{}, nil

	case "bool":
		b, ok := body.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, d.malformed("bool filter needs a boolean")
		}
		return filter.Bool{Value: b.BoolValue}, nil

	default:
		return nil, d.malformed("unknown filter kind %q", kind)
	}
}

func (d *decoder) children(m *schema.Model, kind string, body *structpb.Value) ([]filter.Filter, error) {
	list := body.GetListValue()
	if list == nil {
		return nil, d.malformed("%s needs a list of filters", kind)
	}
	children := make([]filter.Filter, len(list.Values))
	for i, v := range list.Values {
		d.push(fmt.Sprintf("%s[%d]", kind, i))
		child, err := d.filter(m, v.GetStructValue())
		d.pop()
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return children, nil
}

func (d *decoder) relation(m *schema.Model, body *structpb.Value) (filter.Filter, error) {
	obj, name, err := d.fieldObject(body, "relation")
	if err != nil {
		return nil, err
	}
	d.push("relation(" + name + ")")
	defer d.pop()

	f, err := m.FindRelationField(name)
	if err != nil {
		return nil, d.wrap(err)
	}
	condName := obj.Fields["condition"].GetStringValue()
	cond, ok := filter.ParseRelationCondition(condName)
	if !ok {
		return nil, d.malformed("unknown relation condition %q", condName)
	}
	nestedDoc := obj.Fields["nested_filter"].GetStructValue()
	if nestedDoc == nil {
		return nil, d.malformed("relation filter needs a nested_filter")
	}
	nested, err := d.filter(f.RelatedModel(), nestedDoc)
	if err != nil {
		return nil, err
	}
	return filter.Relation{Field: f, Condition: cond, Nested: nested}, nil
}

// fieldObject unpacks a {"field": name, ...} body.
func (d *decoder) fieldObject(body *structpb.Value, kind string) (*structpb.Struct, string, error) {
	obj := body.GetStructValue()
	if obj == nil {
		return nil, "", d.malformed("%s filter must be an object", kind)
	}
	name := obj.Fields["field"].GetStringValue()
	if name == "" {
		return nil, "", d.malformed("%s filter needs a field name", kind)
	}
	return obj, name, nil
}

func (d *decoder) scalarCondition(s *structpb.Struct) (filter.ScalarCondition, error) {
	op, operand, err := d.single(s, "scalar condition")
	if err != nil {
		return nil, err
	}

	switch op {
	case "in", "not_in":
		vs, err := d.values(operand, op)
		if err != nil {
			return nil, err
		}
		if op == "in" {
			return filter.In{Values: vs}, nil
		}
		return filter.NotIn{Values: vs}, nil
	}

	v, err := d.value(operand, op)
	if err != nil {
		return nil, err
	}
	switch op {
	case "equals":
		return filter.Equals{Value: v}, nil
	case "not_equals":
		return filter.NotEquals{Value: v}, nil
	case "contains":
		return filter.Contains{Value: v}, nil
	case "not_contains":
		return filter.NotContains{Value: v}, nil
	case "starts_with":
		return filter.StartsWith{Value: v}, nil
	case "not_starts_with":
		return filter.NotStartsWith{Value: v}, nil
	case "ends_with":
		return filter.EndsWith{Value: v}, nil
	case "not_ends_with":
		return filter.NotEndsWith{Value: v}, nil
	case "less_than":
		return filter.LessThan{Value: v}, nil
	case "less_than_or_equals":
		return filter.LessThanOrEquals{Value: v}, nil
	case "greater_than":
		return filter.GreaterThan{Value: v}, nil
	case "greater_than_or_equals":
		return filter.GreaterThanOrEquals{Value: v}, nil
	default:
		return nil, d.malformed("unknown scalar condition %q", op)
	}
}

func (d *decoder) listCondition(s *structpb.Struct) (filter.ScalarListCondition, error) {
	op, operand, err := d.single(s, "list condition")
	if err != nil {
		return nil, err
	}

	switch op {
	case "contains":
		v, err := d.value(operand, op)
		if err != nil {
			return nil, err
		}
		return filter.ListContains{Value: v}, nil
	case "contains_every":
		vs, err := d.values(operand, op)
		if err != nil {
			return nil, err
		}
		return filter.ListContainsEvery{Values: vs}, nil
	case "contains_some":
		vs, err := d.values(operand, op)
		if err != nil {
			return nil, err
		}
		return filter.ListContainsSome{Values: vs}, nil
	default:
		return nil, d.malformed("unknown list condition %q", op)
	}
}

func (d *decoder) value(v *structpb.Value, op string) (value.Value, error) {
	out, err := DecodeValue(v.GetStructValue())
	if err != nil {
		return nil, d.wrap(fmt.Errorf("%s: %w", op, err))
	}
	return out, nil
}

func (d *decoder) values(v *structpb.Value, op string) ([]value.Value, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, d.malformed("%s needs a list of values", op)
	}
	out := make([]value.Value, len(list.Values))
	for i, item := range list.Values {
		x, err := DecodeValue(item.GetStructValue())
		if err != nil {
			return nil, d.wrap(fmt.Errorf("%s[%d]: %w", op, i, err))
		}
		out[i] = x
	}
	return out, nil
}
