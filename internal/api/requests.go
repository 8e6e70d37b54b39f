// Package api describes the request messages of the filter service. The
// handlers exchange google.protobuf.Struct on the wire; the descriptors here
// give those structs a typed shape with buf.validate rules so requests can
// be checked before they reach a handler.
package api

import (
	"fmt"

	"buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	_ "google.golang.org/protobuf/types/known/structpb"
)

const (
	Package = "filter.v1"

	CompileRequestName       protoreflect.FullName = Package + ".CompileRequest"
	CompileBatchRequestName  protoreflect.FullName = Package + ".CompileBatchRequest"
	ReloadCatalogRequestName protoreflect.FullName = Package + ".ReloadCatalogRequest"

	// MaxBatchFilters bounds the filters of one CompileBatch call.
	MaxBatchFilters = 1000
)

// Statements lists the accepted statement values. Empty selects ids.
var Statements = []string{"", "select", "count", "where"}

var file = mustBuildFile()

// Descriptor returns the request message named name.
func Descriptor(name protoreflect.FullName) (protoreflect.MessageDescriptor, error) {
	md := file.Messages().ByName(name.Name())
	if md == nil || md.FullName() != name {
		return nil, fmt.Errorf("no request message %q", name)
	}
	return md, nil
}

// Decode converts a struct payload into a message of desc. Keys that the
// message does not declare are dropped.
func Decode(desc protoreflect.MessageDescriptor, payload proto.Message) (proto.Message, error) {
	data, err := protojson.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", desc.Name(), err)
	}
	msg := dynamicpb.NewMessage(desc)
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", desc.Name(), err)
	}
	return msg, nil
}

func mustBuildFile() protoreflect.FileDescriptor {
	fd, err := protodesc.NewFile(fileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("filter.v1 descriptors: %v", err))
	}
	return fd
}

func fileProto() *descriptorpb.FileDescriptorProto {
	model := stringField("model", 1, &validate.FieldRules{
		Required: proto.Bool(true),
		Type: &validate.FieldRules_String_{String_: &validate.StringRules{
			MinLen: proto.Uint64(1),
		}},
	})
	dialect := stringField("dialect", 3, nil)
	statement := stringField("statement", 4, &validate.FieldRules{
		Type: &validate.FieldRules_String_{String_: &validate.StringRules{
			In: Statements,
		}},
	})

	filters := structField("filters", 2, &validate.FieldRules{
		Type: &validate.FieldRules_Repeated{Repeated: &validate.RepeatedRules{
			MaxItems: proto.Uint64(MaxBatchFilters),
		}},
	})
	filters.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String("filter/v1/requests.proto"),
		Package:    proto.String(Package),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/struct.proto", "buf/validate/validate.proto"},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String(string(CompileRequestName.Name())),
				Field: []*descriptorpb.FieldDescriptorProto{
					model,
					structField("filter", 2, &validate.FieldRules{Required: proto.Bool(true)}),
					dialect,
					statement,
				},
			},
			{
				Name:  proto.String(string(CompileBatchRequestName.Name())),
				Field: []*descriptorpb.FieldDescriptorProto{clone(model), filters, clone(dialect), clone(statement)},
			},
			{Name: proto.String(string(ReloadCatalogRequestName.Name()))},
		},
	}
}

func clone(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	return proto.Clone(f).(*descriptorpb.FieldDescriptorProto)
}

func stringField(name string, number int32, rules *validate.FieldRules) *descriptorpb.FieldDescriptorProto {
	return field(name, number, descriptorpb.FieldDescriptorProto_TYPE_STRING, "", rules)
}

func structField(name string, number int32, rules *validate.FieldRules) *descriptorpb.FieldDescriptorProto {
	return field(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".google.protobuf.Struct", rules)
}

func field(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, typeName string, rules *validate.FieldRules) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		JsonName: proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	if rules != nil {
		f.Options = &descriptorpb.FieldOptions{}
		proto.SetExtension(f.Options, validate.E_Field, rules)
	}
	return f
}
