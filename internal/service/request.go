package service

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/filter_engine/internal/query"
)

// request holds the options shared by Compile and CompileBatch.
type request struct {
	model     string
	dialect   query.Dialect
	statement query.Statement
}

func parseRequest(msg *structpb.Struct, defaultDialect query.Dialect) (request, error) {
	fields := msg.GetFields()
	in := request{
		model:     fields["model"].GetStringValue(),
		dialect:   defaultDialect,
		statement: query.StatementSelect,
	}
	if in.model == "" {
		return request{}, errors.New("model is required")
	}

	if v, ok := fields["dialect"]; ok {
		d, err := query.ParseDialect(v.GetStringValue())
		if err != nil {
			return request{}, err
		}
		in.dialect = d
	}

	if v, ok := fields["statement"]; ok {
		st, err := query.ParseStatement(v.GetStringValue())
		if err != nil {
			return request{}, err
		}
		in.statement = st
	}
	return in, nil
}

type compiled struct {
	sql  string
	args []any
}

func (c compiled) toStruct() *structpb.Struct {
	args := make([]*structpb.Value, len(c.args))
	for i, a := range c.args {
		v, err := structpb.NewValue(a)
		if err != nil {
			// Parameters come from filter values; anything else is text.
			v = structpb.NewStringValue(fmt.Sprint(a))
		}
		args[i] = v
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"sql":  structpb.NewStringValue(c.sql),
		"args": structpb.NewListValue(&structpb.ListValue{Values: args}),
	}}
}
