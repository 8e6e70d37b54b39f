package server

import (
	"context"
	"errors"
	"time"

	"buf.build/go/protovalidate"
	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/atlekbai/filter_engine/internal/api"
)

// ValidationInterceptor rejects requests that fail protovalidate constraints.
// Procedures listed in types have their payload decoded into that message
// first, so rules declared on the typed shape apply to untyped payloads.
func ValidationInterceptor(validator protovalidate.Validator, types map[string]protoreflect.MessageDescriptor) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			msg, ok := req.Any().(proto.Message)
			if !ok {
				return next(ctx, req)
			}
			if desc, typed := types[req.Spec().Procedure]; typed {
				decoded, err := api.Decode(desc, msg)
				if err != nil {
					return nil, connect.NewError(connect.CodeInvalidArgument, err)
				}
				msg = decoded
			}
			if err := validator.Validate(msg); err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}
			return next(ctx, req)
		}
	}
}

// LoggingInterceptor attaches logger to the request context and logs every
// call with its procedure, duration and result code.
func LoggingInterceptor(logger zerolog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			l := logger.With().Str("procedure", req.Spec().Procedure).Logger()
			ctx = l.WithContext(ctx)

			resp, err := next(ctx, req)

			ev := l.Info()
			code := "ok"
			if err != nil {
				c := connect.CodeOf(err)
				code = c.String()
				if c == connect.CodeInternal || c == connect.CodeUnknown {
					ev = l.Error()
				} else {
					ev = l.Warn()
				}
				var ce *connect.Error
				if errors.As(err, &ce) {
					ev = ev.Str("error", ce.Message())
				} else {
					ev = ev.Err(err)
				}
			}
			ev.Str("code", code).Dur("duration", time.Since(start)).Msg("rpc")
			return resp, err
		}
	}
}
