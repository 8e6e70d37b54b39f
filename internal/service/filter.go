package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"connectrpc.com/connect"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/filter_engine/internal/api"
	"github.com/atlekbai/filter_engine/internal/filter"
	"github.com/atlekbai/filter_engine/internal/filter/decode"
	"github.com/atlekbai/filter_engine/internal/logging"
	"github.com/atlekbai/filter_engine/internal/query"
	"github.com/atlekbai/filter_engine/internal/schema"
)

const (
	FilterServiceName = api.Package + ".FilterService"

	CompileProcedure       = "/" + FilterServiceName + "/Compile"
	CompileBatchProcedure  = "/" + FilterServiceName + "/CompileBatch"
	ReloadCatalogProcedure = "/" + FilterServiceName + "/ReloadCatalog"
)

// FilterService compiles filter documents into SQL for the models of the
// current catalog snapshot. It never executes the SQL it produces.
type FilterService struct {
	cache   *schema.Cache
	dialect query.Dialect
	reload  func(context.Context) error
}

func NewFilterService(cache *schema.Cache, dialect query.Dialect) *FilterService {
	return &FilterService{cache: cache, dialect: dialect}
}

// WithCatalogSource enables ReloadCatalog, which re-reads the catalog from
// the metadata tables.
func (s *FilterService) WithCatalogSource(pool *pgxpool.Pool, schemaName string) *FilterService {
	s.reload = func(ctx context.Context) error {
		return s.cache.Load(ctx, pool, schemaName)
	}
	return s
}

func (s *FilterService) RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler) {
	opts := connect.WithInterceptors(interceptors...)
	mux := http.NewServeMux()
	mux.Handle(CompileProcedure, connect.NewUnaryHandler(CompileProcedure, s.Compile, opts))
	mux.Handle(CompileBatchProcedure, connect.NewUnaryHandler(CompileBatchProcedure, s.CompileBatch, opts))
	mux.Handle(ReloadCatalogProcedure, connect.NewUnaryHandler(ReloadCatalogProcedure, s.ReloadCatalog, opts))
	return "/" + FilterServiceName + "/", mux
}

// RequestTypes maps each procedure to the typed shape of its request, for
// server.ValidationInterceptor.
func (s *FilterService) RequestTypes() (map[string]protoreflect.MessageDescriptor, error) {
	names := map[string]protoreflect.FullName{
		CompileProcedure:       api.CompileRequestName,
		CompileBatchProcedure:  api.CompileBatchRequestName,
		ReloadCatalogProcedure: api.ReloadCatalogRequestName,
	}
	types := make(map[string]protoreflect.MessageDescriptor, len(names))
	for procedure, name := range names {
		desc, err := api.Descriptor(name)
		if err != nil {
			return nil, err
		}
		types[procedure] = desc
	}
	return types, nil
}

// Compile handles {model, filter, dialect?, statement?} and responds with
// {sql, args}.
func (s *FilterService) Compile(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	in, err := parseRequest(req.Msg, s.dialect)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	doc := req.Msg.GetFields()["filter"].GetStructValue()
	if doc == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("filter is required"))
	}

	model := s.cache.Model(in.model)
	if model == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no model named %q", in.model))
	}

	out, err := compileDocument(model, doc, in)
	if err != nil {
		return nil, compileError(err)
	}
	logging.Ctx(ctx).Debug().Str("model", model.Name).Str("sql", out.sql).Msg("compiled filter")

	return connect.NewResponse(out.toStruct()), nil
}

// CompileBatch handles {model, filters: [...], dialect?, statement?}. All
// filters compile against one catalog snapshot and results keep the order
// of the request.
func (s *FilterService) CompileBatch(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	in, err := parseRequest(req.Msg, s.dialect)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	list := req.Msg.GetFields()["filters"].GetListValue()
	if list == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("filters must be a list"))
	}

	snapshot := s.cache.Current()
	model := snapshot.Model(in.model)
	if model == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no model named %q", in.model))
	}

	results := make([]*structpb.Value, len(list.Values))
	errs := make([]error, len(list.Values))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, item := range list.Values {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			doc := item.GetStructValue()
			if doc == nil {
				errs[i] = fmt.Errorf("filters[%d]: %w: not an object", i, filter.ErrMalformedCondition)
				return nil
			}
			out, err := compileDocument(model, doc, in)
			if err != nil {
				errs[i] = fmt.Errorf("filters[%d]: %w", i, err)
				return nil
			}
			results[i] = structpb.NewStructValue(out.toStruct())
			return nil
		})
	}
	_ = g.Wait()
	// The lowest failing index is reported so retries see the same error.
	for _, err := range errs {
		if err != nil {
			return nil, compileError(err)
		}
	}

	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"results": structpb.NewListValue(&structpb.ListValue{Values: results}),
	}}), nil
}

// ReloadCatalog swaps in a fresh catalog snapshot and reports {models}.
func (s *FilterService) ReloadCatalog(ctx context.Context, _ *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	if s.reload == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("catalog was loaded from a file and cannot be reloaded"))
	}
	if err := s.reload(ctx); err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("reload catalog: %w", err))
	}
	n := s.cache.ModelCount()
	logging.Ctx(ctx).Info().Int("models", n).Msg("catalog reloaded")

	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"models": structpb.NewNumberValue(float64(n)),
	}}), nil
}

// compileError maps compilation failures to connect codes. Unsupported
// filters are a caller defect, so they surface as internal errors.
func compileError(err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeCanceled
	case errors.Is(err, schema.ErrUnknownField), errors.Is(err, filter.ErrMalformedCondition):
		code = connect.CodeInvalidArgument
	}
	compileFailures.WithLabelValues(code.String()).Inc()
	return connect.NewError(code, err)
}

// compileDocument decodes, compiles and renders one filter document.
func compileDocument(model *schema.Model, doc *structpb.Struct, in request) (compiled, error) {
	f, err := decode.Decode(model, doc)
	if err != nil {
		return compiled{}, err
	}
	tree, err := filter.Compile(f, model)
	if err != nil {
		return compiled{}, err
	}
	observeTree(tree)

	var out compiled
	out.sql, out.args, err = query.NewBuilder(model, in.dialect).Build(in.statement, tree)
	if err != nil {
		return compiled{}, fmt.Errorf("render sql: %w", err)
	}
	return out, nil
}
