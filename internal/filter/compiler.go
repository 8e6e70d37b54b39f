package filter

import (
	"fmt"
	"strings"

	"github.com/atlekbai/filter_engine/internal/query"
	"github.com/atlekbai/filter_engine/internal/schema"
)

// Compile translates a filter over model into a condition tree whose root
// columns are qualified with query.Alias().
func Compile(f Filter, model *schema.Model) (query.Tree, error) {
	return NewCompiler(model).Compile(f)
}

// Compiler compiles filters for one model. A Compiler is cheap to create and
// must not be shared between goroutines; the schema it reads from may be.
type Compiler struct {
	model   *schema.Model
	aliases int
	path    []string
}

// NewCompiler creates a compiler for filters over model.
func NewCompiler(model *schema.Model) *Compiler {
	return &Compiler{model: model}
}

// scope is the model whose fields are visible and the alias its table is
// bound to in the statement being built.
type scope struct {
	model *schema.Model
	alias string
}

// Compile translates f. Either the whole tree compiles or an error is
// returned; f is never modified.
func (c *Compiler) Compile(f Filter) (query.Tree, error) {
	if c.model == nil {
		return nil, fmt.Errorf("compile filter: no model")
	}
	c.aliases = 0
	c.path = c.path[:0]
	return c.compile(f, scope{model: c.model, alias: query.Alias()})
}

func (c *Compiler) compile(f Filter, sc scope) (query.Tree, error) {
	switch n := f.(type) {
	case And:
		return c.compileAnd(n.Filters, "and", sc)

	case Or:
		if len(n.Filters) == 0 {
			return query.NoCondition{}, nil
		}
		trees, err := c.compileAll(n.Filters, "or", sc)
		if err != nil {
			return nil, err
		}
		acc := trees[len(trees)-1]
		for i := len(trees) - 2; i >= 0; i-- {
			acc = query.OrTree(trees[i], acc)
		}
		return acc, nil

	case Not:
		inner, err := c.compileAnd(n.Filters, "not", sc)
		if err != nil {
			return nil, err
		}
		return query.NotTree(inner), nil

	case Scalar:
		c.push("scalar(" + fieldName(n.Field) + ")")
		defer c.pop()
		return c.compileScalar(n, sc)

	case ScalarList:
		c.push("scalar_list(" + fieldName(n.Field) + ")")
		defer c.pop()
		return c.compileScalarList(n, sc)

	case OneRelationIsNull:
		c.push("one_relation_is_null(" + relationFieldName(n.Field) + ")")
		defer c.pop()
		return c.compileOneRelationIsNull(n, sc)

	case Relation:
		c.push("relation(" + relationFieldName(n.Field) + ")")
		defer c.pop()
		return c.compileRelation(query.IDColumn(sc.alias, sc.model), n, sc)

	case Bool:
		if n.Value {
			return query.NoCondition{}, nil
		}
		return query.NegativeCondition{}, nil

	case NodeSubscription:
		return nil, c.errorf(ErrUnsupportedFilter, "node subscription filters cannot be compiled")

	case nil:
		return nil, c.errorf(ErrMalformedCondition, "missing filter")

	default:
		return nil, c.errorf(ErrUnsupportedFilter, "unknown filter type %T", f)
	}
}

// compileAnd folds the children right to left: the last child is the
// innermost right operand.
func (c *Compiler) compileAnd(fs []Filter, name string, sc scope) (query.Tree, error) {
	if len(fs) == 0 {
		return query.NoCondition{}, nil
	}
	trees, err := c.compileAll(fs, name, sc)
	if err != nil {
		return nil, err
	}
	acc := trees[len(trees)-1]
	for i := len(trees) - 2; i >= 0; i-- {
		acc = query.AndTree(trees[i], acc)
	}
	return acc, nil
}

// compileAll compiles children in order so aliases follow reading order.
func (c *Compiler) compileAll(fs []Filter, name string, sc scope) ([]query.Tree, error) {
	trees := make([]query.Tree, len(fs))
	for i, child := range fs {
		c.push(fmt.Sprintf("%s[%d]", name, i))
		t, err := c.compile(child, sc)
		c.pop()
		if err != nil {
			return nil, err
		}
		trees[i] = t
	}
	return trees, nil
}

func (c *Compiler) nextAlias(prefix string) string {
	c.aliases++
	return fmt.Sprintf("%s%d", prefix, c.aliases)
}

func (c *Compiler) push(seg string) { c.path = append(c.path, seg) }
func (c *Compiler) pop()            { c.path = c.path[:len(c.path)-1] }

func (c *Compiler) pathString() string {
	if len(c.path) == 0 {
		return "$"
	}
	return strings.Join(c.path, ".")
}

func (c *Compiler) errorf(kind error, format string, args ...any) error {
	return &Error{
		Path: c.pathString(),
		Err:  fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}

// wrap attaches the current path to an error from the schema.
func (c *Compiler) wrap(err error) error {
	return &Error{Path: c.pathString(), Err: err}
}

func fieldName(f *schema.ScalarField) string {
	if f == nil {
		return "?"
	}
	return f.Name
}

func relationFieldName(f *schema.RelationField) string {
	if f == nil {
		return "?"
	}
	return f.Name
}
