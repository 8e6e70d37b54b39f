package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlekbai/filter_engine/internal/filter"
	"github.com/atlekbai/filter_engine/internal/filter/decode"
	"github.com/atlekbai/filter_engine/internal/query"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Model     string
	Statement string
}

// CompileResult is the json output of the compile command.
type CompileResult struct {
	SQL        string `json:"sql"`
	Args       []any  `json:"args"`
	Joins      int    `json:"joins"`
	SubSelects int    `json:"sub_selects"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [filter-file]",
		Short: "Compile a filter document to SQL",
		Long: `Compile reads a JSON filter document from filter-file, or from stdin when
the argument is omitted or "-", and prints the SQL statement with its arguments.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runCompile(opts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "model the filter applies to")
	cmd.Flags().StringVar(&opts.Statement, "statement", "select", "statement to build (select|count|where)")
	cmd.MarkFlagRequired("model")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	statement, err := query.ParseStatement(opts.Statement)
	if err != nil {
		return err
	}
	s, err := opts.loadSchema()
	if err != nil {
		return err
	}
	model := s.Model(opts.Model)
	if model == nil {
		return fmt.Errorf("no model named %q", opts.Model)
	}

	doc, err := readDocument(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	f, err := decode.DecodeJSON(model, doc)
	if err != nil {
		return err
	}
	tree, err := filter.Compile(f, model)
	if err != nil {
		return err
	}

	res := CompileResult{
		Joins:      query.CountJoins(tree),
		SubSelects: query.CountSubSelects(tree),
	}
	res.SQL, res.Args, err = query.NewBuilder(model, opts.dialect()).Build(statement, tree)
	if err != nil {
		return err
	}
	if res.Args == nil {
		res.Args = []any{}
	}

	if opts.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "joins: %d, sub-selects: %d\n", res.Joins, res.SubSelects)
	}
	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, res)
	}
	fmt.Fprintln(out, res.SQL)
	for i, arg := range res.Args {
		fmt.Fprintf(out, "-- $%d = %#v\n", i+1, arg)
	}
	return nil
}

func readDocument(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read filter from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter: %w", err)
	}
	return data, nil
}
