package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/atlekbai/filter_engine/internal/query"
	"github.com/atlekbai/filter_engine/internal/schema"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Schema  string
	Dialect string
	Format  string // "json" | "text"
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the filterc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "filterc",
		Short: "Compile filter documents to SQL offline",
		Long: `filterc compiles filter documents against a schema template file and
prints the SQL the filter service would produce, without a server or a database.`,
		SilenceErrors: true, // main prints the error once
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := query.ParseDialect(opts.Dialect); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Schema, "schema", "s", "", "schema template file (.json, .yaml or .yml)")
	cmd.PersistentFlags().StringVar(&opts.Dialect, "dialect", "postgres", "SQL dialect (postgres|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print query shape to stderr")
	cmd.MarkPersistentFlagRequired("schema")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewModelsCommand(opts))

	return cmd
}

func (o *RootOptions) loadSchema() (*schema.Schema, error) {
	return schema.LoadTemplateFile(o.Schema)
}

func (o *RootOptions) dialect() query.Dialect {
	d, _ := query.ParseDialect(o.Dialect)
	return d
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
