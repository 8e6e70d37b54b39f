package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlekbai/filter_engine/internal/schema"
)

// ModelSummary is the json output of the models command.
type ModelSummary struct {
	Name      string            `json:"name"`
	Table     string            `json:"table"`
	Scalars   map[string]string `json:"scalars"`
	Relations map[string]string `json:"relations"`
}

// NewModelsCommand creates the models command.
func NewModelsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "models",
		Short:        "List the models and fields a filter can reference",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.loadSchema()
			if err != nil {
				return err
			}
			summaries := summarize(s)
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, summaries)
			}
			for _, m := range summaries {
				fmt.Fprintf(out, "%s (%s)\n", m.Name, m.Table)
				for _, f := range s.Model(m.Name).ScalarFields {
					fmt.Fprintf(out, "  %s: %s\n", f.Name, m.Scalars[f.Name])
				}
				for _, f := range s.Model(m.Name).RelationFields {
					fmt.Fprintf(out, "  %s -> %s\n", f.Name, m.Relations[f.Name])
				}
			}
			return nil
		},
	}
}

func summarize(s *schema.Schema) []ModelSummary {
	out := make([]ModelSummary, 0, len(s.Models))
	for _, m := range s.Models {
		sum := ModelSummary{
			Name:      m.Name,
			Table:     m.TableName(),
			Scalars:   make(map[string]string, len(m.ScalarFields)),
			Relations: make(map[string]string, len(m.RelationFields)),
		}
		for _, f := range m.ScalarFields {
			typ := string(f.Type)
			if f.IsList {
				typ = "[" + typ + "]"
			}
			sum.Scalars[f.Name] = typ
		}
		for _, f := range m.RelationFields {
			target := f.RelatedModel().Name
			if f.IsList {
				target = "[" + target + "]"
			}
			sum.Relations[f.Name] = target
		}
		out = append(out, sum)
	}
	return out
}
