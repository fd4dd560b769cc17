package cli

import (
	tofu "github.com/goliatone/go-tofu"
	"github.com/spf13/cobra"
)

// NewInspectCmd lists every template of a corpus with its dispatch
// metadata.
func NewInspectCmd(runtimeFn RuntimeFn) *cobra.Command {
	var format string
	var templatePath string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the templates of a corpus",
		Long: `Inspect lists every template in the corpus with its kind, dispatch
group, variant, origin, and declared parameters.

The template format renders the listing through a pongo2 template that
receives "corpus", "groups", "origins", and "templates" in its context.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFn()
			if err != nil {
				return err
			}
			out, err := NewOutput(Format(format), templatePath)
			if err != nil {
				return err
			}
			return runInspect(rt, out)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json, template)")
	cmd.Flags().StringVar(&templatePath, "template", "", "pongo2 template used with --format template")

	return cmd
}

func runInspect(rt *tofu.Runtime, out *Output) error {
	reg := rt.Registry()

	infos := make([]templateInfo, 0, reg.Size())
	rows := make([][]string, 0, reg.Size())
	for _, tpl := range reg.Templates() {
		info := infoOf(tpl)
		infos = append(infos, info)
		rows = append(rows, info.row())
	}

	corpusName := ""
	if doc := rt.Document(); doc != nil {
		corpusName = doc.Name
	}

	headers := []string{"NAME", "KIND", "GROUP", "VARIANT", "ORIGIN", "PARAMS"}
	payload := map[string]any{
		"corpus":    corpusName,
		"groups":    reg.Groups(),
		"origins":   reg.Origins(),
		"templates": infos,
	}
	return out.Print(headers, rows, payload)
}
