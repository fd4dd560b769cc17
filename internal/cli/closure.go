package cli

import (
	"sort"

	tofu "github.com/goliatone/go-tofu"
	"github.com/spf13/cobra"
)

// NewClosureCmd prints the transitive dependency closure of one or more
// roots.
func NewClosureCmd(runtimeFn RuntimeFn) *cobra.Command {
	var format string
	var withInjected bool

	cmd := &cobra.Command{
		Use:   "closure NAME...",
		Short: "Show every template a render of NAME can reach",
		Long: `Closure lists the transitive callee closure of the given roots: the
root itself plus every template any render starting there could ever
enter, including all implementations reachable through dynamic
dispatch. Several roots are unioned.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFn()
			if err != nil {
				return err
			}
			out, err := NewOutput(Format(format), "")
			if err != nil {
				return err
			}
			return runClosure(rt, out, args, withInjected)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json)")
	cmd.Flags().BoolVar(&withInjected, "ij", false, "Also list transitive injected inputs")

	return cmd
}

func runClosure(rt *tofu.Runtime, out *Output, roots []string, withInjected bool) error {
	closure, err := rt.ClosureOfAll(roots)
	if err != nil {
		return err
	}

	members := closure.Templates()
	infos := make([]templateInfo, 0, len(members))
	rows := make([][]string, 0, len(members))
	for _, tpl := range members {
		info := infoOf(tpl)
		infos = append(infos, info)
		rows = append(rows, []string{info.Name, info.Kind, info.Source})
	}

	payload := map[string]any{
		"roots":     roots,
		"templates": infos,
	}

	if withInjected {
		injected, err := transitiveInjectedAll(rt, roots)
		if err != nil {
			return err
		}
		payload["injected"] = injected
		if out.format == FormatTable {
			out.Table([]string{"NAME", "KIND", "SOURCE"}, rows)
			out.Table([]string{"INJECTED"}, singleColumn(injected))
			return nil
		}
	}

	return out.Print([]string{"NAME", "KIND", "SOURCE"}, rows, payload)
}

func transitiveInjectedAll(rt *tofu.Runtime, roots []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, root := range roots {
		names, err := rt.TransitiveInjected(root)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func singleColumn(values []string) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return rows
}
