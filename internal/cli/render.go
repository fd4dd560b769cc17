package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	tofu "github.com/goliatone/go-tofu"
	"github.com/goliatone/go-tofu/pkg/registry"
	"github.com/goliatone/go-tofu/pkg/render"
	"github.com/spf13/cobra"
)

// NewRenderCmd renders one template to stdout.
func NewRenderCmd(runtimeFn RuntimeFn) *cobra.Command {
	var dataPath string
	var injectedPath string
	var variant string
	var origins []string

	cmd := &cobra.Command{
		Use:   "render NAME",
		Short: "Render a template to stdout",
		Long: `Render evaluates the named template, or an overridable group, and
streams the output to stdout. Template data and injected data arrive as
JSON objects; --origin activates delegate origins for this render.

--variant distinguishes an omitted flag from an explicit empty string:
leaving it out dispatches without a variant, --variant="" dispatches on
the empty-string variant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFn()
			if err != nil {
				return err
			}
			data, err := readJSONFile(dataPath)
			if err != nil {
				return err
			}
			injected, err := readJSONFile(injectedPath)
			if err != nil {
				return err
			}
			req := renderRequest{
				template: args[0],
				variant:  variantFlag(cmd.Flags().Changed("variant"), variant),
				data:     data,
				injected: injected,
				origins:  origins,
			}
			return runRender(cmd.Context(), rt, os.Stdout, req)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "JSON file with template data (\"-\" for stdin)")
	cmd.Flags().StringVar(&injectedPath, "injected", "", "JSON file with injected data")
	cmd.Flags().StringVar(&variant, "variant", "", "Delegate variant for group dispatch")
	cmd.Flags().StringArrayVar(&origins, "origin", nil, "Activate a delegate origin (repeatable)")

	return cmd
}

type renderRequest struct {
	template string
	variant  registry.Variant
	data     map[string]any
	injected map[string]any
	origins  []string
}

func runRender(ctx context.Context, rt *tofu.Runtime, w io.Writer, req renderRequest) error {
	handle, err := rt.Render(ctx, render.Request{
		Template:      req.template,
		Variant:       req.variant,
		Data:          req.data,
		Injected:      req.injected,
		ActiveOrigins: registry.OriginSet(req.origins...),
		Sink:          render.SinkOf(w),
	})
	if err != nil {
		return err
	}

	res := handle.Result()
	for res.Suspended() {
		// JSON-sourced data is always ready, so a suspension here means a
		// pending value slipped in through injected providers.
		if res.State == render.StatePendingValue {
			return fmt.Errorf("cli: render suspended on pending value %s", res.PendingID)
		}
		if res, err = handle.Resume(); err != nil {
			return err
		}
	}
	if res.Failed() {
		return res.Err
	}
	return nil
}
