package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tofu "github.com/goliatone/go-tofu"
	"github.com/goliatone/go-tofu/pkg/registry"
	"github.com/spf13/cobra"
)

// NewExploreCmd opens an interactive session over a corpus: pick a
// template, refine dispatch, then render it or show its closure.
func NewExploreCmd(runtimeFn RuntimeFn) *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Interactively browse and render a corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFn()
			if err != nil {
				return err
			}
			err = runExplore(cmd.Context(), newSurveyDriver(), rt, os.Stdout)
			if errors.Is(err, ErrAborted) {
				return nil
			}
			return err
		},
	}
}

func runExplore(ctx context.Context, driver PromptDriver, rt *tofu.Runtime, w io.Writer) error {
	reg := rt.Registry()
	names := dispatchableNames(reg)
	if len(names) == 0 {
		return errors.New("cli: corpus has no templates")
	}

	for {
		idx, err := driver.Select(ctx, SelectConfig{
			Message:  "Template",
			Options:  names,
			PageSize: 15,
		})
		if err != nil {
			return err
		}
		name := names[idx]

		variant := registry.NoVariant()
		var origins []string
		if reg.IsGroup(name) {
			v, err := driver.Input(ctx, InputConfig{
				Message: "Variant",
				Help:    "Leave empty to dispatch without a variant",
			})
			if err != nil {
				return err
			}
			if v != "" {
				variant = registry.VariantOf(v)
			}
			if all := reg.Origins(); len(all) > 0 {
				picked, err := driver.MultiSelect(ctx, SelectConfig{
					Message: "Active origins",
					Options: all,
				})
				if err != nil {
					return err
				}
				for _, i := range picked {
					origins = append(origins, all[i])
				}
			}
		}

		actions := []string{"render", "closure"}
		act, err := driver.Select(ctx, SelectConfig{Message: "Action", Options: actions})
		if err != nil {
			return err
		}

		switch actions[act] {
		case "render":
			raw, err := driver.Input(ctx, InputConfig{
				Message: "Data",
				Help:    "JSON object with template data, empty for none",
			})
			if err != nil {
				return err
			}
			var data map[string]any
			if strings.TrimSpace(raw) != "" {
				if err := json.Unmarshal([]byte(raw), &data); err != nil {
					fmt.Fprintf(w, "invalid data: %v\n", err)
					break
				}
			}
			req := renderRequest{template: name, variant: variant, data: data, origins: origins}
			if err := runRender(ctx, rt, w, req); err != nil {
				fmt.Fprintf(w, "render failed: %v\n", err)
			} else {
				fmt.Fprintln(w)
			}
		case "closure":
			closure, err := rt.ClosureOfAll([]string{name})
			if err != nil {
				return err
			}
			for _, member := range closure.Names() {
				fmt.Fprintln(w, member)
			}
		}

		again, err := driver.Confirm(ctx, ConfirmConfig{
			Message: "Explore another template?",
			Default: true,
		})
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

// dispatchableNames merges unique template names with group names, the
// full set a render request may name.
func dispatchableNames(reg *registry.Registry) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, name := range reg.Names() {
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	for _, name := range reg.Groups() {
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
