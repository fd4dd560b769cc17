package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	tofu "github.com/goliatone/go-tofu"
	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/registry"
)

// RuntimeFn lazily constructs the runtime after flags are parsed, so
// commands share one --corpus flag without loading anything for --help.
type RuntimeFn func() (*tofu.Runtime, error)

// templateInfo is the serializable view of one registry entry, shared by
// the inspect and closure listings.
type templateInfo struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Group   string   `json:"group,omitempty"`
	Variant *string  `json:"variant,omitempty"`
	Origin  string   `json:"origin,omitempty"`
	Params  []string `json:"params,omitempty"`
	Source  string   `json:"source"`
}

func infoOf(tpl *model.Template) templateInfo {
	info := templateInfo{
		Name:   tpl.Name,
		Kind:   string(tpl.Kind),
		Group:  tpl.DelGroup,
		Origin: tpl.Origin,
		Source: tpl.Location.String(),
	}
	if tpl.VariantPresent {
		v := tpl.Variant
		info.Variant = &v
	}
	for _, p := range tpl.Params {
		decl := p.Name
		if !p.Type.Any() {
			decl += ": " + p.Type.String()
		}
		if p.Injected {
			decl += " (injected)"
		} else if !p.Required {
			decl += " (optional)"
		}
		info.Params = append(info.Params, decl)
	}
	return info
}

func (i templateInfo) row() []string {
	variant := ""
	if i.Variant != nil {
		variant = fmt.Sprintf("%q", *i.Variant)
	}
	return []string{i.Name, i.Kind, i.Group, variant, i.Origin, strings.Join(i.Params, ", ")}
}

// readJSONFile decodes a JSON object file into the map render requests
// take. "-" reads stdin.
func readJSONFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("cli: read data file: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("cli: decode %s: %w", path, err)
	}
	return out, nil
}

// variantFlag converts the --variant flag into a dispatch variant. The
// flag must be tracked with Changed: an untouched flag means no variant,
// while --variant="" is the present empty string.
func variantFlag(changed bool, value string) registry.Variant {
	if !changed {
		return registry.NoVariant()
	}
	return registry.VariantOf(value)
}
