package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/flosch/pongo2/v6"
)

// Format selects how commands print structured results.
type Format string

const (
	// FormatTable prints an aligned text table, the default.
	FormatTable Format = "table"
	// FormatJSON prints indented JSON for piping into jq and friends.
	FormatJSON Format = "json"
	// FormatTemplate renders the result through a caller-supplied pongo2
	// template.
	FormatTemplate Format = "template"
)

// Output formats command results. Data goes to stdout, messages
// (Success/Error) to stderr, so pipes stay clean:
//
//	tofu inspect --corpus c.yaml --format json | jq .
type Output struct {
	format   Format
	template string
	w        io.Writer
	errW     io.Writer
}

// NewOutput builds an Output for the requested format. FormatTemplate
// requires the path of a pongo2 template.
func NewOutput(format Format, templatePath string) (*Output, error) {
	switch format {
	case FormatTable, FormatJSON:
	case FormatTemplate:
		if templatePath == "" {
			return nil, fmt.Errorf("cli: format %q needs --template", format)
		}
	case "":
		format = FormatTable
	default:
		return nil, fmt.Errorf("cli: unknown format %q (want table, json, or template)", format)
	}
	return &Output{
		format:   format,
		template: templatePath,
		w:        os.Stdout,
		errW:     os.Stderr,
	}, nil
}

// Print emits data in the configured format. Table mode uses headers and
// rows; JSON and template modes use v.
func (o *Output) Print(headers []string, rows [][]string, v any) error {
	switch o.format {
	case FormatJSON:
		return o.JSON(v)
	case FormatTemplate:
		return o.Template(v)
	}
	o.Table(headers, rows)
	return nil
}

// Table prints an aligned table through tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON prints v with indentation.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Template renders v through the configured pongo2 template. Map values
// become the template context directly; anything else is exposed as
// "data".
func (o *Output) Template(v any) error {
	loader, err := pongo2.NewLocalFileSystemLoader(filepath.Dir(o.template))
	if err != nil {
		return fmt.Errorf("cli: create template loader: %w", err)
	}
	set := pongo2.NewSet("tofu-cli", loader)
	tpl, err := set.FromFile(filepath.Base(o.template))
	if err != nil {
		return fmt.Errorf("cli: parse template %q: %w", o.template, err)
	}

	ctx := pongo2.Context{"data": v}
	if m, ok := v.(map[string]any); ok {
		ctx = pongo2.Context(m)
	}
	rendered, err := tpl.Execute(ctx)
	if err != nil {
		return fmt.Errorf("cli: execute template %q: %w", o.template, err)
	}
	_, err = io.WriteString(o.w, rendered)
	return err
}

// Success prints a message to stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error prints an error message to stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}
