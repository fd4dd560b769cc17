package directives

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-tofu/pkg/data"
	"github.com/goliatone/go-tofu/pkg/model"
)

// ugcPolicy is built once at init; bluemonday policies are immutable after
// construction and safe for concurrent Sanitize calls.
var ugcPolicy = bluemonday.UGCPolicy()

// Builtin returns a fresh registry preloaded with the standard directive
// set. Callers register their own directives on top of it.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister(Func("escapeHtml", escapeHTML))
	r.MustRegister(Func("escapeUri", escapeURI))
	r.MustRegister(Func("escapeJsString", escapeJSString))
	r.MustRegister(Func("changeNewlineToBr", changeNewlineToBr))
	r.MustRegister(Func("insertWordBreaks", insertWordBreaks))
	r.MustRegister(Func("truncate", truncate))
	r.MustRegister(Func("cleanHtml", cleanHTML))
	r.MustRegister(Func("id", identity))
	return r
}

func identity(v data.Value, args []data.Value) (data.Value, error) {
	if err := wantArgs("id", args, 0); err != nil {
		return nil, err
	}
	return v, nil
}

// escapeHTML escapes markup-significant characters. Content already marked
// as HTML passes through untouched so chained directives and pre-sanitized
// values are not double-escaped.
func escapeHTML(v data.Value, args []data.Value) (data.Value, error) {
	if err := wantArgs("escapeHtml", args, 0); err != nil {
		return nil, err
	}
	if c, ok := v.(data.Content); ok && c.Kind == model.KindHTML {
		return c, nil
	}
	return data.Content{Kind: model.KindHTML, Val: html.EscapeString(v.String())}, nil
}

func escapeURI(v data.Value, args []data.Value) (data.Value, error) {
	if err := wantArgs("escapeUri", args, 0); err != nil {
		return nil, err
	}
	if c, ok := v.(data.Content); ok && c.Kind == model.KindURI {
		return c, nil
	}
	return data.Content{Kind: model.KindURI, Val: url.QueryEscape(v.String())}, nil
}

// escapeJSString makes a value safe to embed between quotes in a script
// context. Markup-significant characters are hex-escaped as well so the
// result cannot close a surrounding script tag.
func escapeJSString(v data.Value, args []data.Value) (data.Value, error) {
	if err := wantArgs("escapeJsString", args, 0); err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, r := range v.String() {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\x27`)
		case '"':
			b.WriteString(`\x22`)
		case '<':
			b.WriteString(`\x3c`)
		case '>':
			b.WriteString(`\x3e`)
		case '&':
			b.WriteString(`\x26`)
		case '=':
			b.WriteString(`\x3d`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case ' ':
			b.WriteString(` `)
		case ' ':
			b.WriteString(` `)
		case 0:
			b.WriteString(`\x00`)
		default:
			b.WriteRune(r)
		}
	}
	return data.Content{Kind: model.KindJS, Val: b.String()}, nil
}

// changeNewlineToBr replaces newline sequences with <br>. A \r\n pair
// becomes a single <br>. Kinded content keeps its kind.
func changeNewlineToBr(v data.Value, args []data.Value) (data.Value, error) {
	if err := wantArgs("changeNewlineToBr", args, 0); err != nil {
		return nil, err
	}
	text := v.String()
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			b.WriteString("<br>")
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
		case '\n':
			b.WriteString("<br>")
		default:
			b.WriteByte(text[i])
		}
	}
	if c, ok := v.(data.Content); ok {
		return data.Content{Kind: c.Kind, Val: b.String()}, nil
	}
	return data.Str(b.String()), nil
}

// insertWordBreaks inserts <wbr> after runs of the given length without
// whitespace. Characters inside tags do not count, and an HTML entity
// counts as one character, so pre-escaped markup stays intact.
func insertWordBreaks(v data.Value, args []data.Value) (data.Value, error) {
	if err := wantArgs("insertWordBreaks", args, 1); err != nil {
		return nil, err
	}
	max, err := intArg("insertWordBreaks", args, 0)
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		return nil, fmt.Errorf("directives: insertWordBreaks needs a positive length, got %d", max)
	}

	var (
		b        strings.Builder
		inTag    bool
		inEntity bool
		run      int64
	)
	for _, r := range v.String() {
		switch {
		case inTag:
			if r == '>' {
				inTag = false
			}
		case inEntity:
			if r == ';' {
				inEntity = false
				run++
			} else if unicode.IsSpace(r) {
				inEntity = false
				run = 0
			}
		case r == '<':
			inTag = true
		case r == '&':
			if run >= max {
				b.WriteString("<wbr>")
				run = 0
			}
			inEntity = true
		case unicode.IsSpace(r):
			run = 0
		default:
			if run >= max {
				b.WriteString("<wbr>")
				run = 0
			}
			run++
		}
		b.WriteRune(r)
	}
	if c, ok := v.(data.Content); ok {
		return data.Content{Kind: c.Kind, Val: b.String()}, nil
	}
	return data.Str(b.String()), nil
}

// truncate cuts a value to at most maxLen runes. The optional second
// argument (default true) appends "..." inside the limit when the value was
// cut; limits of three or less never get the ellipsis. Values under the
// limit pass through unchanged, kind and all.
func truncate(v data.Value, args []data.Value) (data.Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, fmt.Errorf("directives: truncate takes 1 or 2 arguments, got %d", len(args))
	}
	max, err := intArg("truncate", args, 0)
	if err != nil {
		return nil, err
	}
	if max < 0 {
		return nil, fmt.Errorf("directives: truncate needs a non-negative length, got %d", max)
	}
	addEllipsis := true
	if len(args) == 2 {
		flag, ok := args[1].(data.Boolean)
		if !ok {
			return nil, fmt.Errorf("directives: truncate's second argument must be a bool, got '%s'", args[1])
		}
		addEllipsis = bool(flag)
	}

	runes := []rune(v.String())
	if int64(len(runes)) <= max {
		return v, nil
	}
	if addEllipsis && max > 3 {
		return data.Str(string(runes[:max-3]) + "..."), nil
	}
	return data.Str(string(runes[:max])), nil
}

// cleanHTML strips a value down to user-generated-content safe markup and
// returns it as HTML content.
func cleanHTML(v data.Value, args []data.Value) (data.Value, error) {
	if err := wantArgs("cleanHtml", args, 0); err != nil {
		return nil, err
	}
	return data.Content{Kind: model.KindHTML, Val: ugcPolicy.Sanitize(v.String())}, nil
}

func wantArgs(name string, args []data.Value, want int) error {
	if len(args) == want {
		return nil
	}
	if want == 0 {
		return fmt.Errorf("directives: %s takes no arguments, got %d", name, len(args))
	}
	return fmt.Errorf("directives: %s takes %d arguments, got %d", name, want, len(args))
}

func intArg(name string, args []data.Value, i int) (int64, error) {
	switch n := args[i].(type) {
	case data.Integer:
		return int64(n), nil
	case data.Float:
		if n == data.Float(int64(n)) {
			return int64(n), nil
		}
	}
	return 0, fmt.Errorf("directives: %s needs an integer argument, got '%s'", name, args[i])
}
