package prompt

import (
	"errors"
	"fmt"
	"io"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{"
	endTag   = "}"
)

// ErrMissingPlaceholder is returned by Render when a placeholder has no value.
var ErrMissingPlaceholder = errors.New("missing value for placeholder")

// Template is a text with {name} placeholders. A brace pair whose contents are
// not a valid identifier is kept literally.
type Template struct {
	tmpl  *fasttemplate.Template
	names []string
}

// Parse scans text for placeholders. A "{" without a closing "}" is an error.
func Parse(text string) (*Template, error) {
	tmpl, err := fasttemplate.NewTemplate(text, startTag, endTag)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	t := &Template{tmpl: tmpl}
	seen := make(map[string]bool)
	tmpl.ExecuteFuncString(func(_ io.Writer, tag string) (int, error) {
		if isIdentifier(tag) && !seen[tag] {
			seen[tag] = true
			t.names = append(t.names, tag)
		}
		return 0, nil
	})

	return t, nil
}

// Placeholders lists the distinct placeholder names in order of first use.
func (t *Template) Placeholders() []string {
	return append([]string(nil), t.names...)
}

// Render substitutes every placeholder in a single pass; substituted values
// are never re-scanned, so a value containing "{question}" stays as is.
func (t *Template) Render(values map[string]string) (string, error) {
	return t.tmpl.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		if !isIdentifier(tag) {
			return io.WriteString(w, startTag+tag+endTag)
		}
		v, ok := values[tag]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingPlaceholder, tag)
		}
		return io.WriteString(w, v)
	})
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
