// Package placeholders renders {{name}} templates in strict mode.
package placeholders

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnresolved is returned when a template references a name without a value.
var ErrUnresolved = errors.New("unresolved placeholder")

// ErrMalformed is returned for a "{{" or "}}" that does not form a placeholder.
// It matches ErrUnresolved under errors.Is.
var ErrMalformed = fmt.Errorf("%w: malformed placeholder", ErrUnresolved)

var placeholderRegex = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Template is a parsed template. It is immutable and safe to share.
type Template struct {
	raw       string
	parts     []part
	names     []string
	malformed string // first stray delimiter fragment, empty when well formed
}

type part struct {
	literal string
	name    string // empty for literal parts
}

// Compile parses raw into a Template.
func Compile(raw string) *Template {
	t := &Template{raw: raw}
	seen := map[string]bool{}
	last := 0
	for _, loc := range placeholderRegex.FindAllStringSubmatchIndex(raw, -1) {
		if loc[0] > last {
			t.parts = append(t.parts, part{literal: raw[last:loc[0]]})
		}
		name := raw[loc[2]:loc[3]]
		t.parts = append(t.parts, part{name: name})
		if !seen[name] {
			seen[name] = true
			t.names = append(t.names, name)
		}
		last = loc[1]
	}
	if last < len(raw) {
		t.parts = append(t.parts, part{literal: raw[last:]})
	}
	for _, p := range t.parts {
		if p.name == "" && (strings.Contains(p.literal, "{{") || strings.Contains(p.literal, "}}")) {
			t.malformed = p.literal
			break
		}
	}
	return t
}

// String returns the unparsed template.
func (t *Template) String() string { return t.raw }

// Names returns the distinct placeholder names in order of first appearance.
func (t *Template) Names() []string {
	return append([]string(nil), t.names...)
}

// Check verifies that the template is well formed and every placeholder is declared.
func (t *Template) Check(declared func(name string) bool) error {
	if t.malformed != "" {
		return fmt.Errorf("%w near %q in %q", ErrMalformed, t.malformed, t.raw)
	}
	var missing []string
	for _, name := range t.names {
		if !declared(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s in %q", ErrUnresolved, strings.Join(missing, ", "), t.raw)
	}
	return nil
}

// Render substitutes values into the template. Any placeholder without a value
// fails the call.
func (t *Template) Render(values map[string]string) (string, error) {
	if t.malformed != "" {
		return "", fmt.Errorf("%w near %q in %q", ErrMalformed, t.malformed, t.raw)
	}
	if len(t.names) == 0 {
		return t.raw, nil
	}
	var sb strings.Builder
	sb.Grow(len(t.raw))
	for _, p := range t.parts {
		if p.name == "" {
			sb.WriteString(p.literal)
			continue
		}
		val, ok := values[p.name]
		if !ok {
			return "", fmt.Errorf("%w: %s in %q", ErrUnresolved, p.name, t.raw)
		}
		sb.WriteString(val)
	}
	return sb.String(), nil
}
