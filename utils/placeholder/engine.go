// Package placeholder renders templates against a value bag and a table of
// named paths.
//
// Bag placeholders are written {{key}} or {{!key}}. Characters between the
// braces and the key (or after the key and its filters) are decorations: they
// are kept next to the value and disappear together with the placeholder when
// the key is missing, so {{, city}} renders ", Paris" or nothing. Whitespace
// touching the braces is padding and never rendered. A key may be followed by
// filters, {{title|slug}}.
//
// Path macros are written @name or @!name and looked up in the engine's path
// table after all bag placeholders have been replaced. Only the template's
// own text is searched for macros, never an inserted value.
//
// The ! marker makes a reference required. A missing required reference
// fails the whole call: Render returns a *MissingPlaceholderError, Resolve
// reports ok=false.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bagPattern  = regexp.MustCompile(`\{\{([^{}]*)\}\}`)
	pathPattern = regexp.MustCompile(`@(!?)([A-Za-z_][A-Za-z0-9_]*)`)
)

// MissingPlaceholderError is returned by strict rendering when a required
// reference cannot be resolved.
type MissingPlaceholderError struct {
	Template string
	Missing  []string // bag keys, and path macros prefixed with @
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("missing value for %s in %q", strings.Join(e.Missing, ", "), e.Template)
}

// Engine substitutes placeholders and path macros.
type Engine struct {
	paths   map[string]string
	filters map[string]Filter
}

// NewEngine creates an engine over a copy of the given path table.
func NewEngine(paths map[string]string) *Engine {
	table := make(map[string]string, len(paths))
	for k, v := range paths {
		table[k] = v
	}
	return &Engine{paths: table, filters: defaultFilters()}
}

// Paths returns a copy of the engine's path table.
func (e *Engine) Paths() map[string]string {
	out := make(map[string]string, len(e.paths))
	for k, v := range e.paths {
		out[k] = v
	}
	return out
}

// Render substitutes strictly: any missing required reference is an error.
func (e *Engine) Render(tmpl string, bag *Bag) (string, error) {
	out, _, err := e.Substitute(tmpl, bag, true)
	return out, err
}

// Resolve substitutes leniently. ok is false when a required reference is
// missing; out still holds the partially rendered text.
func (e *Engine) Resolve(tmpl string, bag *Bag) (out string, ok bool) {
	out, ok, _ = e.Substitute(tmpl, bag, false)
	return out, ok
}

// Substitute runs the bag pass and then the path pass over tmpl. In strict
// mode a missing required reference returns *MissingPlaceholderError; in
// lenient mode it returns ok=false and a nil error.
func (e *Engine) Substitute(tmpl string, bag *Bag, strict bool) (string, bool, error) {
	return e.substitute(tmpl, bag, strict, nil)
}

// RenderQuoted renders strictly like Render, passing every inserted value
// through quote first. Path values are passed with the key "@name".
func (e *Engine) RenderQuoted(tmpl string, bag *Bag, quote func(key, value string) string) (string, error) {
	out, _, err := e.substitute(tmpl, bag, true, quote)
	return out, err
}

// substitute only runs the path pass over template text, so inserted values
// are never read as macros.
func (e *Engine) substitute(tmpl string, bag *Bag, strict bool, quote func(key, value string) string) (string, bool, error) {
	var (
		b         strings.Builder
		missing   []string
		filterErr error
		last      int
	)

	for _, loc := range bagPattern.FindAllStringSubmatchIndex(tmpl, -1) {
		b.WriteString(e.expandPaths(tmpl[last:loc[0]], &missing, quote))
		last = loc[1]

		ref, isRef := parseRef(tmpl[loc[2]:loc[3]])
		if !isRef {
			b.WriteString(e.expandPaths(tmpl[loc[0]:loc[1]], &missing, quote))
			continue
		}
		value, present := bag.Get(ref.key)
		if !present {
			if ref.required {
				missing = append(missing, ref.key)
			}
			continue
		}
		for _, name := range ref.filters {
			fn, known := e.filters[name]
			if !known {
				if strict && filterErr == nil {
					filterErr = fmt.Errorf("unknown filter %q on %q", name, ref.key)
				}
				continue
			}
			value = fn(value)
		}
		if quote != nil {
			value = quote(ref.key, value)
		}
		b.WriteString(ref.prefix + value + ref.suffix)
	}
	b.WriteString(e.expandPaths(tmpl[last:], &missing, quote))
	out := b.String()

	if filterErr != nil {
		return "", false, filterErr
	}
	if len(missing) > 0 {
		if strict {
			return "", false, &MissingPlaceholderError{Template: tmpl, Missing: missing}
		}
		return out, false, nil
	}
	return out, true, nil
}

func (e *Engine) expandPaths(s string, missing *[]string, quote func(key, value string) string) string {
	return pathPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := pathPattern.FindStringSubmatch(match)
		required, name := sub[1] == "!", sub[2]
		if value, ok := e.paths[name]; ok {
			if quote != nil {
				return quote("@"+name, value)
			}
			return value
		}
		if required {
			*missing = append(*missing, "@"+name)
		}
		return match
	})
}

// Placeholders lists the bag keys referenced by tmpl in first-use order.
func Placeholders(tmpl string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, m := range bagPattern.FindAllStringSubmatch(tmpl, -1) {
		ref, ok := parseRef(m[1])
		if !ok || seen[ref.key] {
			continue
		}
		seen[ref.key] = true
		keys = append(keys, ref.key)
	}
	return keys
}

type reference struct {
	prefix   string
	required bool
	key      string
	filters  []string
	suffix   string
}

// parseRef splits the text between the braces into decorations, the
// required marker, the key and its filters. Anything that does not fit that
// shape is not a placeholder and is left untouched by the caller.
func parseRef(inner string) (reference, bool) {
	var ref reference
	s := strings.TrimSpace(inner)

	i := 0
	for i < len(s) && !isWordByte(s[i]) && s[i] != '!' && s[i] != '|' {
		i++
	}
	ref.prefix = s[:i]
	if i < len(s) && s[i] == '!' {
		ref.required = true
		i++
	}

	start := i
	for i < len(s) && isWordByte(s[i]) {
		i++
	}
	if i == start {
		return reference{}, false
	}
	ref.key = s[start:i]

	for i < len(s) && s[i] == '|' {
		j := i + 1
		for j < len(s) && isWordByte(s[j]) {
			j++
		}
		if j == i+1 {
			return reference{}, false
		}
		ref.filters = append(ref.filters, s[i+1:j])
		i = j
	}

	ref.suffix = s[i:]
	for k := 0; k < len(ref.suffix); k++ {
		if c := ref.suffix[k]; isWordByte(c) || c == '!' || c == '|' {
			return reference{}, false
		}
	}
	return ref, true
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
