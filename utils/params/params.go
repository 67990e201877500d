// Package params describes positional command parameters and binds raw
// command-line arguments to them.
package params

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RequiredMarker prefixes a declared parameter name to mark it required.
const RequiredMarker = "!"

// Spec describes one positional command argument.
type Spec struct {
	Name        string
	Required    bool
	Options     []string // advisory, only used for usage output
	Fallback    *string
	Description string
}

// New builds a Spec from a declared name. A leading RequiredMarker marks the
// parameter required and is stripped from the stored name.
func New(declared string) Spec {
	s := Spec{Name: declared}
	if strings.HasPrefix(declared, RequiredMarker) {
		s.Name = strings.TrimPrefix(declared, RequiredMarker)
		s.Required = true
	}
	return s
}

// WithDescription returns a copy of s carrying the given description.
func (s Spec) WithDescription(desc string) Spec {
	s.Description = desc
	return s
}

// WithOptions returns a copy of s carrying the given enumerated options.
func (s Spec) WithOptions(options ...string) Spec {
	s.Options = append([]string(nil), options...)
	return s
}

// WithFallback returns a copy of s with a default value.
func (s Spec) WithFallback(fallback string) Spec {
	s.Fallback = &fallback
	return s
}

// Usage renders the parameter for a synopsis line, e.g. "<name>",
// "[standard|update=standard]".
func (s Spec) Usage() string {
	body := s.Name
	if len(s.Options) > 0 {
		body = strings.Join(s.Options, "|")
	}
	if s.Fallback != nil {
		body += "=" + *s.Fallback
	}
	if s.Required {
		return "<" + body + ">"
	}
	return "[" + body + "]"
}

// Synopsis joins the usage strings of specs with single spaces.
func Synopsis(specs []Spec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.Usage()
	}
	return strings.Join(parts, " ")
}

// Declaration is the serialized form of a Spec: either a bare name or a
// sequence [name, description?, options?, fallback?].
type Declaration struct {
	Spec Spec
}

// UnmarshalYAML accepts both declaration forms. Null entries in the sequence
// form mean "not set".
func (d *Declaration) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return fmt.Errorf("line %d: empty parameter name", node.Line)
		}
		d.Spec = New(node.Value)
		return nil
	case yaml.SequenceNode:
		return d.decodeTuple(node)
	default:
		return fmt.Errorf("line %d: parameter must be a name or a [name, description, options, fallback] list", node.Line)
	}
}

func (d *Declaration) decodeTuple(node *yaml.Node) error {
	items := node.Content
	if len(items) == 0 || len(items) > 4 {
		return fmt.Errorf("line %d: parameter list needs 1 to 4 entries, got %d", node.Line, len(items))
	}
	if items[0].Kind != yaml.ScalarNode || items[0].Value == "" {
		return fmt.Errorf("line %d: parameter name must be a non-empty string", node.Line)
	}
	spec := New(items[0].Value)

	if len(items) > 1 && !isNull(items[1]) {
		spec.Description = items[1].Value
	}
	if len(items) > 2 && !isNull(items[2]) {
		var options []string
		if err := items[2].Decode(&options); err != nil {
			return fmt.Errorf("line %d: parameter %q options: %w", node.Line, spec.Name, err)
		}
		spec.Options = options
	}
	if len(items) > 3 && !isNull(items[3]) {
		fallback := items[3].Value
		spec.Fallback = &fallback
	}
	d.Spec = spec
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// Specs converts declarations into specs, keeping their order.
func Specs(decls []Declaration) []Spec {
	specs := make([]Spec, len(decls))
	for i, d := range decls {
		specs[i] = d.Spec
	}
	return specs
}
