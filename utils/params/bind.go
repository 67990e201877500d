package params

import "fmt"

// MissingArgumentError is returned when a required parameter has no value.
type MissingArgumentError struct {
	Param Spec
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing required argument %s", e.Param.Usage())
}

// Bound holds the arguments of one command invocation.
type Bound struct {
	values   map[string]string
	order    []string
	Overflow []string // positional arguments beyond the declared parameters
}

// Get returns the value bound to name and whether one was bound.
func (b *Bound) Get(name string) (string, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Value returns the value bound to name, or "" when absent.
func (b *Bound) Value(name string) string {
	return b.values[name]
}

// Names returns the bound parameter names in declaration order.
func (b *Bound) Names() []string {
	return append([]string(nil), b.order...)
}

// Len reports the number of bound parameters.
func (b *Bound) Len() int {
	return len(b.order)
}

// Bind matches raw arguments to specs by position. Absent and empty values
// take the parameter's fallback unless the parameter is required, in which
// case binding fails with *MissingArgumentError. Options are not enforced.
func Bind(specs []Spec, raw []string) (*Bound, error) {
	b := &Bound{values: make(map[string]string, len(specs))}

	for i, spec := range specs {
		var value string
		if i < len(raw) {
			value = raw[i]
		}

		if value == "" {
			if spec.Required {
				return nil, &MissingArgumentError{Param: spec}
			}
			if spec.Fallback == nil {
				continue
			}
			value = *spec.Fallback
		}

		b.values[spec.Name] = value
		b.order = append(b.order, spec.Name)
	}

	if len(raw) > len(specs) {
		b.Overflow = append([]string(nil), raw[len(specs):]...)
	}
	return b, nil
}
