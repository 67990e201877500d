// Package form collects field values interactively into a placeholder bag.
package form

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kris-hansen/runa/utils/params"
)

// Field is one value collected from the user.
type Field struct {
	Name        string `yaml:"name"`
	Prompt      string `yaml:"prompt"`
	Required    bool   `yaml:"required"`
	Transformer string `yaml:"transformer"`
}

// EffectiveTransformer returns the transformer template, defaulting to the
// raw answer itself.
func (f Field) EffectiveTransformer() string {
	if f.Transformer != "" {
		return f.Transformer
	}
	return "{{!" + f.Name + "}}"
}

// UnmarshalYAML accepts [name, prompt, transformer?] lists, where a leading
// "!" on the name marks the field required, as well as plain mappings.
func (f *Field) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		items := node.Content
		if len(items) < 2 || len(items) > 3 {
			return fmt.Errorf("line %d: field needs [name, prompt, transformer?], got %d entries", node.Line, len(items))
		}
		for _, item := range items {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: field entries must be strings", item.Line)
			}
		}
		spec := params.New(items[0].Value)
		f.Name = spec.Name
		f.Required = spec.Required
		f.Prompt = items[1].Value
		if len(items) == 3 && items[2].Tag != "!!null" {
			f.Transformer = items[2].Value
		}
		return nil
	case yaml.MappingNode:
		type plain Field
		return node.Decode((*plain)(f))
	default:
		return fmt.Errorf("line %d: field must be a list or a mapping", node.Line)
	}
}

// FileSpec maps an output path template to a template resource.
type FileSpec struct {
	Path     string
	Template string
}

// Definition describes a generator: the fields to collect and the files to
// render from them.
type Definition struct {
	Description string
	Fields      []Field
	Files       []FileSpec // document order
}

// UnmarshalYAML decodes a definition keeping the files mapping in order.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping node for form definition")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "description":
			if err := value.Decode(&d.Description); err != nil {
				return fmt.Errorf("failed to decode description: %w", err)
			}
		case "fields":
			if err := value.Decode(&d.Fields); err != nil {
				return fmt.Errorf("failed to decode fields: %w", err)
			}
		case "files":
			if value.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: files must map output paths to template names", value.Line)
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				d.Files = append(d.Files, FileSpec{
					Path:     value.Content[j].Value,
					Template: value.Content[j+1].Value,
				})
			}
		}
	}
	return nil
}

// Validate checks field names and file entries.
func (d *Definition) Validate() error {
	seen := make(map[string]bool, len(d.Fields))
	for i, f := range d.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("field %d has no name", i+1)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q declared twice", f.Name)
		}
		seen[f.Name] = true
	}
	for _, file := range d.Files {
		if file.Path == "" || file.Template == "" {
			return fmt.Errorf("file entry %q -> %q is incomplete", file.Path, file.Template)
		}
	}
	return nil
}

// Parse decodes a YAML or JSON form definition and validates it.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse form definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid form definition: %w", err)
	}
	return &def, nil
}
