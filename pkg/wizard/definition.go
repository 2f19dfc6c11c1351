// Package wizard sequences the quote steps: it validates each submission,
// merges it into the aggregate record, and projects the current position
// into a renderable view model.
package wizard

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-autoquote/pkg/validation"
)

//go:embed steps/quote.yaml
var defaultDefinition []byte

// Definition is the ordered list of steps a wizard walks through.
type Definition struct {
	Title string `yaml:"title" json:"title"`
	Done  Done   `yaml:"done" json:"done"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// Done is the terminal screen shown after the last step.
type Done struct {
	Title   string `yaml:"title" json:"title"`
	Message string `yaml:"message" json:"message"`
}

type Step struct {
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      []Field `yaml:"fields,omitempty" json:"fields,omitempty"`
	Groups      []Group `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// Group is a repeated fieldset whose item count is chosen by the user
// (CountField) or copied from another group's length (CountFrom).
type Group struct {
	Name       string  `yaml:"name" json:"name"`
	Label      string  `yaml:"label" json:"label"`
	CountField string  `yaml:"count_field,omitempty" json:"count_field,omitempty"`
	CountLabel string  `yaml:"count_label,omitempty" json:"count_label,omitempty"`
	CountFrom  string  `yaml:"count_from,omitempty" json:"count_from,omitempty"`
	Min        int     `yaml:"min,omitempty" json:"min,omitempty"`
	Max        int     `yaml:"max,omitempty" json:"max,omitempty"`
	Default    int     `yaml:"default,omitempty" json:"default,omitempty"`
	Prefill    string  `yaml:"prefill,omitempty" json:"prefill,omitempty"`
	Fields     []Field `yaml:"fields" json:"fields"`
}

// Field is a single input. Type is the widget; Kind is the decoded value
// type (string unless set).
type Field struct {
	Name        string   `yaml:"name" json:"name"`
	Label       string   `yaml:"label" json:"label"`
	Type        string   `yaml:"type" json:"type"`
	Kind        string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Required    bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Placeholder string   `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Pattern     string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Message     string   `yaml:"message,omitempty" json:"message,omitempty"`
	Options     []Option `yaml:"options,omitempty" json:"options,omitempty"`
	Min         *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	MinLength   int      `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength   int      `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	Cascade     string   `yaml:"cascade,omitempty" json:"cascade,omitempty"`
	Autofill    string   `yaml:"autofill,omitempty" json:"autofill,omitempty"`
}

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Group prefill sources.
const PrefillPrimary = "primary"

// DefaultDefinition returns the embedded five-step quote definition.
func DefaultDefinition() (Definition, error) {
	return LoadDefinition(defaultDefinition)
}

// MustDefaultDefinition is DefaultDefinition for package-level wiring; the
// embedded document is covered by tests.
func MustDefaultDefinition() Definition {
	def, err := DefaultDefinition()
	if err != nil {
		panic(err)
	}
	return def
}

// LoadDefinition parses and checks a YAML step definition.
func LoadDefinition(raw []byte) (Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("wizard: parse definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Validate checks that steps, groups and fields are uniquely named and that
// group counts are consistent.
func (d Definition) Validate() error {
	if len(d.Steps) == 0 {
		return errors.New("wizard: definition has no steps")
	}
	steps := make(map[string]struct{}, len(d.Steps))
	groups := make(map[string]struct{})
	for i, step := range d.Steps {
		id := strings.TrimSpace(step.ID)
		if id == "" {
			return fmt.Errorf("wizard: step %d has no id", i)
		}
		if _, dup := steps[id]; dup {
			return fmt.Errorf("wizard: duplicate step %q", id)
		}
		steps[id] = struct{}{}

		names := make(map[string]struct{})
		for _, field := range step.Fields {
			if err := checkField(step.ID, field, names); err != nil {
				return err
			}
		}
		for _, group := range step.Groups {
			if group.Name == "" {
				return fmt.Errorf("wizard: step %q has an unnamed group", step.ID)
			}
			if _, dup := names[group.Name]; dup {
				return fmt.Errorf("wizard: step %q: duplicate name %q", step.ID, group.Name)
			}
			names[group.Name] = struct{}{}
			if group.CountFrom == "" && group.CountField == "" {
				return fmt.Errorf("wizard: group %q needs count_field or count_from", group.Name)
			}
			if group.CountFrom != "" {
				if _, ok := groups[group.CountFrom]; !ok {
					return fmt.Errorf("wizard: group %q counts from unknown earlier group %q", group.Name, group.CountFrom)
				}
			}
			if group.Max > 0 && group.Min > group.Max {
				return fmt.Errorf("wizard: group %q has min > max", group.Name)
			}
			if group.CountField != "" {
				if _, dup := names[group.CountField]; dup {
					return fmt.Errorf("wizard: step %q: duplicate name %q", step.ID, group.CountField)
				}
				names[group.CountField] = struct{}{}
			}
			itemNames := make(map[string]struct{})
			for _, field := range group.Fields {
				if err := checkField(step.ID, field, itemNames); err != nil {
					return err
				}
			}
			groups[group.Name] = struct{}{}
		}
	}
	return nil
}

func checkField(step string, field Field, seen map[string]struct{}) error {
	name := strings.TrimSpace(field.Name)
	if name == "" {
		return fmt.Errorf("wizard: step %q has an unnamed field", step)
	}
	if strings.Contains(name, ".") {
		return fmt.Errorf("wizard: field %q: names cannot contain dots", name)
	}
	if _, dup := seen[name]; dup {
		return fmt.Errorf("wizard: step %q: duplicate name %q", step, name)
	}
	seen[name] = struct{}{}
	switch validation.Kind(field.Kind) {
	case "", validation.KindString, validation.KindInteger, validation.KindNumber, validation.KindBoolean:
	default:
		return fmt.Errorf("wizard: field %q has unknown kind %q", name, field.Kind)
	}
	return nil
}

// Rule converts the field's constraints into a validation rule.
func (f Field) Rule() validation.Rule {
	kind := validation.Kind(f.Kind)
	if kind == "" {
		kind = validation.KindString
	}
	var enum []string
	for _, option := range f.Options {
		enum = append(enum, option.Value)
	}
	return validation.Rule{
		Kind:      kind,
		Required:  f.Required,
		Pattern:   f.Pattern,
		Message:   f.Message,
		Enum:      enum,
		Min:       f.Min,
		Max:       f.Max,
		MinLength: f.MinLength,
		MaxLength: f.MaxLength,
	}
}

// Step returns the step at index.
func (d Definition) Step(index int) (Step, bool) {
	if index < 0 || index >= len(d.Steps) {
		return Step{}, false
	}
	return d.Steps[index], true
}

// Group returns the group named name within step.
func (s Step) Group(name string) (Group, bool) {
	for _, group := range s.Groups {
		if group.Name == name {
			return group, true
		}
	}
	return Group{}, false
}

// ItemPath is the dotted form name of field inside item index of group.
func ItemPath(group string, index int, field string) string {
	return fmt.Sprintf("%s.%d.%s", group, index, field)
}
