package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DisplayModePath is the option path the panel reads its mode from.
const DisplayModePath = "displayMode"

// Display mode values accepted by the panel.
const (
	ModeSelect            = "select"
	ModeButton            = "button"
	ModeCollapsibleButton = "collapsible-button"
)

// Choice is one selectable value of an option.
type Choice struct {
	Value       string `json:"value" yaml:"value"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Option describes one entry of the panel's options editor.
//
// The shape mirrors what the host's options builder expects for a radio
// option so the same definition can be exported to the host unchanged.
type Option struct {
	Path         string   `json:"path" yaml:"path"`
	Name         string   `json:"name" yaml:"name"`
	Kind         string   `json:"kind" yaml:"kind"`
	DefaultValue string   `json:"defaultValue" yaml:"defaultValue"`
	Choices      []Choice `json:"choices" yaml:"choices"`
}

// PanelOptions returns the panel's options schema.
func PanelOptions() []Option {
	return []Option{
		{
			Path:         DisplayModePath,
			Name:         "Display mode",
			Kind:         "radio",
			DefaultValue: ModeSelect,
			Choices: []Choice{
				{Value: ModeSelect, Label: "Select", Description: "A searchable dropdown menu"},
				{Value: ModeButton, Label: "Button", Description: "Individual buttons"},
				{
					Value:       ModeCollapsibleButton,
					Label:       "Collapsible Button",
					Description: "Buttons that collapse into an overflow menu when they no longer fit in the container",
				},
			},
		},
	}
}

// Normalized returns a trimmed copy of the option.
func (o Option) Normalized() Option {
	clone := Option{
		Path:         strings.TrimSpace(o.Path),
		Name:         strings.TrimSpace(o.Name),
		Kind:         strings.ToLower(strings.TrimSpace(o.Kind)),
		DefaultValue: strings.TrimSpace(o.DefaultValue),
	}
	if len(o.Choices) > 0 {
		clone.Choices = make([]Choice, len(o.Choices))
		for i, choice := range o.Choices {
			clone.Choices[i] = Choice{
				Value:       strings.TrimSpace(choice.Value),
				Label:       strings.TrimSpace(choice.Label),
				Description: strings.TrimSpace(choice.Description),
			}
		}
	}
	return clone
}

// Validate ensures the option is well-formed and its default is one of its choices.
func (o Option) Validate() error {
	normalized := o.Normalized()
	if normalized.Path == "" {
		return fmt.Errorf("schema: path is required")
	}
	if normalized.Name == "" {
		return fmt.Errorf("schema %s: name is required", normalized.Path)
	}
	if normalized.Kind != "radio" {
		return fmt.Errorf("schema %s: unsupported kind %q", normalized.Path, normalized.Kind)
	}
	if len(normalized.Choices) == 0 {
		return fmt.Errorf("schema %s: at least one choice is required", normalized.Path)
	}
	seen := map[string]struct{}{}
	for i, choice := range normalized.Choices {
		if choice.Value == "" {
			return fmt.Errorf("schema %s: choices[%d]: value is required", normalized.Path, i)
		}
		if _, dup := seen[choice.Value]; dup {
			return fmt.Errorf("schema %s: duplicate choice %q", normalized.Path, choice.Value)
		}
		seen[choice.Value] = struct{}{}
	}
	if _, ok := seen[normalized.DefaultValue]; !ok {
		return fmt.Errorf("schema %s: default %q is not a choice", normalized.Path, normalized.DefaultValue)
	}
	return nil
}

// Has reports whether value is one of the option's choices.
func (o Option) Has(value string) bool {
	value = strings.TrimSpace(value)
	for _, choice := range o.Choices {
		if choice.Value == value {
			return true
		}
	}
	return false
}

// DisplayModeOption returns the display mode option.
func DisplayModeOption() Option {
	return PanelOptions()[0]
}

// Marshal renders the options schema as YAML.
func Marshal(options []Option) ([]byte, error) {
	data, err := yaml.Marshal(map[string][]Option{"options": options})
	if err != nil {
		return nil, fmt.Errorf("schema: encode: %w", err)
	}
	return data, nil
}
