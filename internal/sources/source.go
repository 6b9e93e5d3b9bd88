package sources

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid source configuration")
)

// Action is the closed set of form step kinds.
type Action int

const (
	ActionType Action = iota + 1
	ActionClick
	ActionWait
)

func (a Action) String() string {
	switch a {
	case ActionType:
		return "type"
	case ActionClick:
		return "click"
	case ActionWait:
		return "wait"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "type":
		return ActionType, nil
	case "click":
		return ActionClick, nil
	case "wait":
		return ActionWait, nil
	default:
		return 0, fmt.Errorf("%w: unknown form action %q", ErrInvalidConfig, s)
	}
}

// MarshalText makes Action serialise as its name in both JSON and YAML.
func (a Action) MarshalText() ([]byte, error) {
	switch a {
	case ActionType, ActionClick, ActionWait:
		return []byte(a.String()), nil
	default:
		return nil, fmt.Errorf("%w: unknown form action %d", ErrInvalidConfig, int(a))
	}
}

func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

type FormStep struct {
	Action   Action `json:"action" yaml:"action"`
	Selector string `json:"selector" yaml:"selector"`
	ValueKey string `json:"value_key,omitempty" yaml:"value_key,omitempty"`
}

// Selector keys understood by the rate extractor.
const (
	SelectorRate      = "rate"
	SelectorAPR       = "apr"
	SelectorPoints    = "points"
	SelectorTimestamp = "timestamp"
)

// SourceConfig describes how to scrape one source.
type SourceConfig struct {
	Name         string            `json:"-" yaml:"-"`
	URL          string            `json:"url" yaml:"url"`
	RequiresForm bool              `json:"requires_form" yaml:"requires_form"`
	FormSequence []FormStep        `json:"form_sequence,omitempty" yaml:"form_sequence,omitempty"`
	FormFields   map[string]string `json:"form_fields,omitempty" yaml:"form_fields,omitempty"`
	Selectors    map[string]string `json:"selectors" yaml:"selectors"`
}

func (c *SourceConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}

	if !c.RequiresForm {
		return nil
	}

	if len(c.FormSequence) == 0 {
		return fmt.Errorf("%w: requires_form is set but form_sequence is empty", ErrInvalidConfig)
	}

	for i, step := range c.FormSequence {
		if step.Selector == "" {
			return fmt.Errorf("%w: step %d (%s) has no selector", ErrInvalidConfig, i, step.Action)
		}

		switch step.Action {
		case ActionType:
			if step.ValueKey == "" {
				return fmt.Errorf("%w: step %d (type) has no value_key", ErrInvalidConfig, i)
			}
			if _, ok := c.FormFields[step.ValueKey]; !ok {
				return fmt.Errorf("%w: step %d references unknown form field %q", ErrInvalidConfig, i, step.ValueKey)
			}
		case ActionClick, ActionWait:
		default:
			return fmt.Errorf("%w: step %d has unknown action %d", ErrInvalidConfig, i, int(step.Action))
		}
	}

	return nil
}
