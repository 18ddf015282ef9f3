package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

type UnitDef struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Archetype      string   `yaml:"archetype" json:"archetype"` // melee | ranged
	MaxHP          int      `yaml:"max_hp" json:"max_hp"`
	Power          int      `yaml:"power" json:"power"`
	Range          int      `yaml:"range" json:"range"`
	Cooldown       Duration `yaml:"cooldown" json:"cooldown"`
	Taunt          bool     `yaml:"taunt" json:"taunt"`
	InvisibleTicks int      `yaml:"invisible_ticks" json:"invisible_ticks"`
	Note           string   `yaml:"note" json:"note,omitempty"`
}

// Duration reads "500ms" style strings from both YAML and JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration: %w", n.Line, err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v))
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }
