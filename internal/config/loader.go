package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return decodeYAML(b, out)
}

func decodeYAML(b []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// Load reads an arena file, fills defaults and validates it.
func Load(path string) (*Arena, error) {
	var a Arena
	if err := loadYAML(path, &a); err != nil {
		return nil, fmt.Errorf("load arena %s: %w", path, err)
	}
	if err := a.finish(); err != nil {
		return nil, fmt.Errorf("arena %s: %w", path, err)
	}
	return &a, nil
}

// Parse is Load for an in-memory document.
func Parse(b []byte) (*Arena, error) {
	var a Arena
	if len(bytes.TrimSpace(b)) > 0 {
		if err := decodeYAML(b, &a); err != nil {
			return nil, fmt.Errorf("parse arena: %w", err)
		}
	}
	if err := a.finish(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Arena) finish() error {
	a.ApplyDefaults()
	return a.Validate()
}
