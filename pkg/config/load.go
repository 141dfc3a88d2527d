package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads configuration overrides from a YAML file.
// The result is meant to be merged on top of the defaults, not used on its own.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration overrides
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Empty documents decode to a nil map
	if raw == nil {
		return Config{}, nil
	}

	return Config(cloneMap(raw)), nil
}

// Marshal encodes cfg as YAML
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(map[string]any(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}
