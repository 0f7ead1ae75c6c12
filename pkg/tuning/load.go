package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes YAML (or JSON, which is valid YAML) over DefaultConfig,
// so a file only needs the values it changes.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	cfg.Version = 0

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("tuning: invalid YAML: %w", err)
	}

	switch cfg.Version {
	case 0:
		cfg.Version = SchemaVersion
	case SchemaVersion:
	default:
		return Config{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, cfg.Version, SchemaVersion)
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return cfg, nil
}

// Load reads a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("tuning: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("tuning: %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Save writes the configuration as YAML.
func Save(path string, cfg Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("tuning: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("tuning: write %s: %w", path, err)
	}
	return nil
}
