package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configFile is the shape of a personas YAML config file:
//
//	personas:
//	  dev_dana:
//	    name: "Dana"
//	    interests: [...]
//	    needs: [...]
//	    goals: [...]
type configFile struct {
	Personas map[string]Persona `yaml:"personas"`
}

// LoadFile reads all personas from a YAML config file, keyed by their
// config name.
func LoadFile(path string) (map[string]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse personas file: %w", err)
	}
	if len(cfg.Personas) == 0 {
		return nil, fmt.Errorf("no personas defined in %s", path)
	}

	for key, p := range cfg.Personas {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("persona %q: %w", key, err)
		}
	}

	return cfg.Personas, nil
}

// LoadNamed reads a single persona by its config key.
func LoadNamed(path, key string) (Persona, error) {
	personas, err := LoadFile(path)
	if err != nil {
		return Persona{}, err
	}
	p, ok := personas[key]
	if !ok {
		return Persona{}, fmt.Errorf("persona %q not found in %s", key, path)
	}
	return p, nil
}
