package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is a YAML scenario file holding one or more definitions.
type File struct {
	// Version is the scenario file format version.
	Version string `yaml:"version,omitempty"`

	// Scenarios contains the definitions in this file.
	Scenarios []Definition `yaml:"scenarios"`
}

// LoadFile loads all scenario definitions from a YAML file. Both the
// multi-scenario format and a bare single definition are accepted.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, path)
		}
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err == nil && len(file.Scenarios) > 0 {
		for i := range file.Scenarios {
			if err := file.Scenarios[i].Validate(); err != nil {
				return nil, fmt.Errorf("scenario[%d]: %w", i, err)
			}
		}
		return file.Scenarios, nil
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return []Definition{def}, nil
}

// Registry manages the available scenarios: the built-in catalog plus any
// loaded from YAML files.
type Registry struct {
	scenarios map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scenarios: make(map[string]*Definition)}
}

// Register adds a scenario, replacing any existing one with the same name.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.scenarios[def.Name] = def
	return nil
}

// Get retrieves a scenario by name.
func (r *Registry) Get(name string) (*Definition, error) {
	if def, ok := r.scenarios[name]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, name)
}

// Names returns all registered scenario names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered scenarios in name order.
func (r *Registry) All() []*Definition {
	defs := make([]*Definition, 0, len(r.scenarios))
	for _, name := range r.Names() {
		defs = append(defs, r.scenarios[name])
	}
	return defs
}

// Count returns the number of registered scenarios.
func (r *Registry) Count() int {
	return len(r.scenarios)
}

// LoadDirectory registers every scenario found in .yaml/.yml files in dir.
// A missing directory is not an error: file-based scenarios are optional.
func (r *Registry) LoadDirectory(dir string) error {
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("accessing scenarios directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidScenario, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading scenarios directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		defs, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("loading %s: %w", entry.Name(), err)
		}
		for i := range defs {
			if err := r.Register(&defs[i]); err != nil {
				return fmt.Errorf("registering scenario from %s: %w", entry.Name(), err)
			}
		}
	}

	return nil
}
