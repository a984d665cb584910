package registry

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type manifest struct {
	Components map[string][]string `yaml:"components"`
}

// LoadYAML reads a manifest of the form
//
//	components:
//	  auth: [internal/auth, pkg/token.go]
//	  web:  ["web/**/*.ts"]
func LoadYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a Registry from manifest bytes.
func ParseYAML(data []byte) (*Registry, error) {
	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}

	names := make([]string, 0, len(m.Components))
	for name := range m.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make([]Component, 0, len(names))
	for _, name := range names {
		components = append(components, Component{Name: name, Paths: m.Components[name]})
	}
	return New(components)
}
