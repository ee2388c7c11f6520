package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed data/conditions.yaml
var defaultData []byte

// document is the on-disk layout of a knowledge base file
type document struct {
	Synonyms   []SynonymGroup `yaml:"synonyms"`
	Conditions []Condition    `yaml:"conditions"`
}

// Load reads a knowledge base from a YAML file.
// An empty path loads the bundled default knowledge base.
func Load(path string) (*Base, error) {
	if path == "" {
		return Default()
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return Parse(content)
}

// Default returns the bundled Portuguese knowledge base
func Default() (*Base, error) {
	return Parse(defaultData)
}

// Parse decodes and validates a YAML knowledge base document
func Parse(content []byte) (*Base, error) {
	var doc document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}

	base, err := New(doc.Conditions, doc.Synonyms)
	if err != nil {
		return nil, fmt.Errorf("validate knowledge base: %w", err)
	}
	return base, nil
}
