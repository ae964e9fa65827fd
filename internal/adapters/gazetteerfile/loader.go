// Package gazetteerfile loads gazetteer entries from YAML or JSON documents,
// including the dataset embedded in the binary.
package gazetteerfile

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

//go:embed default_gazetteer.yaml
var defaultGazetteer []byte

type document struct {
	Entries []domain.GazetteerEntry `yaml:"entries"`
}

// Source implements ports.GazetteerSource over a file or the embedded data.
type Source struct {
	path string
}

// New returns a Source reading path. JSON files work as well since YAML is
// a superset of JSON.
func New(path string) *Source {
	return &Source{path: path}
}

// Embedded returns a Source serving the built-in dataset.
func Embedded() *Source {
	return &Source{}
}

// Load reads and parses the entries.
func (s *Source) Load(ctx context.Context) ([]domain.GazetteerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := defaultGazetteer
	if s.path != "" {
		var err error
		data, err = os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("read gazetteer: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes a gazetteer document.
func Parse(data []byte) ([]domain.GazetteerEntry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("parse gazetteer: no entries")
	}
	return doc.Entries, nil
}
