// Package definition reads and writes project definition documents.
// Files are YAML on disk; the API accepts the same shape as JSON. Both
// funnel through one set of json tags, so a field rename cannot drift
// between the file format, the API body, and the stored column.
package definition

import (
	"encoding/json"
	"fmt"

	"github.com/fieldscale/takt/internal/project/domain"
	"github.com/fieldscale/takt/internal/shared/infrastructure/security"
	"github.com/goccy/go-yaml"
)

// Load reads and decodes a definition document from a YAML file. The
// path comes straight from a CLI flag, so it is validated first.
func Load(path string) (domain.Document, error) {
	data, err := security.SafeReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read definition: %w", err)
	}
	return Decode(data)
}

// Decode parses YAML bytes into a definition document.
func Decode(data []byte) (domain.Document, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}

	var doc domain.Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}
	return doc, nil
}

// Encode renders a definition document back to YAML, for round-trip
// inspection of stored projects.
func Encode(doc domain.Document) ([]byte, error) {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return yaml.JSONToYAML(jsonData)
}
