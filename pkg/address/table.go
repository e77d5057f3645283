// Package address resolves short location codes to canonical addresses and
// scores live autocomplete candidates.
package address

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry maps a set of short codes to one canonical address. Many codes may
// point at the same address; the reverse index is one-to-many.
type Entry struct {
	Codes   []string `yaml:"codes" json:"codes"`
	Address string   `yaml:"address" json:"address"`
}

// LoadTable reads a lookup table from a YAML or JSON file. YAML is a
// superset of JSON, so one decoder covers both formats.
//
// A missing file is not an error: resolution degrades to pass-through, so
// the tool still works with raw addresses in the workbook. The caller gets
// an empty table and should log the degradation.
func LoadTable(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read location table: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse location table %s: %w", path, err)
	}

	for i, e := range entries {
		if e.Address == "" {
			return nil, fmt.Errorf("location table %s: entry %d has no address", path, i)
		}
	}

	return entries, nil
}
