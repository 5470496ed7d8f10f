package project

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store exposes the baseline ministry table.
type Store interface {
	FiscalYear() string
	List() []Ministry
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	fiscalYear string
	items      []Ministry
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied ministries.
func NewMemoryStore(fiscalYear string, items []Ministry) *MemoryStore {
	return &MemoryStore{fiscalYear: fiscalYear, items: append([]Ministry(nil), items...)}
}

// FiscalYear returns the label of the baseline.
func (s *MemoryStore) FiscalYear() string {
	return s.fiscalYear
}

// List returns a copy of the baseline table.
func (s *MemoryStore) List() []Ministry {
	return append([]Ministry(nil), s.items...)
}

type baselineFile struct {
	FiscalYear string     `yaml:"fiscalYear"`
	Ministries []Ministry `yaml:"ministries"`
}

// LoadBaseline reads a YAML baseline table. An empty path yields the seed.
func LoadBaseline(path string) (*MemoryStore, error) {
	if strings.TrimSpace(path) == "" {
		return NewMemoryStore(SeedFiscalYear, Seed()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline %s: %w", path, err)
	}
	return ParseBaseline(data)
}

// ParseBaseline decodes a YAML baseline document.
func ParseBaseline(data []byte) (*MemoryStore, error) {
	var doc baselineFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode baseline: %w", err)
	}
	if len(doc.Ministries) == 0 {
		return nil, fmt.Errorf("baseline has no ministries")
	}

	seen := make(map[string]struct{}, len(doc.Ministries))
	for i, m := range doc.Ministries {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("baseline entry %d has no name", i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("baseline lists %q twice", name)
		}
		seen[key] = struct{}{}
		doc.Ministries[i].Name = name
	}

	fiscalYear := strings.TrimSpace(doc.FiscalYear)
	if fiscalYear == "" {
		fiscalYear = SeedFiscalYear
	}
	return NewMemoryStore(fiscalYear, doc.Ministries), nil
}
