package lbph

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Save writes the model as YAML.
func (m *Model) Save(w io.Writer) error {
	if m == nil || len(m.Histograms) == 0 {
		return ErrNotTrained
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("lbph: encode model: %w", err)
	}
	return enc.Close()
}

// Load reads a model written by Save.
func Load(r io.Reader) (*Model, error) {
	var m Model
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("lbph: decode model: %w", err)
	}
	if len(m.Histograms) == 0 {
		return nil, ErrNotTrained
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
