package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sigtrap/shaderstrip/internal/variant"
)

// Invocation is one compiler callback: a shader pass and the variants about to be compiled.
type Invocation struct {
	Shader   variant.Shader   `json:"shader"`
	Pass     variant.PassType `json:"pass"`
	Variants variant.List     `json:"variants"`
}

// Validate reports the first structural problem, or nil.
func (inv *Invocation) Validate() error {
	if inv.Shader.GUID == "" {
		return fmt.Errorf("shader guid is required")
	}
	if inv.Variants == nil {
		return fmt.Errorf("variants are required")
	}
	return nil
}

// Manifest is the batch driver's input and output document.
type Manifest struct {
	Invocations []Invocation `json:"invocations"`
}

// ReadManifest decodes and validates a manifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	for i := range m.Invocations {
		if err := m.Invocations[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid manifest: invocation %d: %w", i, err)
		}
	}
	return &m, nil
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m, err := ReadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Encode writes m as indented JSON.
func (m *Manifest) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// WriteFile encodes m to path, creating the parent directory.
func (m *Manifest) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := m.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// StripAll runs every invocation of m through s, leaving only surviving
// variants. Invocations stripped to nothing stay in the manifest with an
// empty variant list.
func (s *Session) StripAll(m *Manifest) error {
	for i := range m.Invocations {
		inv := &m.Invocations[i]
		if err := s.Strip(inv.Shader, inv.Pass, &inv.Variants); err != nil {
			return fmt.Errorf("invocation %d: %w", i, err)
		}
	}
	return nil
}
