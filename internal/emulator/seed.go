package emulator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Seed is the initial emulator state.
//
//	accounts:
//	  - email: ada@example.edu
//	    password: secret1
//	collections:
//	  events:
//	    - id: fair
//	      fields: {title: Fair, time: "10:00"}
type Seed struct {
	Accounts    []SeedAccount             `yaml:"accounts"`
	Collections map[string][]SeedDocument `yaml:"collections"`
}

// SeedAccount is an account created at startup. ID is optional.
type SeedAccount struct {
	ID       string `yaml:"id"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// SeedDocument is a document created at startup. ID is optional.
type SeedDocument struct {
	ID     string         `yaml:"id"`
	Fields map[string]any `yaml:"fields"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML. Unknown keys are rejected.
func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	return s, nil
}

// Apply loads s into e. Collections are created in sorted name order so
// ids generated for each are deterministic under a fixed generator.
func (e *Emulator) Apply(s Seed) error {
	for _, a := range s.Accounts {
		if _, err := e.createAccount(a.ID, a.Email, a.Password); err != nil {
			return fmt.Errorf("seed account %q: %w", a.Email, err)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(s.Collections)) {
		for _, d := range s.Collections[name] {
			if _, err := e.PutDocument(name, d.ID, d.Fields, nil); err != nil {
				return fmt.Errorf("seed %s/%s: %w", name, d.ID, err)
			}
		}
	}
	return nil
}
