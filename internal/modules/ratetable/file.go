package ratetable

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML snapshot and validates it.
func LoadFile(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate tables: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse rate tables: %w", err)
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// FileSource serves a snapshot loaded once from a YAML file.
type FileSource struct {
	snap *Snapshot
}

func NewFileSource(path string) (*FileSource, error) {
	snap, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{snap: snap}, nil
}

func (f *FileSource) Snapshot(_ context.Context) (*Snapshot, error) {
	return f.snap, nil
}
