package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type localStore struct {
	root string
}

func (s *localStore) List(_ context.Context, namePrefix string) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}
	out := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), namePrefix) {
			continue
		}
		out = append(out, filepath.Join(s.root, e.Name()))
	}
	return out, nil
}

func (s *localStore) Read(_ context.Context, location string) ([]byte, error) {
	b, err := os.ReadFile(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", location, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return b, nil
}

func (s *localStore) Write(_ context.Context, location string, content []byte) error {
	if err := os.WriteFile(location, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", location, err)
	}
	return nil
}
