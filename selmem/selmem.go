// Package selmem persists CSS selectors that actually matched response
// content, so later runs try proven selectors before the static catalog.
// The file is a plain JSON array, rewritten whole on every update.
package selmem

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Memory is a durable, ordered set of selector patterns. First-seen
// order is preserved so the earliest proven selector keeps priority.
type Memory struct {
	path string

	mu       sync.Mutex
	patterns []string
	index    map[string]struct{}
}

// Open loads the memory at path. A missing file yields an empty memory;
// an unreadable or malformed file does too, since selector memory is an
// optimization and never worth failing a harvest over.
func Open(path string) *Memory {
	m := &Memory{
		path:  path,
		index: make(map[string]struct{}),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	var stored []string
	if err := json.Unmarshal(data, &stored); err != nil {
		return m
	}
	for _, p := range stored {
		if p == "" {
			continue
		}
		if _, dup := m.index[p]; dup {
			continue
		}
		m.index[p] = struct{}{}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Patterns returns a copy of the remembered selectors in priority order.
func (m *Memory) Patterns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// Remember records a selector that produced accepted content and saves
// the file if the set changed.
func (m *Memory) Remember(selector string) error {
	if selector == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.index[selector]; dup {
		return nil
	}
	m.index[selector] = struct{}{}
	m.patterns = append(m.patterns, selector)
	return m.save()
}

// save rewrites the whole file. Caller holds the lock.
func (m *Memory) save() error {
	if m.path == "" {
		return nil
	}
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("selmem: create dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(m.patterns, "", "  ")
	if err != nil {
		return fmt.Errorf("selmem: encode: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("selmem: write: %w", err)
	}
	return nil
}
