package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"crowdfundr/sdk"
)

// Memory is an in-process State. With a snapshot path every Apply rewrites the file so a
// restart picks up where the last run stopped.
type Memory struct {
	mu       sync.RWMutex
	db       map[string]string
	filename string
}

func NewMemory() *Memory {
	return &Memory{db: make(map[string]string)}
}

// OpenMemory loads filename if it exists and keeps writing snapshots to it.
func OpenMemory(filename string) (*Memory, error) {
	m := NewMemory()
	m.filename = filename
	if err := m.loadFromFile(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.db[key]
	return val, ok, nil
}

// Apply writes the batch under one lock. A failed snapshot write restores the previous map.
func (m *Memory) Apply(_ context.Context, muts []sdk.Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var prev map[string]string
	if m.filename != "" {
		prev = cloneMap(m.db)
	}
	for _, mut := range muts {
		if mut.Delete {
			delete(m.db, mut.Key)
			continue
		}
		m.db[mut.Key] = mut.Value
	}
	if m.filename == "" {
		return nil
	}
	if err := m.saveToFile(); err != nil {
		m.db = prev
		return err
	}
	return nil
}

// Dump returns a copy of every entry.
func (m *Memory) Dump() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneMap(m.db)
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// saveToFile writes the full map as JSON with hex keys and values, keys are binary.
func (m *Memory) saveToFile() error {
	out := make(map[string]string, len(m.db))
	for k, v := range m.db {
		out[hex.EncodeToString([]byte(k))] = hex.EncodeToString([]byte(v))
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := m.filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, m.filename)
}

func (m *Memory) loadFromFile() error {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // first run
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	var in map[string]string
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	for hk, hv := range in {
		k, err := hex.DecodeString(hk)
		if err != nil {
			return fmt.Errorf("decode snapshot key %q: %w", hk, err)
		}
		v, err := hex.DecodeString(hv)
		if err != nil {
			return fmt.Errorf("decode snapshot value for %q: %w", hk, err)
		}
		m.db[string(k)] = string(v)
	}
	return nil
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
