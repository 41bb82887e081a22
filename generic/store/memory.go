// Package store provides TableSource implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/copd-rates/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	tables map[string]*generic.Table
}

func NewMemory(tables ...*generic.Table) *Memory {
	m := &Memory{tables: make(map[string]*generic.Table)}
	for _, t := range tables {
		m.putLocked(t)
	}
	return m
}

// Put stores a copy of t under t.Name, replacing any previous table.
func (m *Memory) Put(t *generic.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(t)
}

func (m *Memory) putLocked(t *generic.Table) {
	m.tables[t.Name] = t.Clone()
}

// SaveTable implements generic.TableWriter.
func (m *Memory) SaveTable(_ context.Context, t *generic.Table) error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	m.Put(t)
	return nil
}

// Table returns a copy so callers cannot alter stored rows.
func (m *Memory) Table(_ context.Context, name string) (*generic.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", generic.ErrTableNotFound, name)
	}
	return t.Clone(), nil
}

func (m *Memory) Names(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.tables))
	for n := range m.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Compile-time interface checks
var (
	_ generic.TableSource = (*Memory)(nil)
	_ generic.TableLister = (*Memory)(nil)
	_ generic.TableWriter = (*Memory)(nil)
)
