package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/eventimport/internal/core"
)

// Memory keeps events in process. Stored values are cloned on the way in and
// out so callers never share slices with the store.
type Memory struct {
	mu      sync.RWMutex
	events  map[string]core.Event
	imports map[string][]core.ImportRecord
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		events:  make(map[string]core.Event),
		imports: make(map[string][]core.ImportRecord),
	}
}

// Seed stores events as they are.
func (m *Memory) Seed(events ...core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		m.events[e.ID] = e.Clone()
	}
}

func (m *Memory) GetEvent(ctx context.Context, id string) (core.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return core.Event{}, fmt.Errorf("%w: %s", core.ErrEventNotFound, id)
	}
	return e.Clone(), nil
}

// SaveEvent replaces the stored event if e is at the stored version.
func (m *Memory) SaveEvent(ctx context.Context, e core.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.events[e.ID]; ok && stored.Version != e.Version {
		return fmt.Errorf("%w: %s is at version %d, got %d", core.ErrStaleEvent, e.ID, stored.Version, e.Version)
	}
	saved := e.Clone()
	saved.Version++
	m.events[e.ID] = saved
	return nil
}

func (m *Memory) RecordImport(ctx context.Context, rec core.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[rec.EventID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrEventNotFound, rec.EventID)
	}
	m.imports[rec.EventID] = append(m.imports[rec.EventID], rec)
	return nil
}

// ListImports returns records newest first.
func (m *Memory) ListImports(ctx context.Context, eventID string) ([]core.ImportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]core.ImportRecord(nil), m.imports[eventID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CommittedAt.After(out[j].CommittedAt)
	})
	return out, nil
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error { return nil }
