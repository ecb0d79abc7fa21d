// Package source provides the data layer behind the viewer: where datasets
// are loaded from and where entity updates and deletions are persisted.
package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/store"
)

// ErrNotFound is returned when a mutation names an unknown entity.
var ErrNotFound = store.ErrNotFound

// ErrReadOnly is returned by sources that cannot persist mutations.
var ErrReadOnly = errors.New("source is read-only")

// Source loads datasets and persists entity mutations. Callers always reload
// after a successful mutation; sources never patch a loaded dataset in place.
type Source interface {
	Load(ctx context.Context) (model.Dataset, error)
	UpdateEntity(ctx context.Context, id string, patch model.EntityPatch) (model.Entity, error)
	DeleteEntity(ctx context.Context, id string) error
	DeleteEntities(ctx context.Context, ids []string) (int, error)
}

// Describer is implemented by sources that can name themselves for status
// lines and logs.
type Describer interface {
	Describe() string
}

// Describe returns a short human-readable name for src.
func Describe(src Source) string {
	if d, ok := src.(Describer); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T", src)
}

// LoadOrFallback loads from src and substitutes the built-in dataset when the
// load fails, so the view is never empty. The load error is returned
// alongside the fallback for the caller to report.
func LoadOrFallback(ctx context.Context, src Source) (ds model.Dataset, fallback bool, err error) {
	if src == nil {
		return model.Fallback(), true, errors.New("no data source configured")
	}
	ds, err = src.Load(ctx)
	if err != nil {
		log.Printf("source: load from %s failed, using fallback dataset: %v", Describe(src), err)
		return model.Fallback(), true, err
	}
	return ds, false, nil
}

// Memory is an in-process source. It is what the viewer uses when no
// persistent backend is configured, and a convenient fake in tests.
type Memory struct {
	mu sync.Mutex
	ds model.Dataset
}

// NewMemory creates a memory source holding a copy of ds.
func NewMemory(ds model.Dataset) *Memory {
	return &Memory{ds: ds.Clone()}
}

func (m *Memory) Describe() string { return "memory" }

func (m *Memory) Load(ctx context.Context) (model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return model.Dataset{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ds.Clone(), nil
}

func (m *Memory) UpdateEntity(ctx context.Context, id string, patch model.EntityPatch) (model.Entity, error) {
	if err := patch.Validate(); err != nil {
		return model.Entity{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.ds.Entities {
		if m.ds.Entities[i].ID == id {
			m.ds.Entities[i] = patch.Apply(m.ds.Entities[i])
			return m.ds.Entities[i], nil
		}
	}
	return model.Entity{}, fmt.Errorf("entity %s: %w", id, ErrNotFound)
}

func (m *Memory) DeleteEntity(ctx context.Context, id string) error {
	n, err := m.DeleteEntities(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	return nil
}

func (m *Memory) DeleteEntities(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.ds.Entities)
	m.ds.Entities = removeEntities(m.ds.Entities, ids)
	return before - len(m.ds.Entities), nil
}

// removeEntities drops the listed IDs. Relations are untouched.
func removeEntities(ents []model.Entity, ids []string) []model.Entity {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return slices.DeleteFunc(ents, func(e model.Entity) bool { return drop[e.ID] })
}
