package source

import (
	"context"

	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/store"
)

// Store serves datasets from a SQLite store.
type Store struct {
	st *store.Store
}

// NewStore wraps an open store. The caller keeps ownership of st.
func NewStore(st *store.Store) *Store {
	return &Store{st: st}
}

func (s *Store) Describe() string { return "sqlite " + s.st.Path() }

func (s *Store) Load(ctx context.Context) (model.Dataset, error) {
	return s.st.Dataset(ctx)
}

func (s *Store) UpdateEntity(ctx context.Context, id string, patch model.EntityPatch) (model.Entity, error) {
	return s.st.UpdateEntity(ctx, id, patch)
}

func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	return s.st.DeleteEntity(ctx, id)
}

func (s *Store) DeleteEntities(ctx context.Context, ids []string) (int, error) {
	return s.st.DeleteEntities(ctx, ids)
}
