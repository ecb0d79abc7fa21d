package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/vanderheijden86/kgview/pkg/model"
)

// File reads a dataset from a JSON file and rewrites the file on mutation.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file source.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the dataset file path.
func (f *File) Path() string { return f.path }

func (f *File) Describe() string { return "file " + f.path }

// ReadDataset decodes a dataset file.
func ReadDataset(path string) (model.Dataset, error) {
	var ds model.Dataset
	data, err := os.ReadFile(path)
	if err != nil {
		return ds, fmt.Errorf("reading dataset: %w", err)
	}
	if err := json.Unmarshal(data, &ds); err != nil {
		return ds, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if err := ds.Validate(); err != nil {
		return ds, fmt.Errorf("invalid dataset %s: %w", path, err)
	}
	return ds, nil
}

// WriteDataset encodes ds to path through a temporary file and rename, so a
// concurrent reader never sees a partial file.
func WriteDataset(path string, ds model.Dataset) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".kgview-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing dataset: %w", err)
	}
	return nil
}

func (f *File) Load(ctx context.Context) (model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return model.Dataset{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return ReadDataset(f.path)
}

// mutate reads the file, applies fn and writes the result back.
func (f *File) mutate(ctx context.Context, fn func(*model.Dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, err := ReadDataset(f.path)
	if err != nil {
		return err
	}
	if err := fn(&ds); err != nil {
		return err
	}
	return WriteDataset(f.path, ds)
}

func (f *File) UpdateEntity(ctx context.Context, id string, patch model.EntityPatch) (model.Entity, error) {
	if err := patch.Validate(); err != nil {
		return model.Entity{}, err
	}
	var out model.Entity
	err := f.mutate(ctx, func(ds *model.Dataset) error {
		for i := range ds.Entities {
			if ds.Entities[i].ID == id {
				ds.Entities[i] = patch.Apply(ds.Entities[i])
				out = ds.Entities[i]
				return nil
			}
		}
		return fmt.Errorf("entity %s: %w", id, ErrNotFound)
	})
	return out, err
}

func (f *File) DeleteEntity(ctx context.Context, id string) error {
	return f.mutate(ctx, func(ds *model.Dataset) error {
		before := len(ds.Entities)
		ds.Entities = removeEntities(ds.Entities, []string{id})
		if len(ds.Entities) == before {
			return fmt.Errorf("entity %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (f *File) DeleteEntities(ctx context.Context, ids []string) (int, error) {
	var n int
	err := f.mutate(ctx, func(ds *model.Dataset) error {
		before := len(ds.Entities)
		ds.Entities = removeEntities(ds.Entities, ids)
		n = before - len(ds.Entities)
		return nil
	})
	return n, err
}
