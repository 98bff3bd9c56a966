package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"telegram-medication-report/internal/models"
)

// FileStore keeps the document as a single JSON file.
type FileStore struct {
	path      string
	legacyKey string
	mu        sync.Mutex
}

func NewFileStore(path, legacyKey string) *FileStore {
	return &FileStore{path: path, legacyKey: legacyKey}
}

func (f *FileStore) Load(ctx context.Context) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStore) read() (*models.Document, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	doc, _, err := Upgrade(b, f.legacyKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	return doc, nil
}

// Save writes through a temp file and rename so a crash never leaves a torn document.
func (f *FileStore) Save(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.read()
	if err != nil {
		return err
	}
	if current.Version != doc.Version {
		return ErrConflict
	}

	next := *doc
	next.Version = doc.Version + 1
	b, err := encode(&next)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".medication-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}

	doc.Version = next.Version
	return nil
}
