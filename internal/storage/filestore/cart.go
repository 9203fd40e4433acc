// Package filestore keeps cart records and uploaded images on the local
// filesystem.
package filestore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/cart"
)

var _ cart.Store = (*CartStore)(nil)

// CartStore writes one <session>.json file per cart session. Session ids
// must be UUIDs so they can never escape the directory.
type CartStore struct {
	dir string
}

// NewCartStore creates dir if needed and returns a store rooted there.
func NewCartStore(dir string) (*CartStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "create cart dir")
	}
	return &CartStore{dir: dir}, nil
}

func (s *CartStore) path(sessionID string) (string, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return "", errors.Wrapf(err, "session id %q", sessionID)
	}
	return filepath.Join(s.dir, id.String()+".json"), nil
}

// Load returns the stored record, or nil when the file does not exist.
func (s *CartStore) Load(_ context.Context, sessionID string) ([]byte, error) {
	p, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	return data, nil
}

// Save replaces the record atomically.
func (s *CartStore) Save(_ context.Context, sessionID string, data []byte) error {
	p, err := s.path(sessionID)
	if err != nil {
		return err
	}
	return writeAtomic(p, data)
}

// Delete removes the record. A missing file is not an error.
func (s *CartStore) Delete(_ context.Context, sessionID string) error {
	p, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove cart")
	}
	return nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "rename temp file")
	}
	return nil
}
