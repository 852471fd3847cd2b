// Package storage abstracts where document bytes live. The core only ever
// asks for a document's bytes by its stored path, so local disk and remote
// object stores are interchangeable behind FileStore.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStore is the byte source for uploaded documents.
type FileStore interface {
	// Save writes content and returns the stored path used to load it back.
	Save(userID int64, filename string, content []byte) (string, error)
	// LoadBytes returns the raw bytes previously saved at path.
	LoadBytes(path string) ([]byte, error)
	// Delete removes the stored file. Missing files are not an error.
	Delete(path string) error
}

// DiskStore keeps uploads under root/user_<id>/. Stored names get a uuid
// prefix so two uploads of the same filename never collide; the original
// filename lives in the database row, not on disk.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Save(userID int64, filename string, content []byte) (string, error) {
	dir := filepath.Join(s.root, fmt.Sprintf("user_%d", userID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString()+"_"+filepath.Base(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *DiskStore) LoadBytes(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (s *DiskStore) Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
