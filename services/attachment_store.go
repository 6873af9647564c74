package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// AttachmentStore holds the bytes of files attached to service orders
type AttachmentStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	// URL returns a link the client can download the file from
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ErrAttachmentNotFound is returned when a key has no stored file
var ErrAttachmentNotFound = errors.New("attachment not found")

// NewAttachmentKey generates a collision-free key under the order's prefix
func NewAttachmentKey(orderID, fileName string) string {
	return fmt.Sprintf("ordens/%s/%s_%s", orderID, uuid.NewString(), filepath.Base(fileName))
}

// LocalAttachmentStore writes files under a directory and serves them through the API
type LocalAttachmentStore struct {
	dir       string
	urlPrefix string
}

func NewLocalAttachmentStore(dir, urlPrefix string) *LocalAttachmentStore {
	return &LocalAttachmentStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

// Path resolves a key to a file inside the upload directory
func (s *LocalAttachmentStore) Path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", ErrAttachmentNotFound
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

func (s *LocalAttachmentStore) Put(_ context.Context, key, _ string, data []byte) error {
	fullPath, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *LocalAttachmentStore) URL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return fmt.Sprintf("%s/%s", s.urlPrefix, strings.TrimPrefix(key, "/")), nil
}

func (s *LocalAttachmentStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	fullPath, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// MemoryAttachmentStore keeps files in memory, for tests
type MemoryAttachmentStore struct {
	files map[string][]byte
	mu    sync.RWMutex
}

func NewMemoryAttachmentStore() *MemoryAttachmentStore {
	return &MemoryAttachmentStore{files: make(map[string][]byte)}
}

func (m *MemoryAttachmentStore) Put(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryAttachmentStore) URL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if !m.Exists(key) {
		return "", fmt.Errorf("%w: %s", ErrAttachmentNotFound, key)
	}
	return "memory://" + key, nil
}

func (m *MemoryAttachmentStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.files, key)
	m.mu.Unlock()
	return nil
}

// Exists checks if a file is stored
func (m *MemoryAttachmentStore) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[key]
	return ok
}

// Files returns a copy of everything stored
func (m *MemoryAttachmentStore) Files() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make(map[string][]byte, len(m.files))
	for k, v := range m.files {
		files[k] = v
	}
	return files
}
