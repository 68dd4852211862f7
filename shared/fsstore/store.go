// Package fsstore stores objects as plain files under a root directory, which
// is how the blog content looks inside a checked-out site repository.
package fsstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pontoumdigital/blogsync/blog/domain"
)

var _ domain.ObjectStore = (*Store)(nil)

// Store is a domain.ObjectStore on the local filesystem. Versions are content
// hashes, so an edit made outside this process is still detected.
type Store struct {
	root string
	mu   sync.Mutex
}

func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("fsstore: root directory cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fsstore: resolving %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: creating %s: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

func (s *Store) Read(ctx context.Context, path string) (*domain.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	local, err := s.localPath(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(local)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("fsstore: %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fsstore: reading %s: %w", path, err)
	}

	return &domain.Object{Path: path, Content: content, Version: calculateHash(content)}, nil
}

func (s *Store) Write(ctx context.Context, path string, content []byte, version domain.Version, _ string) (domain.Version, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	local, err := s.localPath(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.currentVersion(local)
	if err != nil {
		return "", fmt.Errorf("fsstore: reading %s: %w", path, err)
	}
	if current != version {
		return "", &domain.ConflictError{Path: path, Expected: version, Current: current}
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("fsstore: creating directory for %s: %w", path, err)
	}
	if err := writeAtomic(local, content); err != nil {
		return "", fmt.Errorf("fsstore: writing %s: %w", path, err)
	}

	return calculateHash(content), nil
}

func (s *Store) Delete(ctx context.Context, path string, version domain.Version, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	local, err := s.localPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.currentVersion(local)
	if err != nil {
		return fmt.Errorf("fsstore: reading %s: %w", path, err)
	}
	if current == "" {
		return fmt.Errorf("fsstore: %s: %w", path, domain.ErrNotFound)
	}
	if current != version {
		return &domain.ConflictError{Path: path, Expected: version, Current: current}
	}

	if err := os.Remove(local); err != nil {
		return fmt.Errorf("fsstore: deleting %s: %w", path, err)
	}
	return nil
}

// localPath maps a store path to a file below root, rejecting anything that escapes it.
func (s *Store) localPath(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(path, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("fsstore: invalid path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *Store) currentVersion(local string) (domain.Version, error) {
	content, err := os.ReadFile(local)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return calculateHash(content), nil
}

func writeAtomic(local string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(local), ".blogsync-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), local)
}

// calculateHash returns the hex SHA-256 of content.
func calculateHash(content []byte) domain.Version {
	sum := sha256.Sum256(content)
	return domain.Version(hex.EncodeToString(sum[:]))
}
