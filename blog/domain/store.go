package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the object at a path does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrConflict is matched by every ConflictError.
	ErrConflict = errors.New("version conflict")
)

// Version identifies one stored revision of an object. The empty Version means "no object".
type Version string

// ConflictError reports a write or delete whose expected version no longer matches the stored one.
type ConflictError struct {
	Path     string
	Expected Version
	Current  Version
}

func (e *ConflictError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("version conflict on %s: object already exists", e.Path)
	}
	if e.Current == "" {
		return fmt.Sprintf("version conflict on %s: expected %s", e.Path, e.Expected)
	}
	return fmt.Sprintf("version conflict on %s: expected %s, found %s", e.Path, e.Expected, e.Current)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Object is the content of a stored path together with its version.
type Object struct {
	Path    string
	Content []byte
	Version Version
}

// ObjectStore is a path-addressed store with optimistic concurrency.
// Implementations talk to remote systems; every call may be slow or fail.
type ObjectStore interface {
	// Read returns ErrNotFound when nothing is stored at path.
	Read(ctx context.Context, path string) (*Object, error)

	// Write stores content at path. An empty version creates the object and fails with a
	// ConflictError if it already exists; otherwise version must match the stored one.
	// message describes the change for stores that keep history.
	Write(ctx context.Context, path string, content []byte, version Version, message string) (Version, error)

	// Delete removes the object at path if version still matches.
	Delete(ctx context.Context, path string, version Version, message string) error
}
