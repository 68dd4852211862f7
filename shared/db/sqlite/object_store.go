package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pontoumdigital/blogsync/blog/domain"
	"github.com/pontoumdigital/blogsync/shared/db"
)

var _ domain.ObjectStore = (*ObjectStore)(nil)

// ObjectStore implements domain.ObjectStore on the objects table. Versions are
// per-path revision counters; every change is also appended to object_history.
type ObjectStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewObjectStore creates an ObjectStore on a migrated database.
func NewObjectStore(db *sql.DB) *ObjectStore {
	return &ObjectStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

const getObjectQuery = `
	SELECT content, version FROM objects WHERE path = ?
`

// Read returns the object at path.
func (s *ObjectStore) Read(ctx context.Context, path string) (*domain.Object, error) {
	var (
		content []byte
		version int64
	)
	err := db.GetExecutor(ctx, s.db).QueryRowContext(ctx, getObjectQuery, path).Scan(&content, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to read %s: %w", path, err)
	}

	return &domain.Object{Path: path, Content: content, Version: formatVersion(version)}, nil
}

const insertObjectQuery = `
	INSERT INTO objects (path, content, version, updated_at)
	VALUES (?, ?, 1, ?)
	ON CONFLICT(path) DO NOTHING
`

const updateObjectQuery = `
	UPDATE objects
	SET content = ?, version = version + 1, updated_at = ?
	WHERE path = ? AND version = ?
`

const insertHistoryQuery = `
	INSERT INTO object_history (path, version, message, deleted, changed_at)
	VALUES (?, ?, ?, ?, ?)
`

// Write creates or conditionally updates the object at path.
func (s *ObjectStore) Write(ctx context.Context, path string, content []byte, version domain.Version, message string) (domain.Version, error) {
	if content == nil {
		content = []byte{}
	}

	var newVersion int64
	err := db.RunInTransaction(ctx, s.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, s.db)
		now := s.now()

		var (
			result sql.Result
			err    error
		)
		if version == "" {
			newVersion = 1
			result, err = executor.ExecContext(txCtx, insertObjectQuery, path, content, now)
		} else {
			expected, ok := parseVersion(version)
			if !ok {
				return s.rejected(txCtx, path, version, false)
			}
			newVersion = expected + 1
			result, err = executor.ExecContext(txCtx, updateObjectQuery, content, now, path, expected)
		}
		if err != nil {
			return fmt.Errorf("sqlite: failed to write %s: %w", path, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: failed to write %s: %w", path, err)
		}
		if affected == 0 {
			return s.rejected(txCtx, path, version, false)
		}

		if _, err := executor.ExecContext(txCtx, insertHistoryQuery, path, newVersion, message, 0, now); err != nil {
			return fmt.Errorf("sqlite: failed to record history for %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return formatVersion(newVersion), nil
}

const deleteObjectQuery = `
	DELETE FROM objects WHERE path = ? AND version = ?
`

// Delete removes the object at path if it is still at version.
func (s *ObjectStore) Delete(ctx context.Context, path string, version domain.Version, message string) error {
	return db.RunInTransaction(ctx, s.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, s.db)

		expected, ok := parseVersion(version)
		if !ok {
			return s.rejected(txCtx, path, version, true)
		}

		result, err := executor.ExecContext(txCtx, deleteObjectQuery, path, expected)
		if err != nil {
			return fmt.Errorf("sqlite: failed to delete %s: %w", path, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: failed to delete %s: %w", path, err)
		}
		if affected == 0 {
			return s.rejected(txCtx, path, version, true)
		}

		if _, err := executor.ExecContext(txCtx, insertHistoryQuery, path, expected, message, 1, s.now()); err != nil {
			return fmt.Errorf("sqlite: failed to record history for %s: %w", path, err)
		}
		return nil
	})
}

// HistoryEntry is one recorded change to a path.
type HistoryEntry struct {
	Version   domain.Version
	Message   string
	Deleted   bool
	ChangedAt time.Time
}

const listHistoryQuery = `
	SELECT version, message, deleted, changed_at
	FROM object_history
	WHERE path = ?
	ORDER BY id ASC
`

// History returns the changes recorded for path, oldest first.
func (s *ObjectStore) History(ctx context.Context, path string) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, listHistoryQuery, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list history for %s: %w", path, err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var (
			version int64
			entry   HistoryEntry
		)
		if err := rows.Scan(&version, &entry.Message, &entry.Deleted, &entry.ChangedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan history row: %w", err)
		}
		entry.Version = formatVersion(version)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating history rows: %w", err)
	}
	return entries, nil
}

// rejected builds the error for a change that matched no row. A missing object
// is ErrNotFound when missingIsNotFound is set and a conflict otherwise.
func (s *ObjectStore) rejected(ctx context.Context, path string, expected domain.Version, missingIsNotFound bool) error {
	current, err := s.Read(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		if missingIsNotFound {
			return err
		}
		return &domain.ConflictError{Path: path, Expected: expected}
	}
	if err != nil {
		return err
	}
	return &domain.ConflictError{Path: path, Expected: expected, Current: current.Version}
}

func formatVersion(v int64) domain.Version {
	return domain.Version(strconv.FormatInt(v, 10))
}

func parseVersion(v domain.Version) (int64, bool) {
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
