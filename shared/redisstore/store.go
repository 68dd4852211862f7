// Package redisstore keeps content objects in Redis hashes. Each hash holds the
// content and a revision counter; writes run in WATCH transactions.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pontoumdigital/blogsync/blog/domain"
	"github.com/redis/go-redis/v9"
)

var _ domain.ObjectStore = (*Store)(nil)

const (
	fieldContent = "content"
	fieldVersion = "version"
	fieldMessage = "message"
)

// DefaultPrefix namespaces keys when none is configured.
const DefaultPrefix = "blogsync:"

// Connect creates a Redis client and verifies the connection with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Store is a domain.ObjectStore on Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(path string) string {
	return s.prefix + path
}

func (s *Store) Read(ctx context.Context, path string) (*domain.Object, error) {
	values, err := s.client.HMGet(ctx, s.key(path), fieldContent, fieldVersion).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: reading %s: %w", path, err)
	}
	content, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("redis: %s: %w", path, domain.ErrNotFound)
	}
	version, _ := values[1].(string)

	return &domain.Object{Path: path, Content: []byte(content), Version: domain.Version(version)}, nil
}

func (s *Store) Write(ctx context.Context, path string, content []byte, version domain.Version, message string) (domain.Version, error) {
	key := s.key(path)
	var next domain.Version

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := currentVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != version {
			return &domain.ConflictError{Path: path, Expected: version, Current: current}
		}

		next = bump(current)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldContent, content, fieldVersion, string(next), fieldMessage, message)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return "", &domain.ConflictError{Path: path, Expected: version}
	}
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("redis: writing %s: %w", path, err)
	}
	return next, nil
}

func (s *Store) Delete(ctx context.Context, path string, version domain.Version, _ string) error {
	key := s.key(path)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := currentVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current == "" {
			return fmt.Errorf("redis: %s: %w", path, domain.ErrNotFound)
		}
		if current != version {
			return &domain.ConflictError{Path: path, Expected: version, Current: current}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return &domain.ConflictError{Path: path, Expected: version}
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotFound):
		return err
	default:
		return fmt.Errorf("redis: deleting %s: %w", path, err)
	}
}

func currentVersion(ctx context.Context, tx *redis.Tx, key string) (domain.Version, error) {
	v, err := tx.HGet(ctx, key, fieldVersion).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return domain.Version(v), nil
}

func bump(v domain.Version) domain.Version {
	n, _ := strconv.ParseInt(string(v), 10, 64)
	return domain.Version(strconv.FormatInt(n+1, 10))
}
