package main

import (
	"context"
	"fmt"

	gogithub "github.com/google/go-github/v75/github"
	"github.com/pontoumdigital/blogsync/blog/domain"
	"github.com/pontoumdigital/blogsync/shared/config"
	"github.com/pontoumdigital/blogsync/shared/db/sqlite"
	"github.com/pontoumdigital/blogsync/shared/fsstore"
	"github.com/pontoumdigital/blogsync/shared/github"
	"github.com/pontoumdigital/blogsync/shared/redisstore"
	"github.com/pontoumdigital/blogsync/shared/s3store"
	"github.com/rs/zerolog"
)

func noopClose() error { return nil }

// openStore connects the configured backend. It returns a nil store, not an
// error, when the backend's credentials are missing.
func openStore(ctx context.Context, cfg *config.StoreConfig, log zerolog.Logger) (domain.ObjectStore, func() error, error) {
	if ok, missing := cfg.Configured(); !ok {
		log.Warn().Str("backend", cfg.Backend).Str("missing", missing).Msg("Content store is not configured, webhook events will be rejected")
		return nil, noopClose, nil
	}

	switch cfg.Backend {
	case config.BackendGitHub:
		store, err := openGitHub(ctx, &cfg.GitHub)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("repo", store.GetRepoFullName()).Str("branch", store.Branch()).Msg("Using GitHub content store")
		return store, noopClose, nil

	case config.BackendFilesystem:
		store, err := fsstore.New(cfg.Filesystem.Root)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("root", cfg.Filesystem.Root).Msg("Using filesystem content store")
		return store, noopClose, nil

	case config.BackendSQLite:
		database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: cfg.SQLite.Path})
		if err := database.Connect(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info().Str("path", cfg.SQLite.Path).Msg("Using SQLite content store")
		return sqlite.NewObjectStore(database.DB()), database.Close, nil

	case config.BackendS3:
		store, err := s3store.New(s3store.Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Str("prefix", cfg.S3.Prefix).Msg("Using S3 content store")
		return store, noopClose, nil

	case config.BackendRedis:
		client, err := redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis content store")
		return redisstore.New(client, cfg.Redis.Prefix), client.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func openGitHub(ctx context.Context, cfg *config.GitHubConfig) (*github.ContentsStore, error) {
	owner, repo, err := github.ParseRepo(cfg.Repo)
	if err != nil {
		return nil, err
	}
	client, err := github.NewClient(cfg.Token, cfg.APIURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	var committer *gogithub.CommitAuthor
	if cfg.CommitterName != "" && cfg.CommitterEmail != "" {
		committer = &gogithub.CommitAuthor{
			Name:  gogithub.Ptr(cfg.CommitterName),
			Email: gogithub.Ptr(cfg.CommitterEmail),
		}
	}

	branch := cfg.Branch
	if branch == "" {
		branch, err = github.NewContentsStore(client, owner, repo, "", nil).GetDefaultBranchName(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get default branch name: %w", err)
		}
	}
	return github.NewContentsStore(client, owner, repo, branch, committer), nil
}
