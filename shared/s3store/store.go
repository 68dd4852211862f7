// Package s3store keeps content objects in an S3-compatible bucket, using
// ETags with conditional requests for optimistic concurrency.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pontoumdigital/blogsync/blog/domain"
)

var _ domain.ObjectStore = (*Store)(nil)

// Config describes the bucket to use. Endpoint is only needed for non-AWS providers.
type Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Prefix       string
	UsePathStyle bool
}

// Store is a domain.ObjectStore on one bucket. Versions are ETags.
type Store struct {
	s3     *s3.Client
	bucket string
	prefix string
}

// New creates a Store with static credentials.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3store: bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3store: access key and secret key are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(strings.TrimRight(cfg.Endpoint, "/"))
	}

	return &Store{
		s3:     s3.New(opts),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *Store) key(p string) string {
	if s.prefix == "" {
		return strings.TrimPrefix(p, "/")
	}
	return path.Join(s.prefix, p)
}

func (s *Store) Read(ctx context.Context, p string) (*domain.Object, error) {
	key := s.key(p)
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body %s/%s: %w", s.bucket, key, err)
	}

	return &domain.Object{Path: p, Content: content, Version: domain.Version(aws.ToString(out.ETag))}, nil
}

// Write uses If-None-Match for creates and If-Match for updates.
func (s *Store) Write(ctx context.Context, p string, content []byte, version domain.Version, _ string) (domain.Version, error) {
	key := s.key(p)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String("application/json"),
	}
	if version == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(string(version))
	}

	out, err := s.s3.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailure(err) || (version != "" && isNotFound(err)) {
			return "", &domain.ConflictError{Path: p, Expected: version}
		}
		return "", fmt.Errorf("s3 upload %s/%s: %w", s.bucket, key, err)
	}
	return domain.Version(aws.ToString(out.ETag)), nil
}

func (s *Store) Delete(ctx context.Context, p string, version domain.Version, _ string) error {
	key := s.key(p)
	_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:  aws.String(s.bucket),
		Key:     aws.String(key),
		IfMatch: aws.String(string(version)),
	})
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("s3 delete %s/%s: %w", s.bucket, key, domain.ErrNotFound)
	}
	if isPreconditionFailure(err) {
		if _, headErr := s.s3.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); isNotFound(headErr) {
			return fmt.Errorf("s3 delete %s/%s: %w", s.bucket, key, domain.ErrNotFound)
		}
		return &domain.ConflictError{Path: p, Expected: version}
	}
	return fmt.Errorf("s3 delete %s/%s: %w", s.bucket, key, err)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// isPreconditionFailure covers 412 PreconditionFailed and the 409 S3 returns
// when two conditional writes race.
func isPreconditionFailure(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
