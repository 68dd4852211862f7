package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pontoumdigital/blogsync/blog/domain"
)

// readJSON decodes the object at path into v. A missing object is reported as
// domain.ErrNotFound with v left untouched.
func readJSON(ctx context.Context, store domain.ObjectStore, path string, v any) (domain.Version, error) {
	obj, err := store.Read(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	if len(bytes.TrimSpace(obj.Content)) > 0 {
		if err := json.Unmarshal(obj.Content, v); err != nil {
			return "", fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	return obj.Version, nil
}

func writeJSON(ctx context.Context, store domain.ObjectStore, path string, v any, version domain.Version, message string) (domain.Version, error) {
	content, err := encodeJSON(v)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", path, err)
	}

	newVersion, err := store.Write(ctx, path, content, version, message)
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return newVersion, nil
}

// encodeJSON renders v the way the static site stores it: two-space indent,
// HTML left unescaped and a trailing newline.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
