package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects on disk under root/<bucket>/<key>
type Local struct {
	root      string
	publicURL string
}

// NewLocal creates the root directory if needed
func NewLocal(root, publicURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Local{root: root, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

// Root returns the directory objects are written to
func (l *Local) Root() string {
	return l.root
}

// Upload writes body to disk and returns its public URL
func (l *Local) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	if !validBucket(bucket) {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(l.root, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to store object: %w", err)
	}

	return l.publicURL + "/" + bucket + "/" + key, nil
}
