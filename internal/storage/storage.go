// Package storage uploads user images to object storage buckets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Buckets used by the API
const (
	BucketJournalPhotos = "journal-photos"
	BucketThreadImages  = "thread-images"
	BucketCheckins      = "checkins"
)

// ErrInvalidKey is returned for object keys that could escape the bucket
var ErrInvalidKey = errors.New("invalid object key")

// Uploader stores an object and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
}

// extensions maps accepted image content types to file extensions
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ExtensionFor returns the file extension for an accepted image type
func ExtensionFor(contentType string) (string, bool) {
	ext, ok := extensions[contentType]
	return ext, ok
}

// ObjectKey builds a unique per-user key such as "<user>/<uuid>.png"
func ObjectKey(userID, contentType string) (string, error) {
	ext, ok := ExtensionFor(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	if userID == "" || strings.ContainsAny(userID, "/\\") {
		return "", ErrInvalidKey
	}
	return userID + "/" + uuid.NewString() + ext, nil
}

// cleanKey rejects absolute keys and parent references
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func validBucket(bucket string) bool {
	return bucket != "" && !strings.ContainsAny(bucket, "/\\.")
}
