package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Agney-gt/sparklog-sub000/internal/metrics"
	"github.com/Agney-gt/sparklog-sub000/internal/storage"
)

// DefaultMaxUploadBytes is used when no upload limit is configured
const DefaultMaxUploadBytes = 10 << 20

// imageUploader reads the "image" part of a multipart request and stores it
type imageUploader struct {
	store    storage.Uploader
	maxBytes int64
}

func newImageUploader(store storage.Uploader, maxBytes int64) imageUploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return imageUploader{store: store, maxBytes: maxBytes}
}

// parseForm limits and parses the multipart body
func (u imageUploader) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes)
	if err := r.ParseMultipartForm(u.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalid("image", fmt.Sprintf("Image exceeds %d bytes", u.maxBytes))
		}
		return invalid("image", "Expected a multipart form with an image")
	}
	return nil
}

// save uploads the parsed "image" file into bucket under the user's prefix.
// parseForm must be called first.
func (u imageUploader) save(r *http.Request, bucket, userID string) (string, error) {
	file, _, err := r.FormFile("image")
	if err != nil {
		return "", invalid("image", "Image file is required")
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if n == 0 {
		return "", invalid("image", "Image file is empty")
	}
	contentType := http.DetectContentType(head[:n])

	key, err := storage.ObjectKey(userID, contentType)
	if err != nil {
		return "", invalid("image", "Unsupported image type "+contentType)
	}

	url, err := u.store.Upload(r.Context(), bucket, key, contentType, io.MultiReader(bytes.NewReader(head[:n]), file))
	metrics.RecordUpload(bucket, err == nil)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return url, nil
}
