package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Supabase uploads objects through the Supabase Storage REST API
type Supabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabase creates a Supabase storage client
func NewSupabase(baseURL, apiKey string, httpClient *http.Client) (*Supabase, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Supabase{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}, nil
}

// Upload stores body in bucket with upsert semantics and returns the public URL
func (s *Supabase) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	if !validBucket(bucket) {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	reqURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, key), nil
}
