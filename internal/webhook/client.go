// Package webhook talks to the third-party transcript service and relays
// transcripts to the automation webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Agney-gt/sparklog-sub000/internal/metrics"
)

// maxResponseBytes bounds how much of an upstream body is read
const maxResponseBytes = 5 << 20

var (
	// ErrNotConfigured is returned when an endpoint URL is missing
	ErrNotConfigured = errors.New("webhook endpoint not configured")
	// ErrUpstream wraps failures from the third-party services
	ErrUpstream = errors.New("upstream request failed")
	// ErrEmptyTranscript is returned when the upstream has no text for a video
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// Config configures the two endpoints
type Config struct {
	TranscriptURL string
	AutomationURL string
	APIKey        string
	Timeout       time.Duration
}

// Client calls the transcript API and the automation webhook
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Payload is the body relayed to the automation webhook
type Payload struct {
	UserID     string `json:"user_id"`
	VideoURL   string `json:"video_url"`
	Transcript string `json:"transcript"`
}

// NewClient creates a webhook client
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Enabled reports whether both endpoints are configured
func (c *Client) Enabled() bool {
	return c.cfg.TranscriptURL != "" && c.cfg.AutomationURL != ""
}

// FetchTranscript downloads the transcript for videoURL. The upstream may
// answer with {"transcript": "..."}, {"segments": [{"text": ...}]} or a bare
// array of segments.
func (c *Client) FetchTranscript(ctx context.Context, videoURL string) (string, error) {
	if c.cfg.TranscriptURL == "" {
		return "", ErrNotConfigured
	}

	reqURL, err := url.Parse(c.cfg.TranscriptURL)
	if err != nil {
		return "", fmt.Errorf("invalid transcript URL: %w", err)
	}
	q := reqURL.Query()
	q.Set("url", videoURL)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	body, err := c.do(req, "transcript")
	if err != nil {
		return "", err
	}

	text := extractTranscript(body)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// Relay posts payload to the automation webhook
func (c *Client) Relay(ctx context.Context, payload Payload) error {
	if c.cfg.AutomationURL == "" {
		return ErrNotConfigured
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AutomationURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req, "automation")
	return err
}

func (c *Client) do(req *http.Request, target string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordWebhookCall(target, false)
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordWebhookCall(target, false)
		return nil, fmt.Errorf("%w: %s: reading body: %v", ErrUpstream, target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordWebhookCall(target, false)
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUpstream, target, resp.StatusCode)
	}

	metrics.RecordWebhookCall(target, true)
	return body, nil
}

func extractTranscript(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}

	if t := gjson.GetBytes(body, "transcript"); t.Type == gjson.String {
		return strings.TrimSpace(t.String())
	}

	segments := gjson.GetBytes(body, "segments.#.text")
	if !segments.Exists() || len(segments.Array()) == 0 {
		segments = gjson.GetBytes(body, "#.text")
	}

	var parts []string
	for _, s := range segments.Array() {
		if text := strings.TrimSpace(s.String()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
