package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTranscript(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"plain field", `{"transcript":"  hello world "}`, "hello world"},
		{"segments", `{"segments":[{"text":"hello"},{"text":" "},{"text":"world"}]}`, "hello world"},
		{"bare array", `[{"text":"one","offset":0},{"text":"two","offset":3}]`, "one two"},
		{"not json", "raw text body", "raw text body"},
		{"nothing", `{"status":"ok"}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractTranscript([]byte(tc.body)))
		})
	}
}

func TestFetchTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://youtu.be/abc", r.URL.Query().Get("url"))
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"segments":[{"text":"hi"},{"text":"there"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{TranscriptURL: srv.URL + "/transcript", APIKey: "k"}, srv.Client())
	text, err := c.FetchTranscript(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
}

func TestFetchTranscript_Errors(t *testing.T) {
	_, err := NewClient(Config{}, nil).FetchTranscript(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	_, err = NewClient(Config{TranscriptURL: failing.URL}, failing.Client()).FetchTranscript(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUpstream)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"segments":[]}`))
	}))
	defer empty.Close()
	_, err = NewClient(Config{TranscriptURL: empty.URL}, empty.Client()).FetchTranscript(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestRelay(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(Config{AutomationURL: srv.URL}, srv.Client())
	err := c.Relay(context.Background(), Payload{UserID: "u1", VideoURL: "v", Transcript: "t"})
	require.NoError(t, err)
	assert.Equal(t, Payload{UserID: "u1", VideoURL: "v", Transcript: "t"}, got)

	err = NewClient(Config{}, nil).Relay(context.Background(), Payload{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewClient(Config{TranscriptURL: "a"}, nil).Enabled())
	assert.True(t, NewClient(Config{TranscriptURL: "a", AutomationURL: "b"}, nil).Enabled())
}
