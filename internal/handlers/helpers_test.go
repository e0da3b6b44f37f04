package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Agney-gt/sparklog-sub000/internal/auth"
	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/middleware"
	"github.com/Agney-gt/sparklog-sub000/internal/redis"
	"github.com/Agney-gt/sparklog-sub000/internal/webhook"
)

const testUserID = "5f0c6a59-8d0e-4c43-9d6c-0b1b1e0f1a11"

// pngBytes starts with the PNG signature so content sniffing sees image/png
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &database.DB{DB: db}, mock
}

// asUser attaches session claims for userID to req
func asUser(req *http.Request, userID string) *http.Request {
	claims := &auth.CustomClaims{UserID: userID, Username: "alice", Email: "alice@example.com"}
	return req.WithContext(middleware.WithClaims(req.Context(), claims, "session-token"))
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// imageRequest builds a multipart request with an "image" part and extra fields
func imageRequest(t *testing.T, target string, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// decodeData unmarshals the "data" field of a success envelope into v
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) DataResponse {
	t.Helper()
	var env struct {
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
	return DataResponse{Message: env.Message}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*redis.SessionData
	err      error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*redis.SessionData{}}
}

func (f *fakeSessions) SetSession(_ context.Context, token string, s *redis.SessionData, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sessions[token] = s
	return nil
}

func (f *fakeSessions) GetSession(_ context.Context, token string) (*redis.SessionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return nil, redis.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessions) ReplaceSession(_ context.Context, oldToken, newToken string, s *redis.SessionData, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.sessions, oldToken)
	f.sessions[newToken] = s
	return nil
}

type fakeLeaderboard struct {
	mu      sync.Mutex
	scores  map[string]int
	top     []redis.LeaderboardEntry
	addErr  error
	addCall int
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{scores: map[string]int{}}
}

func (f *fakeLeaderboard) AddExperience(_ context.Context, userID string, exp int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCall++
	if f.addErr != nil {
		return f.addErr
	}
	f.scores[userID] += exp
	return nil
}

func (f *fakeLeaderboard) SetExperience(_ context.Context, userID string, exp int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[userID] = exp
	return nil
}

func (f *fakeLeaderboard) TopByExperience(_ context.Context, limit int64) ([]redis.LeaderboardEntry, error) {
	if int64(len(f.top)) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

type fakeUploader struct {
	uploads map[string][]byte
	err     error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: map[string][]byte{}}
}

func (f *fakeUploader) Upload(_ context.Context, bucket, key, _ string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploads[bucket+"/"+key] = data
	return "/uploads/" + bucket + "/" + key, nil
}

type fakeRelay struct {
	enabled    bool
	transcript string
	fetchErr   error
	relayErr   error
	relayed    []webhook.Payload
}

func (f *fakeRelay) Enabled() bool { return f.enabled }

func (f *fakeRelay) FetchTranscript(context.Context, string) (string, error) {
	return f.transcript, f.fetchErr
}

func (f *fakeRelay) Relay(_ context.Context, p webhook.Payload) error {
	if f.relayErr != nil {
		return f.relayErr
	}
	f.relayed = append(f.relayed, p)
	return nil
}
