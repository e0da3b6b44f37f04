package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Agney-gt/sparklog-sub000/internal/logging"
	"github.com/Agney-gt/sparklog-sub000/internal/webhook"
)

// TranscriptRelay fetches a video transcript and forwards it
type TranscriptRelay interface {
	Enabled() bool
	FetchTranscript(ctx context.Context, videoURL string) (string, error)
	Relay(ctx context.Context, payload webhook.Payload) error
}

type TranscriptHandler struct {
	relay TranscriptRelay
}

func NewTranscriptHandler(relay TranscriptRelay) *TranscriptHandler {
	return &TranscriptHandler{relay: relay}
}

// TranscriptRequest names the video to transcribe
type TranscriptRequest struct {
	VideoURL string `json:"video_url"`
}

// TranscriptResponse echoes what was relayed
type TranscriptResponse struct {
	VideoURL   string `json:"video_url"`
	Transcript string `json:"transcript"`
}

// Create fetches the transcript for a video and relays it to the automation
// webhook
func (h *TranscriptHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req TranscriptRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "relay transcript")
		return
	}
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	if req.VideoURL == "" {
		fail(w, r, invalid("video_url", "video_url is required"), "relay transcript")
		return
	}
	if u, err := url.Parse(req.VideoURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail(w, r, invalid("video_url", "video_url must be an http(s) URL"), "relay transcript")
		return
	}

	if !h.relay.Enabled() {
		fail(w, r, webhook.ErrNotConfigured, "relay transcript")
		return
	}

	transcript, err := h.relay.FetchTranscript(r.Context(), req.VideoURL)
	if err != nil {
		fail(w, r, err, "fetch transcript")
		return
	}

	err = h.relay.Relay(r.Context(), webhook.Payload{
		UserID:     claims.UserID,
		VideoURL:   req.VideoURL,
		Transcript: transcript,
	})
	if err != nil {
		fail(w, r, err, "relay transcript")
		return
	}

	logging.FromContext(r.Context(), "transcripts").WithField("user_id", claims.UserID).
		Infof("Relayed transcript for %s (%d chars)", req.VideoURL, len(transcript))
	writeDataMessage(w, http.StatusAccepted, TranscriptResponse{VideoURL: req.VideoURL, Transcript: transcript}, "Transcript relayed")
}
