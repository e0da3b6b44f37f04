package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/lib/pq"

	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/logging"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type LeaderboardHandler struct {
	db    *database.DB
	board Leaderboard
}

func NewLeaderboardHandler(db *database.DB, board Leaderboard) *LeaderboardHandler {
	return &LeaderboardHandler{db: db, board: board}
}

// GetLeaderboard returns the top users by experience with their usernames
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLeaderboardLimit {
			fail(w, r, invalid("limit", "limit must be between 1 and 100"), "load leaderboard")
			return
		}
		limit = n
	}

	entries, err := h.board.TopByExperience(r.Context(), int64(limit))
	if err != nil {
		fail(w, r, err, "load leaderboard")
		return
	}
	if len(entries) == 0 {
		writeData(w, http.StatusOK, entries)
		return
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id::text, username FROM users WHERE id = ANY($1::uuid[])
	`, pq.Array(ids))
	if err != nil {
		fail(w, r, err, "load leaderboard")
		return
	}
	defer rows.Close()

	names := make(map[string]string, len(ids))
	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			fail(w, r, err, "load leaderboard")
			return
		}
		names[id] = username
	}
	if err := rows.Err(); err != nil {
		fail(w, r, err, "load leaderboard")
		return
	}

	for i := range entries {
		entries[i].Username = names[entries[i].UserID]
	}
	writeData(w, http.StatusOK, entries)
}

// Rebuild copies every user's experience from the database into the
// leaderboard. It runs at startup so the cache survives a Redis flush.
func (h *LeaderboardHandler) Rebuild(ctx context.Context) (int, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT user_id::text, exp FROM user_progress`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			userID string
			exp    int
		)
		if err := rows.Scan(&userID, &exp); err != nil {
			return count, err
		}
		if err := h.board.SetExperience(ctx, userID, exp); err != nil {
			return count, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, err
	}

	logging.Component("leaderboard").Infof("Rebuilt leaderboard with %d users", count)
	return count, nil
}
