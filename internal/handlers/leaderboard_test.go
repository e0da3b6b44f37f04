package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agney-gt/sparklog-sub000/internal/redis"
)

const otherUserID = "9a7e4c0e-1111-4c43-9d6c-0b1b1e0f1a22"

func TestLeaderboard_FillsUsernames(t *testing.T) {
	db, mock := newMockDB(t)
	board := newFakeLeaderboard()
	board.top = []redis.LeaderboardEntry{
		{UserID: otherUserID, Exp: 900, Rank: 1},
		{UserID: testUserID, Exp: 450, Rank: 2},
	}
	h := NewLeaderboardHandler(db, board)

	// compares uuids directly so the primary key index applies
	mock.ExpectQuery(`SELECT id::text, username FROM users WHERE id = ANY\(\$1::uuid\[\]\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).
			AddRow(testUserID, "alice").
			AddRow(otherUserID, "bob"))

	rec := httptest.NewRecorder()
	h.GetLeaderboard(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil), testUserID))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var entries []redis.LeaderboardEntry
	decodeData(t, rec, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[0].Username)
	assert.Equal(t, "alice", entries[1].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboard_Limit(t *testing.T) {
	db, mock := newMockDB(t)
	board := newFakeLeaderboard()
	board.top = []redis.LeaderboardEntry{{UserID: testUserID, Rank: 1}, {UserID: otherUserID, Rank: 2}}
	h := NewLeaderboardHandler(db, board)

	mock.ExpectQuery("FROM users").WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(testUserID, "alice"))

	rec := httptest.NewRecorder()
	h.GetLeaderboard(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=1", nil), testUserID))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []redis.LeaderboardEntry
	decodeData(t, rec, &entries)
	assert.Len(t, entries, 1)

	for _, limit := range []string{"0", "101", "ten"} {
		rec := httptest.NewRecorder()
		h.GetLeaderboard(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit="+limit, nil), testUserID))
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboard_Rebuild(t *testing.T) {
	db, mock := newMockDB(t)
	board := newFakeLeaderboard()
	board.scores[testUserID] = 1
	h := NewLeaderboardHandler(db, board)

	mock.ExpectQuery("SELECT user_id::text, exp FROM user_progress").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "exp"}).
			AddRow(testUserID, 300).
			AddRow(otherUserID, 0))

	n, err := h.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]int{testUserID: 300, otherUserID: 0}, board.scores)
	assert.NoError(t, mock.ExpectationsWereMet())
}
