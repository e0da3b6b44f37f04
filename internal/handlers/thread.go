package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/lib/pq"

	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
	"github.com/Agney-gt/sparklog-sub000/internal/storage"
)

type ThreadHandler struct {
	db     *database.DB
	images imageUploader
}

func NewThreadHandler(db *database.DB, uploader storage.Uploader, maxUploadBytes int64) *ThreadHandler {
	return &ThreadHandler{db: db, images: newImageUploader(uploader, maxUploadBytes)}
}

// CreateThreadRequest represents the thread creation body
type CreateThreadRequest struct {
	Title  string `json:"title"`
	Tweets []struct {
		Content  string `json:"content"`
		ImageURL string `json:"image_url"`
	} `json:"tweets"`
}

// List returns the user's threads, newest first, each with its tweets in order
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	threads, err := h.list(r.Context(), claims.UserID)
	if err != nil {
		fail(w, r, err, "list threads")
		return
	}
	writeData(w, http.StatusOK, threads)
}

func (h *ThreadHandler) list(ctx context.Context, userID string) ([]models.Thread, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at FROM threads
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	threads := []models.Thread{}
	byID := make(map[int64]int)
	ids := []int64{}
	for rows.Next() {
		t := models.Thread{Tweets: []models.Tweet{}}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.CreatedAt); err != nil {
			return nil, err
		}
		byID[t.ID] = len(threads)
		ids = append(ids, t.ID)
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return threads, nil
	}

	tweetRows, err := h.db.QueryContext(ctx, `
		SELECT id, thread_id, position, content, image_url FROM tweets
		WHERE thread_id = ANY($1)
		ORDER BY thread_id, position
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer tweetRows.Close()

	for tweetRows.Next() {
		var tw models.Tweet
		if err := tweetRows.Scan(&tw.ID, &tw.ThreadID, &tw.Position, &tw.Content, &tw.ImageURL); err != nil {
			return nil, err
		}
		if i, ok := byID[tw.ThreadID]; ok {
			threads[i].Tweets = append(threads[i].Tweets, tw)
		}
	}
	return threads, tweetRows.Err()
}

// Create inserts the thread and its tweets in one transaction. Empty tweets
// are dropped; at least one must remain.
func (h *ThreadHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateThreadRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "create thread")
		return
	}

	thread := models.Thread{UserID: claims.UserID, Title: strings.TrimSpace(req.Title), Tweets: []models.Tweet{}}
	for _, tw := range req.Tweets {
		content := strings.TrimSpace(tw.Content)
		if content == "" {
			continue
		}
		thread.Tweets = append(thread.Tweets, models.Tweet{
			Position: len(thread.Tweets),
			Content:  content,
			ImageURL: strings.TrimSpace(tw.ImageURL),
		})
	}

	if thread.Title == "" {
		fail(w, r, invalid("title", "Thread title is required"), "create thread")
		return
	}
	if tooLong(thread.Title, maxTitleLen) {
		fail(w, r, invalid("title", "Thread title must be at most 200 characters"), "create thread")
		return
	}
	if len(thread.Tweets) == 0 {
		fail(w, r, invalid("tweets", "A thread needs at least one tweet"), "create thread")
		return
	}

	err := h.db.WithTx(r.Context(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(r.Context(), `
			INSERT INTO threads (user_id, title) VALUES ($1, $2)
			RETURNING id, created_at
		`, thread.UserID, thread.Title).Scan(&thread.ID, &thread.CreatedAt)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO tweets (thread_id, position, content, image_url)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range thread.Tweets {
			tw := &thread.Tweets[i]
			tw.ThreadID = thread.ID
			if err := stmt.QueryRowContext(r.Context(), tw.ThreadID, tw.Position, tw.Content, tw.ImageURL).Scan(&tw.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		fail(w, r, err, "create thread")
		return
	}
	writeData(w, http.StatusCreated, thread)
}

// TweetImage uploads an image and attaches it to one tweet of a thread the
// user owns
func (h *ThreadHandler) TweetImage(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	threadID, err := parseID(vars["id"])
	if err != nil {
		fail(w, r, err, "attach image")
		return
	}
	position, err := strconv.Atoi(vars["position"])
	if err != nil || position < 0 {
		fail(w, r, invalid("position", "A valid tweet position is required"), "attach image")
		return
	}

	if err := h.images.parseForm(w, r); err != nil {
		fail(w, r, err, "attach image")
		return
	}

	var exists bool
	err = h.db.QueryRowContext(r.Context(), `
		SELECT EXISTS (
			SELECT 1 FROM tweets t JOIN threads th ON th.id = t.thread_id
			WHERE t.thread_id = $1 AND t.position = $2 AND th.user_id = $3
		)
	`, threadID, position, claims.UserID).Scan(&exists)
	if err == nil && !exists {
		err = notFound("tweet")
	}
	if err != nil {
		fail(w, r, err, "attach image")
		return
	}

	url, err := h.images.save(r, storage.BucketThreadImages, claims.UserID)
	if err != nil {
		fail(w, r, err, "attach image")
		return
	}

	var tw models.Tweet
	err = h.db.QueryRowContext(r.Context(), `
		UPDATE tweets SET image_url = $1
		WHERE thread_id = $2 AND position = $3
		RETURNING id, thread_id, position, content, image_url
	`, url, threadID, position).Scan(&tw.ID, &tw.ThreadID, &tw.Position, &tw.Content, &tw.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		err = notFound("tweet")
	}
	if err != nil {
		fail(w, r, err, "attach image")
		return
	}
	writeData(w, http.StatusOK, tw)
}

// Delete removes a thread and, by cascade, its tweets
func (h *ThreadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		fail(w, r, err, "delete thread")
		return
	}

	if err := deleteOwned(r.Context(), h.db, "threads", id, claims.UserID); err != nil {
		fail(w, r, wrapNotFound(err, "thread"), "delete thread")
		return
	}
	writeDataMessage(w, http.StatusOK, map[string]int64{"id": id}, "Thread deleted")
}
