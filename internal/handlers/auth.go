package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Agney-gt/sparklog-sub000/internal/auth"
	"github.com/Agney-gt/sparklog-sub000/internal/catalog"
	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/logging"
	"github.com/Agney-gt/sparklog-sub000/internal/middleware"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
	"github.com/Agney-gt/sparklog-sub000/internal/redis"
)

// SessionStore persists session records keyed by token
type SessionStore interface {
	SetSession(ctx context.Context, token string, session *redis.SessionData, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (*redis.SessionData, error)
	DeleteSession(ctx context.Context, token string) error
	ReplaceSession(ctx context.Context, oldToken, newToken string, session *redis.SessionData, ttl time.Duration) error
}

// CookieConfig controls the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	db            *database.DB
	tokens        *auth.TokenManager
	sessions      SessionStore
	cookie        CookieConfig
	defaultHabits []catalog.DefaultHabit
}

func NewAuthHandler(db *database.DB, tokens *auth.TokenManager, sessions SessionStore, cookie CookieConfig, defaultHabits []catalog.DefaultHabit) *AuthHandler {
	return &AuthHandler{
		db:            db,
		tokens:        tokens,
		sessions:      sessions,
		cookie:        cookie,
		defaultHabits: defaultHabits,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup, login and refresh. The token is also
// set as an HttpOnly cookie.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// SessionResponse describes the current session
type SessionResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Signup creates the account, its progress row and the default checklist in
// one transaction, then starts a session
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "create user")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validateSignupRequest(&req); err != nil {
		fail(w, r, err, "create user")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(w, r, err, "create user")
		return
	}

	user := &models.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Email:    req.Email,
	}

	err = h.db.WithTx(r.Context(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(r.Context(), `
			INSERT INTO users (id, username, email, password_hash)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`, user.ID, user.Username, user.Email, hashedPassword).Scan(&user.CreatedAt)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(r.Context(), `INSERT INTO user_progress (user_id) VALUES ($1)`, user.ID); err != nil {
			return err
		}

		for _, habit := range h.defaultHabits {
			if _, err := tx.ExecContext(r.Context(), `
				INSERT INTO habits (user_id, name, category) VALUES ($1, $2, $3)
			`, user.ID, habit.Name, habit.Category); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, duplicateUserMessage(database.ConstraintName(err)))
			return
		}
		fail(w, r, err, "create user")
		return
	}

	resp, err := h.startSession(r.Context(), w, user)
	if err != nil {
		fail(w, r, err, "start session")
		return
	}

	logging.FromContext(r.Context(), "auth").WithField("user_id", user.ID).Infof("User signed up: %s", user.Username)
	writeData(w, http.StatusCreated, resp)
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "log in")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		fail(w, r, invalid("credentials", "Email and password are required"), "log in")
		return
	}

	var user models.User
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, req.Email).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		fail(w, r, errInvalidCredentials, "log in")
		return
	}
	if err != nil {
		fail(w, r, err, "log in")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		fail(w, r, errInvalidCredentials, "log in")
		return
	}

	resp, err := h.startSession(r.Context(), w, &user)
	if err != nil {
		fail(w, r, err, "start session")
		return
	}

	logging.FromContext(r.Context(), "auth").WithField("user_id", user.ID).Info("User logged in")
	writeData(w, http.StatusOK, resp)
}

// Refresh re-issues the token for the current session and moves the session
// record to it with a fresh TTL
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	oldToken := middleware.GetSessionToken(r)

	token, newClaims, err := h.tokens.Generate(claims.UserID, claims.Username, claims.Email)
	if err != nil {
		fail(w, r, err, "refresh session")
		return
	}

	session := newSessionData(newClaims)
	if err := h.sessions.ReplaceSession(r.Context(), oldToken, token, session, h.tokens.TTL()); err != nil {
		fail(w, r, err, "refresh session")
		return
	}
	h.setCookie(w, token, session.ExpiresAt)

	writeData(w, http.StatusOK, AuthResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      &models.User{ID: claims.UserID, Username: claims.Username, Email: claims.Email},
	})
}

// Logout deletes the session record and clears the cookie. It succeeds even
// when the session is already gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetSessionToken(r)
	if token == "" {
		if cookie, err := r.Cookie(h.cookie.Name); err == nil {
			token = cookie.Value
		}
	}

	if token != "" {
		if err := h.sessions.DeleteSession(r.Context(), token); err != nil {
			logging.FromContext(r.Context(), "auth").WithError(err).Warn("Failed to delete session")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeDataMessage(w, http.StatusOK, nil, "Logged out")
}

// Session returns the current session's user
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	resp := SessionResponse{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	writeData(w, http.StatusOK, resp)
}

func (h *AuthHandler) startSession(ctx context.Context, w http.ResponseWriter, user *models.User) (*AuthResponse, error) {
	token, claims, err := h.tokens.Generate(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}

	session := newSessionData(claims)
	if err := h.sessions.SetSession(ctx, token, session, h.tokens.TTL()); err != nil {
		return nil, err
	}
	h.setCookie(w, token, session.ExpiresAt)

	user.PasswordHash = ""
	return &AuthResponse{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newSessionData(claims *auth.CustomClaims) *redis.SessionData {
	return &redis.SessionData{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Email:     claims.Email,
		CreatedAt: claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

func duplicateUserMessage(constraint string) string {
	switch constraint {
	case "users_email_key":
		return "Email already registered"
	case "users_username_key":
		return "Username already taken"
	}
	return "Username or email already exists"
}

// validateSignupRequest validates the signup request
func validateSignupRequest(req *SignupRequest) error {
	if req.Username == "" {
		return invalid("username", "Username is required")
	}
	if utf8.RuneCountInString(req.Username) < 3 || tooLong(req.Username, maxUsernameLen) {
		return invalid("username", "Username must be between 3 and 50 characters")
	}
	if req.Email == "" {
		return invalid("email", "Email is required")
	}
	if !strings.Contains(req.Email, "@") {
		return invalid("email", "Invalid email format")
	}
	if tooLong(req.Email, maxEmailLen) {
		return invalid("email", "Email must be at most 255 characters")
	}
	if req.Password == "" {
		return invalid("password", "Password is required")
	}
	if len(req.Password) < 6 {
		return invalid("password", "Password must be at least 6 characters")
	}
	// bcrypt only accepts up to 72 bytes
	if len(req.Password) > 72 {
		return invalid("password", "Password must be at most 72 bytes")
	}
	return nil
}
