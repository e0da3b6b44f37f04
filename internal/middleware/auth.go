package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Agney-gt/sparklog-sub000/internal/auth"
	"github.com/Agney-gt/sparklog-sub000/internal/logging"
	"github.com/Agney-gt/sparklog-sub000/internal/redis"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserContextKey is the key for storing user claims in request context
	UserContextKey contextKey = "user"
	tokenContextKey contextKey = "token"
)

// ErrNoSession is returned when the request carries no session token
var ErrNoSession = errors.New("no session")

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionLookup resolves a session token to its stored record
type SessionLookup interface {
	GetSession(ctx context.Context, token string) (*redis.SessionData, error)
}

// Authenticator resolves the session cookie (or a Bearer header) to a user
type Authenticator struct {
	tokens     *auth.TokenManager
	sessions   SessionLookup
	cookieName string
}

// NewAuthenticator creates an authenticator reading cookieName
func NewAuthenticator(tokens *auth.TokenManager, sessions SessionLookup, cookieName string) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, cookieName: cookieName}
}

// CookieName returns the name of the session cookie
func (a *Authenticator) CookieName() string {
	return a.cookieName
}

// Resolve returns the claims and raw token for r. A token is accepted only
// while both the JWT and its session record are valid.
func (a *Authenticator) Resolve(r *http.Request) (*auth.CustomClaims, string, error) {
	token := a.tokenFromRequest(r)
	if token == "" {
		return nil, "", ErrNoSession
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, "", err
	}

	session, err := a.sessions.GetSession(r.Context(), token)
	if err != nil {
		return nil, "", err
	}
	if session.UserID != claims.UserID {
		return nil, "", auth.ErrInvalidToken
	}
	return claims, token, nil
}

func (a *Authenticator) tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(a.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// RequireAuth is a middleware that rejects requests without a live session
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := a.Resolve(r)
		if err != nil {
			switch {
			case errors.Is(err, ErrNoSession):
				writeError(w, http.StatusUnauthorized, "Not authenticated")
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, redis.ErrSessionNotFound):
				writeError(w, http.StatusUnauthorized, "Invalid or expired session")
			default:
				logging.FromContext(r.Context(), "auth").WithError(err).Error("Session lookup failed")
				writeError(w, http.StatusInternalServerError, "Failed to verify session")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims, token)))
	})
}

// WithClaims stores the session claims and token in ctx
func WithClaims(ctx context.Context, claims *auth.CustomClaims, token string) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, claims)
	return context.WithValue(ctx, tokenContextKey, token)
}

// GetUserClaims extracts user claims from request context
func GetUserClaims(r *http.Request) (*auth.CustomClaims, bool) {
	claims, ok := r.Context().Value(UserContextKey).(*auth.CustomClaims)
	return claims, ok && claims != nil
}

// GetSessionToken returns the raw session token for the request
func GetSessionToken(r *http.Request) string {
	token, _ := r.Context().Value(tokenContextKey).(string)
	return token
}

// userID returns the authenticated user id from ctx, or ""
func userID(ctx context.Context) string {
	if claims, ok := ctx.Value(UserContextKey).(*auth.CustomClaims); ok && claims != nil {
		return claims.UserID
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
