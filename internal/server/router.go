package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Agney-gt/sparklog-sub000/internal/auth"
	"github.com/Agney-gt/sparklog-sub000/internal/catalog"
	"github.com/Agney-gt/sparklog-sub000/internal/config"
	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/handlers"
	"github.com/Agney-gt/sparklog-sub000/internal/metrics"
	"github.com/Agney-gt/sparklog-sub000/internal/middleware"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
	"github.com/Agney-gt/sparklog-sub000/internal/storage"
)

// Sessions is the session store the router needs: handler-side writes plus
// the count reported by /health
type Sessions interface {
	handlers.SessionStore
	ActiveSessionCount(ctx context.Context) (int64, error)
}

// Deps are the clients shared by every handler
type Deps struct {
	Config      *config.Config
	DB          *database.DB
	Tokens      *auth.TokenManager
	Sessions    Sessions
	Leaderboard handlers.Leaderboard
	Uploader    storage.Uploader
	Relay       handlers.TranscriptRelay
	Seed        *catalog.Seed

	// UploadsDir is served under Config.Storage.PublicURL when set
	UploadsDir string
}

// NewRouter wires every route. Auth endpoints that start a session are
// public, everything else under /api requires one.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	authn := middleware.NewAuthenticator(d.Tokens, d.Sessions, cfg.Session.CookieName)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	var defaultHabits []catalog.DefaultHabit
	if d.Seed != nil {
		defaultHabits = d.Seed.DefaultHabits
	}

	authHandler := handlers.NewAuthHandler(d.DB, d.Tokens, d.Sessions, handlers.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}, defaultHabits)
	habitHandler := handlers.NewHabitHandler(d.DB, d.Uploader, cfg.Storage.MaxUploadBytes)
	taskHandler := handlers.NewTaskHandler(d.DB)
	goalHandler := handlers.NewGoalHandler(d.DB, d.Leaderboard)
	skillHandler := handlers.NewSkillHandler(d.DB)
	progressHandler := handlers.NewProgressHandler(d.DB)
	marketHandler := handlers.NewMarketplaceHandler(d.DB)
	journalHandler := handlers.NewJournalHandler(d.DB, d.Uploader, cfg.Storage.MaxUploadBytes)
	threadHandler := handlers.NewThreadHandler(d.DB, d.Uploader, cfg.Storage.MaxUploadBytes)
	transcriptHandler := handlers.NewTranscriptHandler(d.Relay)
	leaderboardHandler := handlers.NewLeaderboardHandler(d.DB, d.Leaderboard)

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)

	r.HandleFunc("/health", healthHandler(d.DB, d.Sessions)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = http.HandlerFunc(notFound)

	public := api.NewRoute().Subrouter()
	public.Use(limiter.Handler)
	public.HandleFunc("/auth/signup", authHandler.Signup).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	public.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	// auth runs first so the limiter can key on the user id
	private := api.NewRoute().Subrouter()
	private.Use(authn.RequireAuth, limiter.Handler)

	private.HandleFunc("/auth/refresh", authHandler.Refresh).Methods(http.MethodPost)
	private.HandleFunc("/auth/session", authHandler.Session).Methods(http.MethodGet)

	private.HandleFunc("/habits", habitHandler.List).Methods(http.MethodGet)
	private.HandleFunc("/habits", habitHandler.Create).Methods(http.MethodPost)
	private.HandleFunc("/habits", habitHandler.Update).Methods(http.MethodPut)
	private.HandleFunc("/habits", habitHandler.Delete).Methods(http.MethodDelete)
	private.HandleFunc("/habits/heatmap", habitHandler.Heatmap).Methods(http.MethodGet)
	private.HandleFunc("/habits/{id:[0-9]+}/streak", habitHandler.Streak).Methods(http.MethodGet)
	private.HandleFunc("/habits/{id:[0-9]+}/checkin", habitHandler.Checkin).Methods(http.MethodPost)

	private.HandleFunc("/tasks", taskHandler.List).Methods(http.MethodGet)
	private.HandleFunc("/tasks", taskHandler.Create).Methods(http.MethodPost)
	private.HandleFunc("/tasks", taskHandler.Update).Methods(http.MethodPut)
	private.HandleFunc("/tasks", taskHandler.Delete).Methods(http.MethodDelete)

	private.HandleFunc("/goals", goalHandler.List).Methods(http.MethodGet)
	private.HandleFunc("/goals", goalHandler.Create).Methods(http.MethodPost)
	private.HandleFunc("/goals", goalHandler.Update).Methods(http.MethodPut)
	private.HandleFunc("/goals", goalHandler.Delete).Methods(http.MethodDelete)

	private.HandleFunc("/skills", skillHandler.List).Methods(http.MethodGet)
	private.HandleFunc("/skills", skillHandler.Create).Methods(http.MethodPost)
	private.HandleFunc("/skills", skillHandler.Update).Methods(http.MethodPut)
	private.HandleFunc("/skills", skillHandler.Delete).Methods(http.MethodDelete)

	private.HandleFunc("/progress", progressHandler.Get).Methods(http.MethodGet)
	private.HandleFunc("/progress", progressHandler.Update).Methods(http.MethodPut)
	private.HandleFunc("/progress/spent", progressHandler.Spent).Methods(http.MethodGet)

	private.HandleFunc("/marketplace", marketHandler.ListCatalog(models.CatalogItems)).Methods(http.MethodGet)
	private.HandleFunc("/marketplace", marketHandler.Purchase).Methods(http.MethodPatch)
	private.HandleFunc("/hotels", marketHandler.ListCatalog(models.CatalogHotels)).Methods(http.MethodGet)
	private.HandleFunc("/blackmarket", marketHandler.ListCatalog(models.CatalogBlackMarket)).Methods(http.MethodGet)

	private.HandleFunc("/journal", journalHandler.Get).Methods(http.MethodGet)
	private.HandleFunc("/journal", journalHandler.Save).Methods(http.MethodPost)
	private.HandleFunc("/journal", journalHandler.Delete).Methods(http.MethodDelete)
	private.HandleFunc("/journal/photo", journalHandler.AddPhoto).Methods(http.MethodPost)

	private.HandleFunc("/threads", threadHandler.List).Methods(http.MethodGet)
	private.HandleFunc("/threads", threadHandler.Create).Methods(http.MethodPost)
	private.HandleFunc("/threads/{id:[0-9]+}", threadHandler.Delete).Methods(http.MethodDelete)
	private.HandleFunc("/threads/{id:[0-9]+}/tweets/{position:[0-9]+}/image", threadHandler.TweetImage).Methods(http.MethodPost)

	private.HandleFunc("/transcripts", transcriptHandler.Create).Methods(http.MethodPost)
	private.HandleFunc("/leaderboard", leaderboardHandler.GetLeaderboard).Methods(http.MethodGet)

	if d.UploadsDir != "" {
		prefix := strings.TrimSuffix(cfg.Storage.PublicURL, "/") + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(d.UploadsDir))))
	}
	if cfg.Server.StaticDir != "" {
		r.PathPrefix("/").Handler(authn.Gate(pageHandler(cfg.Server.StaticDir)))
	}

	return middleware.NewCORS(cfg.Server.AllowedOrigins).Handler(r)
}

// healthHandler reports database reachability and the live session count
func healthHandler(db *database.DB, sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}

		resp := map[string]interface{}{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		}
		if n, err := sessions.ActiveSessionCount(ctx); err == nil {
			resp["active_sessions"] = n
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
}

// pageHandler serves the built frontend. Extensionless paths resolve to
// <path>.html when present and fall back to index.html.
func pageHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if path.Ext(clean) != "" {
			files.ServeHTTP(w, r)
			return
		}

		page := "index.html"
		if clean != "/" {
			candidate := filepath.Join(dir, filepath.FromSlash(clean)+".html")
			if _, err := os.Stat(candidate); err == nil {
				page = strings.TrimPrefix(clean, "/") + ".html"
			}
		}
		http.ServeFile(w, r, filepath.Join(dir, filepath.FromSlash(page)))
	})
}
