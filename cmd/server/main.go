package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Agney-gt/sparklog-sub000/internal/auth"
	"github.com/Agney-gt/sparklog-sub000/internal/catalog"
	"github.com/Agney-gt/sparklog-sub000/internal/config"
	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/handlers"
	"github.com/Agney-gt/sparklog-sub000/internal/logging"
	"github.com/Agney-gt/sparklog-sub000/internal/redis"
	"github.com/Agney-gt/sparklog-sub000/internal/server"
	"github.com/Agney-gt/sparklog-sub000/internal/storage"
	"github.com/Agney-gt/sparklog-sub000/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Component("api").WithError(err).Fatal("Invalid configuration")
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		logging.Component("api").WithError(err).Fatal("Invalid log settings")
	}
	log := logging.Component("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Initializing database connection...")
	db, err := database.NewConnection(ctx, database.LoadConfigFromEnv())
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.WithError(err).Fatal("Failed to initialize schema")
	}

	seed, err := catalog.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog seed")
	}
	if err := seed.Apply(ctx, db.DB); err != nil {
		log.WithError(err).Fatal("Failed to seed catalog")
	}

	log.Info("Initializing Redis connection...")
	rdb, err := redis.NewClient(ctx, redis.LoadConfigFromEnv())
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer rdb.Close()

	uploader, uploadsDir, err := newUploader(cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}

	relay := webhook.NewClient(webhook.Config{
		TranscriptURL: cfg.Webhook.TranscriptURL,
		AutomationURL: cfg.Webhook.AutomationURL,
		APIKey:        cfg.Webhook.APIKey,
		Timeout:       cfg.Webhook.Timeout,
	}, nil)
	if !relay.Enabled() {
		log.Warn("Transcript relay is not configured; /api/transcripts will return 503")
	}

	// the sorted set is a cache of user_progress.exp
	rebuildCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if _, err := handlers.NewLeaderboardHandler(db, rdb).Rebuild(rebuildCtx); err != nil {
		log.WithError(err).Warn("Failed to rebuild leaderboard")
	}
	cancel()

	router := server.NewRouter(server.Deps{
		Config:      cfg,
		DB:          db,
		Tokens:      auth.NewTokenManager(cfg.Session.JWTSecret, cfg.Session.TTL),
		Sessions:    rdb,
		Leaderboard: rdb,
		Uploader:    uploader,
		Relay:       relay,
		Seed:        seed,
		UploadsDir:  uploadsDir,
	})

	if err := server.Run(ctx, server.New(cfg.Server, router)); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}

// newUploader returns the configured storage backend and, for local storage,
// the directory to serve uploads from
func newUploader(cfg config.StorageConfig) (storage.Uploader, string, error) {
	if cfg.Driver == "supabase" {
		s, err := storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, nil)
		return s, "", err
	}
	local, err := storage.NewLocal(cfg.LocalDir, cfg.PublicURL)
	if err != nil {
		return nil, "", err
	}
	return local, local.Root(), nil
}
