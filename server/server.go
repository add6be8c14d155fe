package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"demodesk/cache"
	"demodesk/config"
	"demodesk/core/cleanup"
	"demodesk/core/hub"
	"demodesk/core/mail"
	"demodesk/core/registry"
	"demodesk/core/review"
	"demodesk/logger"
	"demodesk/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()
	logger.Info("Connected to Redis")

	kv := cache.NewRedisKV()
	store, err := storage.New(cfg, kv)
	if err != nil {
		logger.Fatal("Failed to initialize file store", logger.ErrorField(err))
	}
	logger.Info("File store ready", logger.String("driver", cfg.StorageDriver))

	allow, err := config.LoadAllowlist(cfg.AllowlistPath)
	if err != nil {
		logger.Fatal("Failed to load allowlist", logger.ErrorField(err))
	}
	if err := allow.Watch(); err != nil {
		logger.Warn("Allowlist watcher unavailable, edits need a restart", logger.ErrorField(err))
	}
	defer allow.Close()
	logger.Info("Allowlist loaded", logger.Int("entries", allow.Len()))

	demoCache := cache.NewDemoCache(kv, cfg.DemoCacheTTL)
	flags := cache.NewFlagStore(kv)
	mailer := mail.NewGmailMailer(cfg)
	updates := hub.NewHub()

	reviews := review.NewService(store, demoCache, mailer, updates)
	artists := registry.NewArtistRegistry(store)
	events := registry.NewEventRegistry(store)
	sweeper := cleanup.NewSweeper(store, demoCache, cfg.CleanupRetention)

	apiHandler := NewAPIHandler(cfg, reviews, artists, events, flags, sweeper, allow, updates)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Demo review workflow
	router.HandleFunc("/api/demos", apiHandler.AuthMiddleware(apiHandler.GetDemosHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/demos/{id}/assistant-action", apiHandler.AuthMiddleware(apiHandler.AssistantActionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/demos/{id}/owner-action", apiHandler.AuthMiddleware(apiHandler.OwnerActionHandler)).Methods(http.MethodPost)

	// Artist roster and event listings
	router.HandleFunc("/api/artists", apiHandler.AuthMiddleware(apiHandler.ArtistsHandler)).
		Methods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	router.HandleFunc("/api/events", apiHandler.AuthMiddleware(apiHandler.EventsHandler)).
		Methods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)

	// Settings
	router.HandleFunc("/api/settings/demo-submission-enabled", apiHandler.AuthMiddleware(apiHandler.DemoSubmissionFlagHandler)).
		Methods(http.MethodGet, http.MethodPatch)

	// Cron and sign-in support; authorized by other means
	router.HandleFunc("/api/cron/cleanup-rejected", apiHandler.CleanupRejectedHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/validate-email", apiHandler.ValidateEmailHandler).Methods(http.MethodGet)

	// Live dashboard updates
	router.HandleFunc("/api/ws/updates", apiHandler.UpdatesHandler).Methods(http.MethodGet)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
