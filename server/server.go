package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orpheus/cache"
	"orpheus/config"
	"orpheus/core/transport"
	"orpheus/db"
	"orpheus/logger"
	"orpheus/repository"
	"orpheus/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: cfg.LogOutputPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Connect to the database.
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("failed to migrate schema", logger.ErrorField(err))
	}

	// Redis mirrors presence across instances; the server runs without it.
	var presence *cache.PresenceCache
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, presence mirroring disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		presence = cache.NewPresenceCache(db.RedisClient, cfg.PresenceTTL)
		logger.Info("Redis connected, presence mirroring enabled")
	}

	// MinIO holds track bytes; without it uploads use the spool directory only.
	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("MinIO unavailable, presigned uploads disabled", logger.ErrorField(err))
	}

	projectRepo := repository.NewGormProjectRepository(db.GormDB)
	trackRepo := repository.NewGormTrackRepository(db.GormDB)
	userRepo := repository.NewGormUserRepository(db.GormDB)

	reg, led, store, sessions, bus := NewCoreComponents(cfg, projectRepo, trackRepo, presence)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()
	if err := reg.Load(startupCtx); err != nil {
		logger.Fatal("failed to load projects", logger.ErrorField(err))
	}
	if err := led.Load(startupCtx); err != nil {
		logger.Fatal("failed to load ownership splits", logger.ErrorField(err))
	}
	if err := store.Load(startupCtx); err != nil {
		logger.Fatal("failed to load tracks", logger.ErrorField(err))
	}

	sessions.StartEviction(0)
	defer sessions.Stop()

	// Spool watcher: out-of-band transports drop finished files here.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	if watcher, err := transport.NewSpoolWatcher(cfg.SpoolDir, store); err != nil {
		logger.Warn("spool watcher disabled", logger.ErrorField(err))
	} else {
		go watcher.Run(runCtx)
	}

	apiHandler := NewAPIHandler(cfg, reg, led, store, sessions, bus, userRepo)

	router := mux.NewRouter()

	// CORS middleware.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// Health and auth.
	router.HandleFunc("/api/health", apiHandler.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/dev-token", apiHandler.DevTokenHandler).Methods(http.MethodGet)

	// Projects.
	router.HandleFunc("/api/projects", apiHandler.AuthMiddleware(apiHandler.CreateProjectHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/projects", apiHandler.AuthMiddleware(apiHandler.ListProjectsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{project_id}", apiHandler.AuthMiddleware(apiHandler.GetProjectHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{project_id}", apiHandler.AuthMiddleware(apiHandler.RenameProjectHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/projects/{project_id}/collaborators", apiHandler.AuthMiddleware(apiHandler.InviteCollaboratorHandler)).Methods(http.MethodPost)

	// Ownership split.
	router.HandleFunc("/api/projects/{project_id}/split", apiHandler.AuthMiddleware(apiHandler.GetSplitHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{project_id}/split", apiHandler.AuthMiddleware(apiHandler.RebalanceHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/projects/{project_id}/split/audit", apiHandler.AuthMiddleware(apiHandler.SplitAuditHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{project_id}/revenue-share", apiHandler.AuthMiddleware(apiHandler.RevenueShareHandler)).Methods(http.MethodPost)

	// Tracks.
	router.HandleFunc("/api/projects/{project_id}/tracks", apiHandler.AuthMiddleware(apiHandler.ListTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{project_id}/tracks", apiHandler.AuthMiddleware(apiHandler.BeginUploadHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{track_id}/complete", apiHandler.AuthMiddleware(apiHandler.CompleteUploadHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{track_id}/fail", apiHandler.AuthMiddleware(apiHandler.FailUploadHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{project_id}/tracks/{track_id}/playback", apiHandler.AuthMiddleware(apiHandler.TogglePlaybackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{track_id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)

	// Session.
	router.HandleFunc("/api/projects/{project_id}/present", apiHandler.AuthMiddleware(apiHandler.ListPresentHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{project_id}/playing", apiHandler.AuthMiddleware(apiHandler.CurrentlyPlayingHandler)).Methods(http.MethodGet)
	router.HandleFunc("/ws/projects/{project_id}/presence", apiHandler.AuthMiddleware(apiHandler.PresenceSocketHandler))

	httpServer.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}
