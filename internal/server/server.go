package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/akilli-icerik/apiserver/config"
	"github.com/akilli-icerik/apiserver/internal/db"
	"github.com/akilli-icerik/apiserver/internal/events"
	"github.com/akilli-icerik/apiserver/internal/extract"
	"github.com/akilli-icerik/apiserver/internal/handlers"
	"github.com/akilli-icerik/apiserver/internal/pool"
	"github.com/akilli-icerik/apiserver/internal/report"
	"github.com/akilli-icerik/apiserver/internal/services"
	"github.com/akilli-icerik/apiserver/internal/storage"
	"github.com/akilli-icerik/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  *events.Publisher
	log        zerolog.Logger
}

// New constructs a fully wired Server from config.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := newLogger(cfg.LogLevel)

	if strings.TrimSpace(cfg.OpenAIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	openaiClient := openai.NewClient(cfg.OpenAIKey)

	var (
		dbConn         *sql.DB
		userService    *services.UserService
		reportRecorder services.ReportRecorder
	)
	switch cfg.UserStore.Backend {
	case "postgres":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dbConn = conn
		userService = services.NewUserService(store.NewUserRepository(conn), store.NewTokenRepository(conn))
		reportRecorder = store.NewReportRepository(conn)
	case "jsonfile":
		fileStore, err := store.NewJSONFileStore(cfg.UserStore.Path)
		if err != nil {
			return nil, fmt.Errorf("open user store: %w", err)
		}
		userService = services.NewUserService(fileStore, fileStore)
	default:
		return nil, fmt.Errorf("unknown user store backend %q", cfg.UserStore.Backend)
	}

	backend, err := newStorageBackend(ctx, cfg)
	if err != nil {
		closeQuietly(dbConn)
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		closeQuietly(dbConn)
		return nil, fmt.Errorf("prepare storage: %w", err)
	}
	artifacts := storage.NewArtifactStore(backend)

	publisher, err := newEventPublisher(ctx, cfg)
	if err != nil {
		closeQuietly(dbConn)
		return nil, err
	}

	extractor := extract.NewDispatcher(openaiClient, cfg.OpenAIModel, cfg.MaxUploadMB<<20)
	generator := report.NewGenerator(openaiClient, cfg.OpenAIModel)
	workers := pool.New(cfg.WorkerPoolSize)

	var eventPublisher services.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}
	reportService := services.NewReportService(
		extractor,
		generator,
		artifacts,
		reportRecorder,
		eventPublisher,
		workers,
		cfg.Storage.FailurePolicy,
		log,
	)

	authHandler := handlers.NewAuthHandler(userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Group(func(r chi.Router) {
		handlers.AuthRouter(r, userService)
		handlers.ReportRouter(r, reportService, authHandler.RequireAuth, cfg.MaxUploadMB<<20)
	})
	if cfg.Storage.Backend == "local" {
		fileServer := http.StripPrefix("/reports/", http.FileServer(http.Dir(cfg.Storage.LocalDir)))
		router.Get("/reports/*", fileServer.ServeHTTP)
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
		log:        log,
	}, nil
}

// newStorageBackend selects the artifact store backend. Local disk is
// refused on managed hosting, where the filesystem is ephemeral.
func newStorageBackend(ctx context.Context, cfg config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Backend {
	case "local":
		if cfg.ManagedHosting {
			return nil, errors.New("local storage is not available on managed hosting, configure gcs or minio")
		}
		return storage.NewLocalClient(cfg.Storage.LocalDir, "/reports")
	case "gcs":
		return storage.NewGCSClient(ctx, cfg.Storage.GCS)
	case "minio":
		return storage.NewMinioClient(cfg.Storage.Minio)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newEventPublisher returns nil when events are disabled.
func newEventPublisher(ctx context.Context, cfg config.Config) (*events.Publisher, error) {
	switch cfg.Events.Backend {
	case "", "none":
		return nil, nil
	case "pubsub":
		client, err := events.NewPubSubClient(ctx, cfg.Events.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return events.NewPublisher(client, cfg.Events.Topic), nil
	case "rabbitmq":
		client, err := events.NewRabbitMQClient(cfg.Events.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return events.NewPublisher(client, cfg.Events.Topic), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func closeQuietly(dbConn *sql.DB) {
	if dbConn != nil {
		_ = dbConn.Close()
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	return s.httpServer.Close()
}
