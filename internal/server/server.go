// Package server is the composition root: it opens the store, wires
// services and handlers, mounts routes and runs the HTTP server.
//
// Route table:
//
//	POST   /register      create account, returns a token
//	POST   /login         check credentials, returns a token
//	GET    /me            current user            (auth)
//	GET    /get           list caller's tasks     (auth)
//	POST   /add           add a task              (auth)
//	PUT    /update/{id}   mark a task done        (auth)
//	DELETE /delete/{id}   delete one task         (auth)
//	DELETE /deleteAll     delete caller's tasks   (auth)
//
// SERVER ARCHITECTURE:
//
//	config.Config ─→ store (sqlite | mongo)
//	                   ↓
//	            repository interfaces
//	                   ↓
//	   service.AuthService / service.TaskService
//	                   ↓
//	   handler.AuthHandler / handler.TaskHandler
//	                   ↓
//	        chi router + middleware ─→ http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/tasklist/internal/auth"
	"github.com/sakif/tasklist/internal/config"
	"github.com/sakif/tasklist/internal/handler"
	"github.com/sakif/tasklist/internal/middleware"
	"github.com/sakif/tasklist/internal/repository"
	mongoRepo "github.com/sakif/tasklist/internal/repository/mongo"
	sqliteRepo "github.com/sakif/tasklist/internal/repository/sqlite"
	"github.com/sakif/tasklist/internal/service"
	"github.com/sakif/tasklist/internal/telemetry"
)

const (
	shutdownTimeout = 30 * time.Second
	connectTimeout  = 10 * time.Second
)

// Server owns the router and the store connection.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics

	users      repository.UserRepository
	tasks      repository.TaskRepository
	closeStore func(context.Context) error
}

// New opens the store named by cfg.DatabaseURL and builds the router.
// The caller must eventually call Close (Start does so on shutdown).
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics, err := telemetry.Default()
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := s.openStore(ctx); err != nil {
		return nil, err
	}

	if err := s.setupRoutes(); err != nil {
		_ = s.Close(context.Background())
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// openStore picks MongoDB for mongodb:// URLs and SQLite otherwise.
//
// WHY TWO STORES?
// SQLite needs nothing running and suits a single server and the tests.
// MongoDB suits deployments that already run it or need several API
// processes on one database. Both implement the same repository
// interfaces, so nothing above this function knows which one is in use.
func (s *Server) openStore(ctx context.Context) error {
	if s.config.UsesMongo() {
		store, err := mongoRepo.New(ctx, s.config.DatabaseURL, s.config.MongoDatabase)
		if err != nil {
			return fmt.Errorf("opening mongo store: %w", err)
		}
		s.users, s.tasks, s.closeStore = store.Users(), store.Tasks(), store.Close
		return nil
	}

	if s.config.DatabaseURL != ":memory:" {
		dir := filepath.Dir(s.config.DatabaseURL)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(ctx, s.config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening sqlite store: %w", err)
	}
	s.users, s.tasks = db.Users(), db.Tasks()
	s.closeStore = func(context.Context) error { return db.Close() }
	return nil
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(s.users, tokens, auth.NewPasswordService(), s.metrics, s.logger)
	taskService := service.NewTaskService(s.tasks, s.metrics, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, s.logger)

	// MIDDLEWARE ORDER MATTERS:
	// RequestID runs first so the logger can print it. Recoverer sits inside
	// the logger, so a panic is logged as the 500 it becomes. CORS answers
	// preflights before the auth group could reject them.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger, s.metrics))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", authHandler.HandleMe)
		r.Get("/get", taskHandler.HandleList)
		r.Post("/add", taskHandler.HandleAdd)
		r.Put("/update/{id}", taskHandler.HandleUpdate)
		r.Delete("/delete/{id}", taskHandler.HandleDelete)
		r.Delete("/deleteAll", taskHandler.HandleDeleteAll)
	})

	return nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store connection.
func (s *Server) Close(ctx context.Context) error {
	if s.closeStore == nil {
		return nil
	}
	return s.closeStore(ctx)
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(context.Background()); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		store := "sqlite"
		if s.config.UsesMongo() {
			store = "mongo"
		}
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", store),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
