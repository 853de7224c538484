// Package server wires the application together and runs the HTTP server.
//
// SERVER ARCHITECTURE:
// This package is the composition root. New opens the database and builds
// every layer in order:
//
//	sqlite.DB → services → handlers → chi routes
//
// Each layer receives only what it needs: services get repository
// interfaces, handlers get services. Nothing below this package knows that
// the store is SQLite or that the identity provider is Google.
//
// The server also owns two background jobs, like-count reconciliation and
// revocation purging, and stops them before closing the database.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/cocktail-club/internal/ai"
	"github.com/sakif/cocktail-club/internal/auth"
	"github.com/sakif/cocktail-club/internal/config"
	"github.com/sakif/cocktail-club/internal/handler"
	"github.com/sakif/cocktail-club/internal/metrics"
	"github.com/sakif/cocktail-club/internal/middleware"
	sqliteRepo "github.com/sakif/cocktail-club/internal/repository/sqlite"
	"github.com/sakif/cocktail-club/internal/service"
)

// revocationPurgeInterval is fixed; expired revocations are harmless, the
// purge only keeps the table small.
const revocationPurgeInterval = time.Hour

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database handle and the rate limiter's eviction
// goroutine. Close releases both; Start calls it on the way out.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics
	limiter *middleware.RateLimiter

	identity *service.IdentityService
	likes    *service.LikeService

	closeOnce sync.Once
}

// New opens the database, applies migrations and builds the router.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	// === DATABASE ===
	db, err := sqliteRepo.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	m := metrics.New()
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: m,
		limiter: middleware.NewRateLimiter(cfg.RateLimitPerMinute, m, logger),
	}

	// === SERVICES ===
	s.identity = service.NewIdentityService(db, tokens, auth.NewPasswordService(), m, logger)
	s.likes = service.NewLikeService(db, m, logger)
	cocktails := service.NewCocktailService(db)
	community := service.NewCommunityService(db, logger)
	directory := service.NewDirectoryService(db)
	gemini := ai.NewGeminiClient(ai.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.UpstreamTimeout,
	}, logger)
	if !gemini.Enabled() {
		logger.Warn("GEMINI_API_KEY not set, recipe generation will fail")
	}
	recipes := service.NewRecipeService(db, gemini, m, logger)

	google := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI,
		auth.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
	)
	if !google.Configured() {
		logger.Warn("Google OAuth credentials not set, /auth/google will answer 503")
	}

	// === HANDLERS ===
	h := handlers{
		authn:     auth.NewAuthenticator(tokens, s.identity, logger),
		auth:      handler.NewAuthHandler(s.identity, google, auth.CookieConfigFor(cfg.IsProduction()), cfg.FrontendURL, logger),
		cocktails: handler.NewCocktailHandler(cocktails, s.likes, logger),
		community: handler.NewCommunityHandler(community, logger),
		directory: handler.NewDirectoryHandler(directory, logger),
		recipes:   handler.NewRecipeHandler(recipes, logger),
	}
	s.setupRoutes(h)

	return s, nil
}

type handlers struct {
	authn     *auth.Authenticator
	auth      *handler.AuthHandler
	cocktails *handler.CocktailHandler
	community *handler.CommunityHandler
	directory *handler.DirectoryHandler
	recipes   *handler.RecipeHandler
}

// setupRoutes configures middleware and routes.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, RealIP   request id for logs, client IP for the limiter
//  2. Logger, Instrument  see the final status of every request
//  3. Recoverer           turns panics into 500s inside the logged span
//  4. CORS                answers preflights before rate limiting
//  5. RateLimiter, Timeout
func (s *Server) setupRoutes(h handlers) {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Instrument(s.metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Operational ===
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// === Static Files ===
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Handler)
		r.Use(chimiddleware.Timeout(s.config.RequestTimeout))

		// === Google OAuth ===
		r.Get("/auth/google", h.auth.HandleGoogleLogin)
		r.Get("/auth/google/callback", h.auth.HandleGoogleCallback)

		r.Route("/api", func(r chi.Router) {
			// --- Session ---
			r.Post("/auth/signup", h.auth.HandleSignup)
			r.Post("/auth/login", h.auth.HandleLogin)
			r.Post("/login", h.auth.HandleLogin)
			r.With(h.authn.OptionalAuth).Post("/auth/logout", h.auth.HandleLogout)
			r.With(h.authn.OptionalAuth).Post("/logout", h.auth.HandleLogout)
			r.Group(func(r chi.Router) {
				r.Use(h.authn.RequireAuth)
				r.Post("/auth/refresh", h.auth.HandleRefresh)
				r.Get("/auth/me", h.auth.HandleMe)
				r.Put("/auth/me", h.auth.HandleUpdateMe)
			})

			// --- Cocktails & likes ---
			r.Get("/cocktails", h.cocktails.HandleList)
			r.Get("/search/cocktails", h.cocktails.HandleSearch)
			r.Get("/cocktails/{id}", h.cocktails.HandleGet)
			r.With(h.authn.OptionalAuth).Get("/cocktails/{id}/like", h.cocktails.HandleLikeStatus)
			r.With(h.authn.RequireAuth).Post("/cocktails/{id}/like", h.cocktails.HandleLike)
			r.With(h.authn.RequireAuth).Delete("/cocktails/{id}/like", h.cocktails.HandleUnlike)

			// --- Community ---
			r.Get("/posts/latest", h.community.HandleLatest)
			r.Get("/posts", h.community.HandleList)
			r.Get("/posts/{id}", h.community.HandleGet)
			r.Get("/comment/{id}", h.community.HandleListComments)
			r.Group(func(r chi.Router) {
				r.Use(h.authn.RequireAuth)
				r.Post("/posts", h.community.HandleCreate)
				r.Put("/posts/{id}", h.community.HandleUpdate)
				r.Delete("/posts/{id}", h.community.HandleDelete)
				r.Post("/comment", h.community.HandleCreateComment)
				r.Post("/comment/{id}/replies", h.community.HandleReply)
				r.Put("/comment/{id}", h.community.HandleUpdateComment)
				r.Delete("/comment/{id}", h.community.HandleDeleteComment)
			})

			// --- Directory ---
			r.Get("/citys", h.directory.HandleCities)
			r.Get("/bars", h.directory.HandleBars)
			r.Get("/bars/hot", h.directory.HandleHotBars)
			r.Get("/bars/{city}", h.directory.HandleBarsInCity)

			// --- AI bartender ---
			r.With(h.authn.OptionalAuth).Post("/gemeni", h.recipes.HandleGenerate)
			r.Group(func(r chi.Router) {
				r.Use(h.authn.RequireAuth)
				r.Post("/gemeni/save", h.recipes.HandleSave)
				r.Get("/gemeni/save", h.recipes.HandleListSaved)
			})
		})
	})
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RunBackground starts the reconciler and the revocation purge. Both stop
// when ctx is cancelled; the returned WaitGroup tracks them.
func (s *Server) RunBackground(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.likes.RunReconciler(ctx, s.config.LikeReconcileInterval)
	}()
	go func() {
		defer wg.Done()
		s.identity.RunRevocationPurge(ctx, revocationPurgeInterval)
	}()
	return &wg
}

// Close stops the rate limiter and closes the database. Safe to call twice.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.limiter.Stop()
		err = s.db.Close()
	})
	return err
}

// Start runs the server until SIGINT or SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting connections and let in-flight requests finish (30s)
//  2. Stop the background jobs and wait for them
//  3. Close the database (flushes the WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.config.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	background := s.RunBackground(bgCtx)
	defer func() {
		stopBackground()
		background.Wait()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
