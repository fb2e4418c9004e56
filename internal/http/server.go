package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Clark-Hu/media-reviews/internal/auth"
	"github.com/Clark-Hu/media-reviews/internal/config"
	"github.com/Clark-Hu/media-reviews/internal/metrics"
	"github.com/Clark-Hu/media-reviews/internal/ratings"
	"github.com/Clark-Hu/media-reviews/internal/repository"
	"github.com/Clark-Hu/media-reviews/internal/store"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	store    *store.Store
	repo     *repository.Repository
	reviews  *ratings.Service
	verifier auth.Verifier
	logger   *zap.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, reviews *ratings.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s := &Server{
		cfg:      cfg,
		store:    st,
		repo:     repo,
		reviews:  reviews,
		verifier: auth.Verifier{Secret: []byte(cfg.JWTSecret)},
		logger:   logger,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	requireUser := auth.RequireUser(s.verifier)
	limitWrites := s.writeLimiter()

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/media", func(r chi.Router) {
		r.Get("/", s.handleListMedia)
		r.With(requireUser, limitWrites).Post("/suggest", s.handleSuggestMedia)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetMedia)
			r.Get("/reviews", s.handleListReviews)
			r.With(requireUser, limitWrites).Post("/reviews", s.handleCreateReview)
		})
	})

	s.router.Route("/reviews/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetReview)
		r.Group(func(r chi.Router) {
			r.Use(requireUser, limitWrites)
			r.Put("/", s.handleUpdateReview)
			r.Delete("/", s.handleDeleteReview)
			r.Post("/reactions", s.handleReact)
		})
	})

	s.router.Group(func(r chi.Router) {
		r.Use(requireUser, auth.RequireAdmin)
		r.Get("/admin/media", s.handleAdminListMedia)
		r.Patch("/admin/media/{id}/status", s.handleSetMediaStatus)
		r.Get("/notifications", s.handleListNotifications)
		r.Patch("/notifications/{id}", s.handleUpdateNotification)
	})
}

// writeLimiter throttles mutating requests per user, falling back to the
// client IP for unauthenticated callers.
func (s *Server) writeLimiter() func(http.Handler) http.Handler {
	if s.cfg.RateLimitRequests <= 0 || s.cfg.RateLimitWindow <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.cfg.RateLimitRequests,
		time.Duration(s.cfg.RateLimitWindow)*time.Second,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if uid, ok := auth.UserIDFromContext(r.Context()); ok {
				return "user:" + uid, nil
			}
			return httprate.KeyByRealIP(r)
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, try again later")
		}),
	)
}

// accessLog writes one structured line per request.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_ip", r.RemoteAddr))
		})
	}
}

// Start boots the HTTP server and blocks until ctx ends or serving fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http: listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Warn("healthz: database unreachable", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
