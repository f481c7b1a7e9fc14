// Package api exposes the operator HTTP surface.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"notice_relay/internal/domain"
	"notice_relay/internal/registry"
	"notice_relay/internal/scheduler"
)

type Sources interface {
	Get(id string) (registry.Source, error)
	List() []registry.Source
	Refresh(ctx context.Context) error
}

type History interface {
	QueryRecent(ctx context.Context, sourceID string, limit int) ([]domain.Notice, error)
}

type Destinations interface {
	SubscribersOf(ctx context.Context, sourceID string) ([]domain.Destination, error)
	Subscribe(ctx context.Context, dest domain.Destination, sourceID string) (bool, error)
	Unsubscribe(ctx context.Context, kind domain.DestinationKind, id, sourceID string) (bool, error)
	SubscriptionsOf(ctx context.Context, kind domain.DestinationKind, id string) ([]string, error)
}

type StatusReporter interface {
	States() []scheduler.Status
}

type Server struct {
	sources      Sources
	history      History
	destinations Destinations
	status       StatusReporter
	accessKey    string
	router       chi.Router
	logger       *slog.Logger
}

func New(sources Sources, history History, destinations Destinations, status StatusReporter, accessKey string, logger *slog.Logger) *Server {
	s := &Server{
		sources:      sources,
		history:      history,
		destinations: destinations,
		status:       status,
		accessKey:    accessKey,
		logger:       logger.With("component", "api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.accessKey != "" {
			r.Use(s.authMiddleware)
		}
		r.Get("/status", s.handleStatus)
		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/{id}/latest", s.handleLatest)
			r.Get("/{id}/subscribers", s.handleSubscribers)
		})
		r.Route("/destinations/{kind}/{id}/subscriptions", func(r chi.Router) {
			r.Get("/", s.handleSubscriptions)
			r.Put("/{source}", s.handleSubscribe)
			r.Delete("/{source}", s.handleUnsubscribe)
		})
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if key == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.accessKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
