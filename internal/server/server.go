// Package server exposes a catalog.Source over HTTP using the same paths
// api.Remote requests, so the client can run against a local catalog.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/chefconnect/internal/catalog"
	"github.com/roach88/chefconnect/internal/recipe"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// RequestObserver receives one call per served request.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Options configures a Server.
type Options struct {
	Logger   *slog.Logger
	Observer RequestObserver
	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
}

// Server serves recipe routes under /api plus /healthz and /metrics.
type Server struct {
	src      catalog.Source
	log      *slog.Logger
	observer RequestObserver
	router   chi.Router
}

// New builds the router over src.
func New(src catalog.Source, opts Options) *Server {
	s := &Server{src: src, log: opts.Logger, observer: opts.Observer}
	if s.log == nil {
		s.log = slog.Default()
	}

	metrics := promhttp.Handler()
	if opts.Gatherer != nil {
		metrics = promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})
	}

	router := chi.NewRouter()
	router.Use(s.instrument)
	router.Get("/healthz", s.handleHealthz)
	router.Handle("/metrics", metrics)
	router.Route("/api", func(r chi.Router) {
		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/search", s.handleSearch)
			r.Get("/popular", s.handlePopular)
			r.Get("/{id}", s.handleGet)
			r.Put("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})
		r.Get("/users/{id}", s.handleAuthor)
		r.Get("/users/{id}/recipes", s.handleByAuthor)
		r.Get("/categories", s.handleCategories)
		r.Get("/categories/{id}/recipes", s.handleCategoryRecipes)
	})
	s.router = router
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("serving recipe api", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		s.log.Debug("request", "method", r.Method, "route", route, "status", rec.status, "elapsed", elapsed)
		if s.observer != nil {
			s.observer.ObserveRequest(r.Method, route, rec.status, elapsed)
		}
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	spec, err := recipe.ParseSpec(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := s.src.List(r.Context(), spec)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	spec, err := recipe.ParseSpec(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := s.src.Search(r.Context(), r.URL.Query().Get("q"), spec)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, &recipe.QueryError{Code: recipe.ErrCodeInvalidQuery, Field: "limit", Message: fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = n
	}
	recs, err := s.src.Popular(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.src.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in recipe.Recipe
	if err := decodeBody(r, &in); err != nil {
		respondError(w, err)
		return
	}
	rec, err := s.src.Create(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in recipe.Recipe
	if err := decodeBody(r, &in); err != nil {
		respondError(w, err)
		return
	}
	rec, err := s.src.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.src.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuthor(w http.ResponseWriter, r *http.Request) {
	a, err := s.src.Author(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleByAuthor(w http.ResponseWriter, r *http.Request) {
	recs, err := s.src.ByAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.src.Categories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCategoryRecipes(w http.ResponseWriter, r *http.Request) {
	spec, err := recipe.ParseSpec(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}
	spec.Category = chi.URLParam(r, "id")
	res, err := s.src.List(r.Context(), spec)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}
