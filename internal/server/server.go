package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dshills/prgate/internal/orchestrator"
	"github.com/dshills/prgate/internal/review"
)

// DefaultTimeout bounds a single API request.
const DefaultTimeout = 5 * time.Minute

const maxBodyBytes = 10 << 20

// Reviewer is the part of the orchestrator the HTTP service drives.
type Reviewer interface {
	Review(ctx context.Context, req orchestrator.Request) (*review.ReviewResult, error)
	AnalyzeFiles(ctx context.Context, files map[string]string) (*review.ReviewResult, error)
	Servers() []string
}

// Options configure a Server.
type Options struct {
	Logger  *slog.Logger
	Version string
	Timeout time.Duration
}

// Server handles HTTP requests.
type Server struct {
	router  *chi.Mux
	rev     Reviewer
	log     *slog.Logger
	version string
	now     func() time.Time
}

// New returns a server backed by rev.
func New(rev Reviewer, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	s := &Server{rev: rev, log: opts.Logger, version: opts.Version, now: time.Now}
	s.setupRoutes(opts.Timeout)
	return s
}

func (s *Server) setupRoutes(timeout time.Duration) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", s.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/servers", s.listServers)
		r.Post("/reviews", s.createReview)
		r.Post("/analyze", s.analyzeFiles)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, review.Errorf(review.KindNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: review.Public{
			Kind:    review.KindInvalidRequest,
			Message: fmt.Sprintf("method %s not allowed", r.Method),
		}})
	})

	s.router = r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down", "addr", addr)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   orchestrator.Tool,
		"version":   s.version,
		"servers":   s.rev.Servers(),
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) listServers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"servers": s.rev.Servers()})
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.Request
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.rev.Review(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type analyzeRequest struct {
	Files map[string]string `json:"files"`
}

func (s *Server) analyzeFiles(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Files) == 0 {
		s.writeError(w, r, review.Errorf(review.KindInvalidRequest, "files must not be empty"))
		return
	}
	res, err := s.rev.AnalyzeFiles(r.Context(), req.Files)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return review.NewError(review.KindInvalidRequest, "malformed request body", err)
	}
	return nil
}

type errorBody struct {
	Error review.Public `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	pub := review.PublicError(err)
	status := StatusFor(pub.Kind)
	s.log.Warn("request failed",
		"path", r.URL.Path,
		"kind", pub.Kind,
		"stage", pub.Stage,
		"status", status,
		"err", err,
	)
	s.writeJSON(w, status, errorBody{Error: pub})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("writing response", "err", err)
	}
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(kind review.Kind) int {
	switch kind {
	case review.KindInvalidRequest:
		return http.StatusBadRequest
	case review.KindNotFound:
		return http.StatusNotFound
	case review.KindAuth:
		return http.StatusUnauthorized
	case review.KindRateLimited, review.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case review.KindCanceled:
		return http.StatusGatewayTimeout
	case review.KindTransient, review.KindPost:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
