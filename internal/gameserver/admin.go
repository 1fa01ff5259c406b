package gameserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlerpg/internal/game/skill"
)

// AdminServer exposes health, metrics and runner controls over HTTP.
// It satisfies server.Service.
type AdminServer struct {
	httpServer *http.Server
	logger     *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// AdminDeps are the collaborators behind the admin routes.
type AdminDeps struct {
	Runner   *Runner
	Gatherer prometheus.Gatherer
	// LogLevel serves GET/PUT /loglevel when set, e.g. a zap.AtomicLevel.
	LogLevel http.Handler
	// Ready reports whether backing services are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

// NewAdminServer builds the admin HTTP server listening on addr.
//
// Precondition: deps.Runner and deps.Gatherer must be non-nil.
func NewAdminServer(addr string, deps AdminDeps, logger *zap.Logger) *AdminServer {
	return &AdminServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewAdminRouter(deps),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// NewAdminRouter returns the admin routes.
func NewAdminRouter(deps AdminDeps) http.Handler {
	runner := deps.Runner
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(req.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	if deps.LogLevel != nil {
		r.Handle("/loglevel", deps.LogLevel)
	}
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, runner.Status())
	})
	r.Route("/skills/{id}", func(r chi.Router) {
		r.Post("/unlock", func(w http.ResponseWriter, req *http.Request) {
			if err := runner.BuySkill(chi.URLParam(req, "id")); err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, runner.Status())
		})
		r.Post("/activate", func(w http.ResponseWriter, req *http.Request) {
			if err := runner.SetActive(chi.URLParam(req, "id")); err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, runner.Status())
		})
	})
	return r
}

// Start listens until Stop is called.
func (s *AdminServer) Start() error {
	s.logger.Info("admin server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down, waiting up to five seconds for requests.
func (s *AdminServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("admin server shutdown", zap.Error(err))
	}
}

// respondJSON encodes before writing the header so an unencodable payload
// becomes a 500 instead of a truncated 200.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "encoding response: " + err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnknownSkill):
		status = http.StatusNotFound
	case errors.Is(err, skill.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, skill.ErrAlreadyUnlocked):
		status = http.StatusConflict
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}
