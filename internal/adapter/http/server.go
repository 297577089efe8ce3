package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-bom-service/internal/adapter/memory"
	"github.com/couchcryptid/weather-bom-service/internal/domain"
)

var validate = validator.New()

// StateReader exposes the last published values.
type StateReader interface {
	Snapshot() map[string]memory.Entry
}

// Server exposes health, readiness, metrics, published state and, when
// dynamic location is enabled, coordinate ingress.
type Server struct {
	httpServer *http.Server
	updates    chan<- domain.AxisUpdate
	logger     *slog.Logger
}

// NewServer creates the HTTP server. Pass a nil updates channel to reject
// coordinate updates.
func NewServer(addr string, ready sharedobs.ReadinessChecker, state StateReader, updates chan<- domain.AxisUpdate, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		updates: updates,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /state", handleState(state))
	mux.HandleFunc("POST /coordinates/{axis}", s.handleCoordinate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleState(state StateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, state.Snapshot())
	}
}

type latitudeRequest struct {
	Value *float64 `json:"value" validate:"required,gte=-90,lte=90"`
}

type longitudeRequest struct {
	Value *float64 `json:"value" validate:"required,gte=-180,lte=180"`
}

func (s *Server) handleCoordinate(w http.ResponseWriter, r *http.Request) {
	if s.updates == nil {
		writeError(w, http.StatusConflict, errors.New("dynamic location is not enabled"))
		return
	}
	axis, err := domain.ParseAxis(r.PathValue("axis"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var value *float64
	switch axis {
	case domain.AxisLatitude:
		var req latitudeRequest
		err = decodeAndValidate(body, &req)
		value = req.Value
	case domain.AxisLongitude:
		var req longitudeRequest
		err = decodeAndValidate(body, &req)
		value = req.Value
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u := domain.AxisUpdate{Axis: axis, Value: float32(*value)}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	select {
	case s.updates <- u:
		writeJSON(w, http.StatusAccepted, u)
	case <-ctx.Done():
		s.logger.Warn("coordinate update not accepted", "axis", axis)
		writeError(w, http.StatusServiceUnavailable, errors.New("update queue full"))
	}
}

func decodeAndValidate(body []byte, req any) error {
	if err := json.Unmarshal(body, req); err != nil {
		return err
	}
	return validate.Struct(req)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
