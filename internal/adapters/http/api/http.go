// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/brickfield/appraisal/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Predict produces a valuation for a single property.
	Predict(ctx context.Context, req *model.ValuationRequest) (model.EnsembleResult, error)

	// PredictBatch values a portfolio, isolating per-property failures.
	PredictBatch(ctx context.Context, reqs []model.ValuationRequest) (model.BatchResult, error)

	// Ready reports whether the service is accepting traffic.
	Ready() bool

	// Degraded reports whether valuations are running on the heuristic
	// path only.
	Degraded() bool
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	valuationsHandler *ValuationsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(deps),
		statsHandler:      NewStatsHandler(statsProvider),
		valuationsHandler: NewValuationsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/v1/valuations/predict", MetricsMiddleware(s.valuationsHandler.HandlePredict, "predict"))
	mux.HandleFunc("/api/v1/valuations/batch", MetricsMiddleware(s.valuationsHandler.HandleBatch, "batch"))
}

// batchRequest mirrors the request schema for POST /api/v1/valuations/batch.
type batchRequest struct {
	Properties []model.ValuationRequest `json:"properties"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
