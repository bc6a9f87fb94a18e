// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brickfield/appraisal/internal/domain/features"
	"github.com/brickfield/appraisal/internal/domain/model"
)

// callerFault reports whether err is the caller's fault rather than a
// degraded-service condition.
func callerFault(err error) bool {
	return errors.Is(err, model.ErrInvalidInput) || errors.Is(err, features.ErrInvalidFeatureValue)
}

// ValuationsHandler handles valuation requests.
type ValuationsHandler struct {
	deps Dependencies
}

// NewValuationsHandler creates a new valuations handler.
func NewValuationsHandler(deps Dependencies) *ValuationsHandler {
	return &ValuationsHandler{deps: deps}
}

// HandlePredict handles POST /api/v1/valuations/predict requests.
func (h *ValuationsHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req model.ValuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	result, err := h.deps.Predict(r.Context(), &req)
	if err != nil {
		if callerFault(err) {
			writeError(w, http.StatusUnprocessableEntity, "invalid_input", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleBatch handles POST /api/v1/valuations/batch requests.
func (h *ValuationsHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Properties) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	result, err := h.deps.PredictBatch(r.Context(), req.Properties)
	if err != nil {
		if callerFault(err) {
			writeError(w, http.StatusUnprocessableEntity, "invalid_input", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
