package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/flowsight/flowsight-bfa/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// fetchFailedMessage is the notification shown when a projection fetch fails.
const fetchFailedMessage = "キャッシュフロー予測の取得に失敗しました"

type errorResponse struct {
	Error string `json:"error"`
}

// staleResponse answers a failed load with the view that stays on screen.
type staleResponse struct {
	Error string                 `json:"error"`
	Stale *domain.ProjectionView `json:"stale,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseProjectionParams reads months and onlyChanges. It returns nil when
// neither is present so the caller can fall back to the current view.
func parseProjectionParams(r *http.Request, defaultMonths int) (*domain.ProjectionParams, error) {
	q := r.URL.Query()
	if !q.Has("months") && !q.Has("onlyChanges") {
		return nil, nil
	}

	params := &domain.ProjectionParams{Months: defaultMonths}
	if v := q.Get("months"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "months", Message: "must be an integer"}
		}
		params.Months = m
	}
	if v := q.Get("onlyChanges"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "onlyChanges", Message: "must be true or false"}
		}
		params.OnlyChanges = b
	}
	return params, params.Validate()
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var unauthorized *domain.ErrUnauthorized
	var superseded *domain.ErrSuperseded
	var validation *domain.ErrValidation
	var notFound *domain.ErrNotFound
	var fetchFailed *domain.ErrFetchFailed
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, "ログインが必要です")
	case errors.As(err, &superseded):
		logger.Debug("superseded load", zap.Uint64("seq", superseded.Seq), zap.Uint64("latest", superseded.Latest))
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoData):
		logger.Debug("export refused: no data")
		writeError(w, http.StatusUnprocessableEntity, domain.ErrNoData.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &fetchFailed):
		status := http.StatusBadGateway
		switch {
		case errors.As(err, &circuitOpen):
			status = http.StatusServiceUnavailable
		case errors.As(err, &timeout):
			status = http.StatusGatewayTimeout
		}
		logger.Error("projection fetch failed", zap.Int("status", status), zap.Error(err))
		writeJSON(w, status, staleResponse{Error: fetchFailedMessage, Stale: fetchFailed.Stale})
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &external):
		logger.Error("backend error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "backend unavailable")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
