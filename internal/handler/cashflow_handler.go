package handler

import (
	"net/http"
	"strconv"

	"github.com/flowsight/flowsight-bfa/internal/chart"
	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/service"
	"github.com/flowsight/flowsight-bfa/internal/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// viewCookie identifies a browser's cashflow page across requests.
const viewCookie = "fs_view"

func existingViewID(r *http.Request) (string, bool) {
	c, err := r.Cookie(viewCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// viewID returns the browser's view ID, issuing one when missing.
func viewID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := existingViewID(r); ok {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     viewCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// viewKey scopes a view to the signed-in user so a shared browser never
// shows one user's projection to another.
func viewKey(id string, s *domain.Session) string {
	if s.User == nil {
		return id
	}
	return id + ":" + s.User.ID
}

func requestViewKey(w http.ResponseWriter, r *http.Request) string {
	return viewKey(viewID(w, r), session.FromContext(r.Context()))
}

// loadProjectionHandler handles GET /v1/cashflow/projection?months&onlyChanges
func loadProjectionHandler(svc *service.CashflowService, defaultMonths int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cashflow/projection")
		defer span.End()

		params, err := parseProjectionParams(r, defaultMonths)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if params == nil {
			params = &domain.ProjectionParams{Months: defaultMonths}
		}
		span.SetAttributes(attribute.Int("projection.months", params.Months))

		view, err := svc.Load(ctx, requestViewKey(w, r), *params)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// currentProjectionHandler handles GET /v1/cashflow/projection/current
func currentProjectionHandler(svc *service.CashflowService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Current(requestViewKey(w, r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// chartHandler handles GET /v1/cashflow/chart.svg?months&onlyChanges&theme
func chartHandler(svc *service.CashflowService, defaultMonths int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cashflow/chart.svg")
		defer span.End()

		params, err := parseProjectionParams(r, defaultMonths)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		theme := chart.ParseTheme(r.URL.Query().Get("theme"))
		svg, err := svc.Chart(ctx, requestViewKey(w, r), params, domain.ProjectionParams{Months: defaultMonths}, theme)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(svg)
	}
}

// exportHandler handles GET /v1/cashflow/export.csv?months&onlyChanges
func exportHandler(svc *service.CashflowService, defaultMonths int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cashflow/export.csv")
		defer span.End()

		params, err := parseProjectionParams(r, defaultMonths)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		data, filename, err := svc.Export(ctx, requestViewKey(w, r), params, domain.ProjectionParams{Months: defaultMonths})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
