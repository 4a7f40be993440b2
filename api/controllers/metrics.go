package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lmoreira/funneltrack-backend/api/responses"
	"github.com/lmoreira/funneltrack-backend/internal/insights"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
	"github.com/lmoreira/funneltrack-backend/pkg/logger"
)

// ProjectMetrics serves the aggregated dashboard metrics for a project,
// from the snapshot cache when it is still fresh.
func ProjectMetrics(svc insights.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "insights service unavailable"))
			return
		}

		projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid project id"))
			return
		}

		rangeKey := enums.DateRangeLast30Days
		if raw := strings.TrimSpace(r.URL.Query().Get("range")); raw != "" {
			parsed, err := enums.ParseDateRangeKey(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown range"))
				return
			}
			rangeKey = parsed
		}

		metrics, err := svc.Metrics(r.Context(), projectID, rangeKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, metrics)
	}
}
