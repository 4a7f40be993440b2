package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lmoreira/funneltrack-backend/api/responses"
	"github.com/lmoreira/funneltrack-backend/api/validators"
	"github.com/lmoreira/funneltrack-backend/internal/ledger"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
	"github.com/lmoreira/funneltrack-backend/pkg/logger"
	"github.com/lmoreira/funneltrack-backend/pkg/pagination"
)

// ListSales returns a cursor-paginated page of the project's ledger.
func ListSales(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid project id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := ledger.ListSalesParams{
			ProjectID: projectID,
			Status:    strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		if from := strings.TrimSpace(r.URL.Query().Get("from")); from != "" {
			t, err := time.Parse("2006-01-02", from)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from date"))
				return
			}
			params.From = t
		}
		if to := strings.TrimSpace(r.URL.Query().Get("to")); to != "" {
			t, err := time.Parse("2006-01-02", to)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to date"))
				return
			}
			params.To = t
		}

		resp, err := svc.ListSales(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
