package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lmoreira/funneltrack-backend/api/responses"
	syncsvc "github.com/lmoreira/funneltrack-backend/internal/sync"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
	"github.com/lmoreira/funneltrack-backend/pkg/logger"
)

type syncResponse struct {
	SalesSynced   int               `json:"salesSynced"`
	AdSpendSynced int               `json:"adSpendSynced"`
	Sources       map[string]string `json:"sources"`
}

// TriggerSync runs a reconciliation pass for one project. The operation is
// idempotent, so repeated or concurrent calls are safe.
func TriggerSync(svc syncsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}

		projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid project id"))
			return
		}

		result, err := svc.Run(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := syncResponse{
			SalesSynced:   result.SalesSynced,
			AdSpendSynced: result.AdSpendSynced,
			Sources:       map[string]string{},
		}
		for _, platform := range result.Sources {
			if srcErr, failed := result.SourceErrors[platform]; failed {
				resp.Sources[platform.String()] = srcErr.Error()
			} else {
				resp.Sources[platform.String()] = "ok"
			}
		}
		responses.WriteSuccess(w, resp)
	}
}
