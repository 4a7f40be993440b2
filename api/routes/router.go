package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lmoreira/funneltrack-backend/api/controllers"
	"github.com/lmoreira/funneltrack-backend/api/middleware"
	"github.com/lmoreira/funneltrack-backend/internal/insights"
	"github.com/lmoreira/funneltrack-backend/internal/ledger"
	"github.com/lmoreira/funneltrack-backend/internal/projects"
	syncsvc "github.com/lmoreira/funneltrack-backend/internal/sync"
	"github.com/lmoreira/funneltrack-backend/pkg/config"
	"github.com/lmoreira/funneltrack-backend/pkg/db"
	"github.com/lmoreira/funneltrack-backend/pkg/logger"
)

type redisPinger interface {
	Ping(ctx context.Context) error
}

// Params collects everything the router wires into its handlers.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    redisPinger
	Projects projects.Service
	Sync     syncsvc.Service
	Insights insights.Service
	Ledger   ledger.Service
}

func NewRouter(params Params) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	r.Route("/api/v1/projects", func(r chi.Router) {
		r.Post("/", controllers.CreateProject(params.Projects, logg))
		r.Route("/{projectId}", func(r chi.Router) {
			r.Get("/", controllers.GetProject(params.Projects, logg))
			r.Put("/credentials", controllers.SaveCredential(params.Projects, logg))
			r.Post("/sync", controllers.TriggerSync(params.Sync, logg))
			r.Get("/metrics", controllers.ProjectMetrics(params.Insights, logg))
			r.Get("/sales", controllers.ListSales(params.Ledger, logg))
		})
	})

	return r
}
