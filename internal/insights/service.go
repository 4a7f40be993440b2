package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lmoreira/funneltrack-backend/pkg/clock"
	"github.com/lmoreira/funneltrack-backend/pkg/config"
	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
	"github.com/lmoreira/funneltrack-backend/pkg/logger"
)

type ledgerRepository interface {
	SalesInRange(ctx context.Context, projectID uuid.UUID, productIDs []string, rng DateRange) ([]models.Sale, error)
	AdSpendInRange(ctx context.Context, projectID uuid.UUID, campaignIDs []string, rng DateRange) ([]models.AdSpendRecord, error)
	FindSnapshot(ctx context.Context, projectID uuid.UUID, rangeKey string, cacheDay time.Time) (*models.MetricsSnapshot, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type projectReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// Service is the metrics read path: serve a fresh snapshot when one exists,
// otherwise aggregate from the ledger, schedule the snapshot write, and
// return the computed value.
type Service interface {
	Metrics(ctx context.Context, projectID uuid.UUID, rangeKey enums.DateRangeKey) (*Metrics, error)
	Refresh(ctx context.Context, projectID uuid.UUID) error
	CleanupSnapshots(ctx context.Context) (int64, error)
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Repo     ledgerRepository
	Projects projectReader
	Cache    *Cache
	Clock    clock.ReportingClock
	Logger   *logger.Logger
	Config   config.InsightsConfig
}

type service struct {
	repo     ledgerRepository
	projects projectReader
	cache    *Cache
	clk      clock.ReportingClock
	logg     *logger.Logger
	cfg      config.InsightsConfig
}

// NewService builds the insights service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Projects == nil {
		return nil, fmt.Errorf("projects reader required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if params.Clock == nil {
		return nil, fmt.Errorf("reporting clock required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		projects: params.Projects,
		cache:    params.Cache,
		clk:      params.Clock,
		logg:     params.Logger,
		cfg:      params.Config,
	}, nil
}

func (s *service) Metrics(ctx context.Context, projectID uuid.UUID, rangeKey enums.DateRangeKey) (*Metrics, error) {
	if !rangeKey.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown date range %q", rangeKey))
	}
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	cacheDay := s.clk.Today()
	snapshot, err := s.repo.FindSnapshot(ctx, projectID, rangeKey.String(), cacheDay)
	if err != nil {
		return nil, err
	}
	if s.cache.Fresh(snapshot) {
		var cached Metrics
		if err := json.Unmarshal(snapshot.Metrics, &cached); err == nil {
			return &cached, nil
		}
		// corrupt payload: fall through and recompute
		s.logg.Warn(ctx, "discarding unreadable metrics snapshot")
	}

	return s.compute(ctx, project, rangeKey, cacheDay)
}

// Refresh recomputes and stores the default range snapshot, bypassing
// freshness. Called after sync runs so dashboards pick up new data.
func (s *service) Refresh(ctx context.Context, projectID uuid.UUID) error {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	_, err = s.compute(ctx, project, enums.DateRangeLast30Days, s.clk.Today())
	return err
}

// CleanupSnapshots deletes snapshots past the retention horizon.
func (s *service) CleanupSnapshots(ctx context.Context) (int64, error) {
	cutoff := s.clk.Now().Add(-s.cfg.SnapshotMaxAge)
	return s.repo.DeleteSnapshotsBefore(ctx, cutoff)
}

func (s *service) compute(ctx context.Context, project *models.Project, rangeKey enums.DateRangeKey, cacheDay time.Time) (*Metrics, error) {
	rng := ResolveRange(rangeKey, s.clk)

	sales, err := s.repo.SalesInRange(ctx, project.ID, project.ProductIDs, rng)
	if err != nil {
		return nil, err
	}
	ads, err := s.repo.AdSpendInRange(ctx, project.ID, project.CampaignIDs, rng)
	if err != nil {
		return nil, err
	}

	metrics := Aggregate(project.AttributionMode, project.TicketPrice, sales, ads)

	payload, err := json.Marshal(metrics)
	if err != nil {
		return nil, fmt.Errorf("encoding metrics snapshot: %w", err)
	}
	s.cache.Write(ctx, &models.MetricsSnapshot{
		ProjectID:    project.ID,
		DateRangeKey: rangeKey.String(),
		CacheDay:     cacheDay,
		Metrics:      payload,
		UpdatedAt:    s.clk.Now(),
	})

	return &metrics, nil
}
