package sync

import (
	"context"
	"fmt"
	sdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/lmoreira/funneltrack-backend/internal/normalize"
	"github.com/lmoreira/funneltrack-backend/internal/platforms"
	"github.com/lmoreira/funneltrack-backend/pkg/config"
	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
	"github.com/lmoreira/funneltrack-backend/pkg/logger"
	"github.com/lmoreira/funneltrack-backend/pkg/metrics"
)

type projectsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListActive(ctx context.Context) ([]models.Project, error)
	ActiveCredentials(ctx context.Context, projectID uuid.UUID) ([]models.IntegrationCredential, error)
	AdvanceLastSyncAt(ctx context.Context, projectID uuid.UUID, syncedAt time.Time) error
}

type ledgerWriter interface {
	UpsertSales(ctx context.Context, sales []*models.Sale) (int, error)
	UpsertAdSpend(ctx context.Context, records []*models.AdSpendRecord) (int, error)
}

type snapshotRefresher interface {
	Refresh(ctx context.Context, projectID uuid.UUID) error
}

// Result summarizes one reconciliation run. Sources lists every platform
// the run attempted; a platform missing from SourceErrors completed cleanly.
type Result struct {
	SalesSynced   int
	AdSpendSynced int
	Sources       []enums.PlatformType
	SourceErrors  map[enums.PlatformType]error
}

// Service reconciles one project's ledger against its source platforms.
type Service interface {
	Run(ctx context.Context, projectID uuid.UUID) (*Result, error)
	RunAll(ctx context.Context) error
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Projects projectsRepository
	Writer   ledgerWriter
	Planner  *Planner
	Sales    []platforms.SalesSource
	Ads      []platforms.AdsSource
	Insights snapshotRefresher
	Guard    *RunGuard
	Logger   *logger.Logger
	Metrics  *metrics.SyncMetrics
	Config   config.SyncConfig
}

type service struct {
	projects projectsRepository
	writer   ledgerWriter
	planner  *Planner
	sales    map[enums.PlatformType]platforms.SalesSource
	ads      map[enums.PlatformType]platforms.AdsSource
	insights snapshotRefresher
	guard    *RunGuard
	logg     *logger.Logger
	metrics  *metrics.SyncMetrics
	cfg      config.SyncConfig
}

// NewService builds the sync service.
func NewService(params ServiceParams) (Service, error) {
	if params.Projects == nil {
		return nil, fmt.Errorf("projects repository required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if params.Planner == nil {
		return nil, fmt.Errorf("planner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(params.Sales) == 0 && len(params.Ads) == 0 {
		return nil, fmt.Errorf("at least one source required")
	}

	sales := make(map[enums.PlatformType]platforms.SalesSource, len(params.Sales))
	for _, src := range params.Sales {
		sales[src.Platform()] = src
	}
	ads := make(map[enums.PlatformType]platforms.AdsSource, len(params.Ads))
	for _, src := range params.Ads {
		ads[src.Platform()] = src
	}

	return &service{
		projects: params.Projects,
		writer:   params.Writer,
		planner:  params.Planner,
		sales:    sales,
		ads:      ads,
		insights: params.Insights,
		guard:    params.Guard,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      params.Config,
	}, nil
}

// Run reconciles one project. Each configured source runs in its own
// goroutine; one source failing never blocks the others. The watermark
// advances only when at least one source completed, and only forward.
func (s *service) Run(ctx context.Context, projectID uuid.UUID) (*Result, error) {
	release, err := s.guard.Acquire(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer release()

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	creds, err := s.projects.ActiveCredentials(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithProjectID(ctx, projectID.String())
	window := s.planner.Plan(project.LastSyncAt)
	watermark := window.To

	result := &Result{SourceErrors: map[enums.PlatformType]error{}}
	var mu sdsync.Mutex
	var wg sdsync.WaitGroup

	for _, cred := range creds {
		salesSrc, isSales := s.sales[cred.Platform]
		adsSrc, isAds := s.ads[cred.Platform]
		if !isSales && !isAds {
			continue
		}

		result.Sources = append(result.Sources, cred.Platform)
		wg.Add(1)
		go func(cred models.IntegrationCredential) {
			defer wg.Done()

			srcCtx := s.logg.WithPlatform(ctx, cred.Platform.String())
			if s.cfg.SourceTimeout > 0 {
				var cancel context.CancelFunc
				srcCtx, cancel = context.WithTimeout(srcCtx, s.cfg.SourceTimeout)
				defer cancel()
			}

			var count int
			var srcErr error
			if isSales {
				count, srcErr = s.syncSales(srcCtx, project, salesSrc, credentialsOf(cred), window)
			} else {
				count, srcErr = s.syncAdSpend(srcCtx, project, adsSrc, credentialsOf(cred), window)
			}

			mu.Lock()
			defer mu.Unlock()
			if srcErr != nil {
				result.SourceErrors[cred.Platform] = srcErr
				s.metrics.IncSourceFailure(cred.Platform.String())
				s.logg.Error(srcCtx, "source sync failed", srcErr)
				return
			}
			if isSales {
				result.SalesSynced += count
			} else {
				result.AdSpendSynced += count
			}
			s.metrics.AddRecordsSynced(cred.Platform.String(), count)
		}(cred)
	}
	wg.Wait()

	attempted := result.SalesSynced + result.AdSpendSynced
	succeeded := len(result.SourceErrors) < sourceCount(s, creds)
	if succeeded {
		if err := s.projects.AdvanceLastSyncAt(ctx, projectID, watermark); err != nil {
			return result, fmt.Errorf("advancing watermark: %w", err)
		}
	}
	if s.insights != nil && attempted > 0 {
		if err := s.insights.Refresh(ctx, projectID); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("snapshot refresh failed: %v", err))
		}
	}

	if !succeeded && len(result.SourceErrors) > 0 {
		var combined error
		for platform, srcErr := range result.SourceErrors {
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", platform, srcErr))
		}
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "all sources failed")
	}
	return result, nil
}

// RunAll syncs every active project sequentially. Used by the scheduled job.
func (s *service) RunAll(ctx context.Context) error {
	list, err := s.projects.ListActive(ctx)
	if err != nil {
		return err
	}
	var combined error
	for _, project := range list {
		if ctx.Err() != nil {
			return multierr.Append(combined, ctx.Err())
		}
		if _, err := s.Run(ctx, project.ID); err != nil {
			combined = multierr.Append(combined, fmt.Errorf("project %s: %w", project.ID, err))
		}
	}
	return combined
}

func (s *service) syncSales(ctx context.Context, project *models.Project, src platforms.SalesSource, creds platforms.Credentials, window platforms.Window) (int, error) {
	session, err := src.Authenticate(ctx, creds)
	if err != nil {
		return 0, err
	}

	salesWindow := s.planner.SalesWindow(window)
	allowedProducts := toSet(project.ProductIDs)

	total := 0
	cursor := ""
	for {
		page, err := s.fetchSalesPage(ctx, src, session, creds, salesWindow, cursor)
		if err != nil {
			return total, err
		}

		batch := make([]*models.Sale, 0, len(page.Records))
		for _, raw := range page.Records {
			if len(allowedProducts) > 0 && !allowedProducts[raw.ProductID] {
				continue
			}
			sale, err := normalize.Sale(project.ID, src.Platform(), raw, project.TicketPrice)
			if err != nil {
				s.logg.Warn(ctx, fmt.Sprintf("dropping invalid sale record: %v", err))
				continue
			}
			batch = append(batch, sale)
		}

		written, err := s.writer.UpsertSales(ctx, batch)
		if err != nil {
			return total, err
		}
		total += written

		if page.Done {
			return total, nil
		}
		cursor = page.NextCursor
	}
}

func (s *service) syncAdSpend(ctx context.Context, project *models.Project, src platforms.AdsSource, creds platforms.Credentials, window platforms.Window) (int, error) {
	session, err := src.Authenticate(ctx, creds)
	if err != nil {
		return 0, err
	}

	allowedCampaigns := toSet(project.CampaignIDs)

	total := 0
	cursor := ""
	for {
		page, err := s.fetchAdSpendPage(ctx, src, session, creds, window, cursor)
		if err != nil {
			return total, err
		}

		batch := make([]*models.AdSpendRecord, 0, len(page.Records))
		for _, raw := range page.Records {
			if len(allowedCampaigns) > 0 && !allowedCampaigns[raw.CampaignID] {
				continue
			}
			record, err := normalize.AdSpend(project.ID, raw)
			if err != nil {
				s.logg.Warn(ctx, fmt.Sprintf("dropping invalid ad row: %v", err))
				continue
			}
			batch = append(batch, record)
		}

		written, err := s.writer.UpsertAdSpend(ctx, batch)
		if err != nil {
			return total, err
		}
		total += written

		if page.Done {
			return total, nil
		}
		cursor = page.NextCursor
	}
}

func (s *service) fetchSalesPage(ctx context.Context, src platforms.SalesSource, session *platforms.Session, creds platforms.Credentials, window platforms.Window, cursor string) (*platforms.SalesPage, error) {
	var page *platforms.SalesPage
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		var err error
		page, err = src.FetchPage(ctx, session, creds, window, cursor)
		if err != nil && platforms.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	return page, err
}

func (s *service) fetchAdSpendPage(ctx context.Context, src platforms.AdsSource, session *platforms.Session, creds platforms.Credentials, window platforms.Window, cursor string) (*platforms.AdSpendPage, error) {
	var page *platforms.AdSpendPage
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		var err error
		page, err = src.FetchPage(ctx, session, creds, window, cursor)
		if err != nil && platforms.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	return page, err
}

func (s *service) backoff() retry.Backoff {
	base := s.cfg.RetryBaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	max := s.cfg.MaxRetries
	if max <= 0 {
		max = 3
	}
	return retry.WithMaxRetries(uint64(max), retry.NewExponential(base))
}

func (s *service) sourceFor(platform enums.PlatformType) bool {
	_, isSales := s.sales[platform]
	_, isAds := s.ads[platform]
	return isSales || isAds
}

func sourceCount(s *service, creds []models.IntegrationCredential) int {
	count := 0
	for _, cred := range creds {
		if s.sourceFor(cred.Platform) {
			count++
		}
	}
	return count
}

func credentialsOf(cred models.IntegrationCredential) platforms.Credentials {
	return platforms.Credentials{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		AccessToken:  cred.AccessToken,
		AccountID:    cred.AccountID,
	}
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
