package cron

import (
	"context"
	"fmt"

	"github.com/lmoreira/funneltrack-backend/pkg/logger"
)

type SyncJobParams struct {
	Logger *logger.Logger
	Sync   syncRunner
}

type syncRunner interface {
	RunAll(ctx context.Context) error
}

func NewSyncJob(params SyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sync == nil {
		return nil, fmt.Errorf("sync service required")
	}
	return &syncJob{logg: params.Logger, sync: params.Sync}, nil
}

type syncJob struct {
	logg *logger.Logger
	sync syncRunner
}

func (j *syncJob) Name() string { return "ledger-sync" }

func (j *syncJob) Run(ctx context.Context) error {
	if err := j.sync.RunAll(ctx); err != nil {
		return fmt.Errorf("ledger sync: %w", err)
	}
	j.logg.Info(ctx, "ledger sync complete")
	return nil
}
