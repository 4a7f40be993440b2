package cron

import (
	"context"
	"fmt"

	"github.com/lmoreira/funneltrack-backend/pkg/logger"
)

type SnapshotCleanupJobParams struct {
	Logger   *logger.Logger
	Insights snapshotCleaner
}

type snapshotCleaner interface {
	CleanupSnapshots(ctx context.Context) (int64, error)
}

func NewSnapshotCleanupJob(params SnapshotCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Insights == nil {
		return nil, fmt.Errorf("insights service required")
	}
	return &snapshotCleanupJob{logg: params.Logger, insights: params.Insights}, nil
}

type snapshotCleanupJob struct {
	logg     *logger.Logger
	insights snapshotCleaner
}

func (j *snapshotCleanupJob) Name() string { return "snapshot-cleanup" }

func (j *snapshotCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.insights.CleanupSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("snapshot cleanup: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_deleted", deleted)
	j.logg.Info(logCtx, "snapshot cleanup complete")
	return nil
}
