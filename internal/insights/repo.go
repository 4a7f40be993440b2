package insights

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lmoreira/funneltrack-backend/pkg/db"
	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
)

// Repository reads ledger rows for aggregation and persists snapshots.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(gormDB *gorm.DB) *Repository {
	return &Repository{db: gormDB}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// SalesInRange loads the project's sales inside the half-open range,
// scoped to the product allow-list when one is configured.
func (r *Repository) SalesInRange(ctx context.Context, projectID uuid.UUID, productIDs []string, rng DateRange) ([]models.Sale, error) {
	query := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where("sale_timestamp < ?", rng.To)
	if !rng.From.IsZero() {
		query = query.Where("sale_timestamp >= ?", rng.From)
	}
	if len(productIDs) > 0 {
		query = query.Where("product_id IN ?", []string(productIDs))
	}

	var sales []models.Sale
	if err := query.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// AdSpendInRange loads the project's ad rows inside the half-open range,
// scoped to the campaign allow-list when one is configured.
func (r *Repository) AdSpendInRange(ctx context.Context, projectID uuid.UUID, campaignIDs []string, rng DateRange) ([]models.AdSpendRecord, error) {
	query := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where("date < ?", rng.To)
	if !rng.From.IsZero() {
		query = query.Where("date >= ?", rng.From)
	}
	if len(campaignIDs) > 0 {
		query = query.Where("campaign_id IN ?", []string(campaignIDs))
	}

	var records []models.AdSpendRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindSnapshot returns the snapshot for the key, or nil when absent.
func (r *Repository) FindSnapshot(ctx context.Context, projectID uuid.UUID, rangeKey string, cacheDay time.Time) (*models.MetricsSnapshot, error) {
	var snapshot models.MetricsSnapshot
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND date_range_key = ? AND cache_day = ?", projectID, rangeKey, cacheDay).
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

var snapshotConflictColumns = []clause.Column{
	{Name: "project_id"}, {Name: "date_range_key"}, {Name: "cache_day"},
}

// UpsertSnapshot writes the snapshot for its composite key. A uniqueness
// conflict surfacing anyway means a concurrent writer landed first; the
// stored value is current enough.
func (r *Repository) UpsertSnapshot(ctx context.Context, snapshot *models.MetricsSnapshot) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   snapshotConflictColumns,
			DoUpdates: clause.AssignmentColumns([]string{"metrics", "updated_at"}),
		}).
		Create(snapshot).Error
	if err != nil && !db.IsUniqueViolation(err, "ux_metrics_snapshot_key") {
		return err
	}
	return nil
}

// DeleteSnapshotsBefore removes snapshots older than the cutoff. Snapshots
// are disposable, so cleanup is purely hygienic.
func (r *Repository) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.MetricsSnapshot{})
	return result.RowsAffected, result.Error
}
