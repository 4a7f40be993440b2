package sync

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lmoreira/funneltrack-backend/pkg/db"
	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
)

// Writer persists normalized records with upsert-by-natural-key semantics.
// Re-syncing a window overwrites rows in place, so runs are idempotent.
type Writer struct {
	db *gorm.DB
}

// NewWriter builds a writer on the provided GORM DB.
func NewWriter(gormDB *gorm.DB) *Writer {
	return &Writer{db: gormDB}
}

// WithTx returns a writer bound to the provided transaction.
func (w *Writer) WithTx(tx *gorm.DB) *Writer {
	return &Writer{db: tx}
}

var saleConflictColumns = []clause.Column{
	{Name: "project_id"}, {Name: "platform"}, {Name: "external_sale_id"},
}

var saleUpdateColumns = []string{
	"product_id", "product_name", "net_amount", "gross_amount", "status",
	"payment_method", "customer_email", "sale_timestamp",
	"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term",
	"updated_at",
}

// UpsertSales writes a batch of sales, overwriting rows that share the
// natural key. A unique violation that surfaces anyway means a concurrent
// run already wrote the row, which is the same outcome.
func (w *Writer) UpsertSales(ctx context.Context, sales []*models.Sale) (int, error) {
	if len(sales) == 0 {
		return 0, nil
	}
	err := w.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   saleConflictColumns,
			DoUpdates: clause.AssignmentColumns(saleUpdateColumns),
		}).
		Create(&sales).Error
	if err != nil && !db.IsUniqueViolation(err, "ux_sales_natural_key") {
		return 0, err
	}
	return len(sales), nil
}

var adSpendConflictColumns = []clause.Column{
	{Name: "project_id"}, {Name: "campaign_id"}, {Name: "ad_id"}, {Name: "date"},
}

var adSpendUpdateColumns = []string{
	"campaign_name", "adset_id", "adset_name", "ad_name", "spend",
	"impressions", "clicks", "link_clicks", "reach", "frequency", "cpc", "cpm",
	"landing_page_views", "checkouts_initiated", "thruplays", "video_3s_views",
	"daily_budget", "updated_at",
}

// UpsertAdSpend writes a batch of ad rows, overwriting restated days.
func (w *Writer) UpsertAdSpend(ctx context.Context, records []*models.AdSpendRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	err := w.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   adSpendConflictColumns,
			DoUpdates: clause.AssignmentColumns(adSpendUpdateColumns),
		}).
		Create(&records).Error
	if err != nil && !db.IsUniqueViolation(err, "ux_ad_spend_natural_key") {
		return 0, err
	}
	return len(records), nil
}
