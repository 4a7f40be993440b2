package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	"github.com/lmoreira/funneltrack-backend/pkg/pagination"
)

// Repository reads normalized sales out of the ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListSales(ctx context.Context, query SalesQuery) ([]models.Sale, error)
}

// SalesQuery filters a ledger page. Limit is expected to already include
// the look-ahead row used for next-page detection.
type SalesQuery struct {
	ProjectID uuid.UUID
	Status    string
	From      time.Time
	To        time.Time
	Cursor    *pagination.Cursor
	Limit     int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListSales(ctx context.Context, query SalesQuery) ([]models.Sale, error) {
	q := r.db.WithContext(ctx).
		Where("project_id = ?", query.ProjectID)

	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if !query.From.IsZero() {
		q = q.Where("sale_timestamp >= ?", query.From)
	}
	if !query.To.IsZero() {
		q = q.Where("sale_timestamp < ?", query.To)
	}
	if query.Cursor != nil {
		q = q.Where(
			"(sale_timestamp, id) < (?, ?)",
			query.Cursor.CreatedAt, query.Cursor.ID,
		)
	}

	var sales []models.Sale
	err := q.Order("sale_timestamp DESC, id DESC").
		Limit(query.Limit).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}
