package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/lmoreira/funneltrack-backend/pkg/enums"
)

// Project scopes a reconciled ledger: one product launch or storefront whose
// sales and ad spend are aggregated together.
type Project struct {
	ID              uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string                `gorm:"column:name;type:text;not null"`
	AttributionMode enums.AttributionMode `gorm:"column:attribution_mode;type:text;not null;default:'net'"`
	TicketPrice     *decimal.Decimal      `gorm:"column:ticket_price;type:numeric(12,2)"`
	ProductIDs      pq.StringArray        `gorm:"column:product_ids;type:text[];default:ARRAY[]::text[]"`
	CampaignIDs     pq.StringArray        `gorm:"column:campaign_ids;type:text[];default:ARRAY[]::text[]"`
	LastSyncAt      *time.Time            `gorm:"column:last_sync_at;type:timestamptz"`
	Active          bool                  `gorm:"column:active;not null;default:true"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
