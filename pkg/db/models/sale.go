package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmoreira/funneltrack-backend/pkg/enums"
)

// Sale is one transaction reported by a checkout platform, normalized into
// the canonical shape. The (platform, external_sale_id) pair is the natural
// key: re-running a sync overwrites the row in place instead of duplicating
// it. GrossAmount is resolved at write time (ticket override, else charge
// minus fee, else net) so readers never re-derive it.
type Sale struct {
	ID             uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID      uuid.UUID          `gorm:"column:project_id;type:uuid;not null;index;uniqueIndex:ux_sales_natural_key"`
	Platform       enums.PlatformType `gorm:"column:platform;type:text;not null;uniqueIndex:ux_sales_natural_key"`
	ExternalSaleID string             `gorm:"column:external_sale_id;type:text;not null;uniqueIndex:ux_sales_natural_key"`
	ProductID      string             `gorm:"column:product_id;type:text;index"`
	ProductName    string             `gorm:"column:product_name;type:text"`
	NetAmount      decimal.Decimal    `gorm:"column:net_amount;type:numeric(12,2);not null"`
	GrossAmount    decimal.Decimal    `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	Status         enums.SaleStatus   `gorm:"column:status;type:text;not null"`
	PaymentMethod  string             `gorm:"column:payment_method;type:text"`
	CustomerEmail  string             `gorm:"column:customer_email;type:text"`
	SaleTimestamp  time.Time          `gorm:"column:sale_timestamp;type:timestamptz;not null;index"`
	UTMSource      *string            `gorm:"column:utm_source;type:text"`
	UTMMedium      *string            `gorm:"column:utm_medium;type:text"`
	UTMCampaign    *string            `gorm:"column:utm_campaign;type:text"`
	UTMContent     *string            `gorm:"column:utm_content;type:text"`
	UTMTerm        *string            `gorm:"column:utm_term;type:text"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
