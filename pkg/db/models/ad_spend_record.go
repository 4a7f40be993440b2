package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdSpendRecord is one (campaign, ad, day) performance snapshot from the ads
// platform. Re-fetching the same day overwrites in place: the source keeps
// restating values for a day as attribution windows close.
type AdSpendRecord struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID          uuid.UUID       `gorm:"column:project_id;type:uuid;not null;index;uniqueIndex:ux_ad_spend_natural_key"`
	CampaignID         string          `gorm:"column:campaign_id;type:text;not null;uniqueIndex:ux_ad_spend_natural_key"`
	CampaignName       string          `gorm:"column:campaign_name;type:text"`
	AdsetID            string          `gorm:"column:adset_id;type:text"`
	AdsetName          string          `gorm:"column:adset_name;type:text"`
	AdID               string          `gorm:"column:ad_id;type:text;not null;uniqueIndex:ux_ad_spend_natural_key"`
	AdName             string          `gorm:"column:ad_name;type:text"`
	Date               time.Time       `gorm:"column:date;type:date;not null;index;uniqueIndex:ux_ad_spend_natural_key"`
	Spend              decimal.Decimal `gorm:"column:spend;type:numeric(12,2);not null"`
	Impressions        int64           `gorm:"column:impressions;not null;default:0"`
	Clicks             int64           `gorm:"column:clicks;not null;default:0"`
	LinkClicks         int64           `gorm:"column:link_clicks;not null;default:0"`
	Reach              int64           `gorm:"column:reach;not null;default:0"`
	Frequency          decimal.Decimal `gorm:"column:frequency;type:numeric(10,4);not null;default:0"`
	CPC                decimal.Decimal `gorm:"column:cpc;type:numeric(12,4);not null;default:0"`
	CPM                decimal.Decimal `gorm:"column:cpm;type:numeric(12,4);not null;default:0"`
	LandingPageViews   int64           `gorm:"column:landing_page_views;not null;default:0"`
	CheckoutsInitiated int64           `gorm:"column:checkouts_initiated;not null;default:0"`
	Thruplays          int64           `gorm:"column:thruplays;not null;default:0"`
	Video3sViews       int64           `gorm:"column:video_3s_views;not null;default:0"`
	DailyBudget        decimal.Decimal `gorm:"column:daily_budget;type:numeric(12,2);not null;default:0"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
