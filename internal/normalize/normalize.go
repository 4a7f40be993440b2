// Package normalize is the single mapping surface between raw platform
// payloads and the canonical ledger rows. Every status value, amount unit,
// and action key quirk is resolved here so the rest of the engine only sees
// canonical shapes.
package normalize

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmoreira/funneltrack-backend/internal/platforms"
	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
)

// Meta action keys extracted into dedicated columns.
const (
	actionLandingPageView  = "landing_page_view"
	actionInitiateCheckout = "initiate_checkout"
	actionThruplay         = "thruplay"
	actionVideo3sView      = "video_3s_view"
)

var kiwifyStatuses = map[string]enums.SaleStatus{
	"paid":            enums.SaleStatusPaid,
	"waiting_payment": enums.SaleStatusPending,
	"refunded":        enums.SaleStatusRefunded,
	"chargedback":     enums.SaleStatusRefunded,
	"refused":         enums.SaleStatusCanceled,
}

var hotmartStatuses = map[string]enums.SaleStatus{
	"approved":        enums.SaleStatusPaid,
	"complete":        enums.SaleStatusPaid,
	"waiting_payment": enums.SaleStatusPending,
	"printed_billet":  enums.SaleStatusPending,
	"under_analisys":  enums.SaleStatusPending,
	"refunded":        enums.SaleStatusRefunded,
	"chargeback":      enums.SaleStatusRefunded,
	"cancelled":       enums.SaleStatusCanceled,
	"expired":         enums.SaleStatusCanceled,
}

// Sale maps one raw platform transaction to a ledger row. The gross amount
// is resolved in three tiers: a configured ticket price overrides everything,
// else the charged amount minus the platform fee, else the net amount.
// Records without a natural key are rejected.
func Sale(projectID uuid.UUID, platform enums.PlatformType, raw platforms.RawSale, ticketPrice *decimal.Decimal) (*models.Sale, error) {
	if raw.ExternalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s sale missing external id", platform))
	}
	if raw.Timestamp.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s sale %s missing timestamp", platform, raw.ExternalID))
	}

	net := decimal.New(raw.NetCents, -2)

	var gross decimal.Decimal
	switch {
	case ticketPrice != nil && ticketPrice.IsPositive():
		gross = *ticketPrice
	case raw.ChargeCents > 0:
		gross = decimal.New(raw.ChargeCents-raw.FeeCents, -2)
	default:
		gross = net
	}

	return &models.Sale{
		ProjectID:      projectID,
		Platform:       platform,
		ExternalSaleID: raw.ExternalID,
		ProductID:      raw.ProductID,
		ProductName:    raw.ProductName,
		NetAmount:      net,
		GrossAmount:    gross,
		Status:         SaleStatus(platform, raw.Status),
		PaymentMethod:  strings.ToLower(raw.PaymentMethod),
		CustomerEmail:  strings.ToLower(strings.TrimSpace(raw.CustomerEmail)),
		SaleTimestamp:  raw.Timestamp.UTC(),
		UTMSource:      optional(raw.UTM.Source),
		UTMMedium:      optional(raw.UTM.Medium),
		UTMCampaign:    optional(raw.UTM.Campaign),
		UTMContent:     optional(raw.UTM.Content),
		UTMTerm:        optional(raw.UTM.Term),
	}, nil
}

// SaleStatus maps a platform-native status onto the canonical set. Statuses
// the map does not know count as canceled so they never inflate revenue.
func SaleStatus(platform enums.PlatformType, raw string) enums.SaleStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	var mapped enums.SaleStatus
	var ok bool
	switch platform {
	case enums.PlatformKiwify:
		mapped, ok = kiwifyStatuses[key]
	case enums.PlatformHotmart:
		mapped, ok = hotmartStatuses[key]
	}
	if !ok {
		return enums.SaleStatusCanceled
	}
	return mapped
}

// AdSpend maps one raw ad row to a ledger row, pulling the tracked action
// types into their columns. An action type absent from the payload counts
// as zero.
func AdSpend(projectID uuid.UUID, raw platforms.RawAdRow) (*models.AdSpendRecord, error) {
	if raw.CampaignID == "" || raw.AdID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ad row missing campaign or ad id")
	}
	if raw.Date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("ad row %s/%s missing date", raw.CampaignID, raw.AdID))
	}

	return &models.AdSpendRecord{
		ProjectID:          projectID,
		CampaignID:         raw.CampaignID,
		CampaignName:       raw.CampaignName,
		AdsetID:            raw.AdSetID,
		AdsetName:          raw.AdSetName,
		AdID:               raw.AdID,
		AdName:             raw.AdName,
		Date:               raw.Date,
		Spend:              raw.Spend,
		Impressions:        raw.Impressions,
		Clicks:             raw.Clicks,
		LinkClicks:         raw.LinkClicks,
		Reach:              raw.Reach,
		Frequency:          raw.Frequency,
		CPC:                raw.CPC,
		CPM:                raw.CPM,
		LandingPageViews:   raw.Actions[actionLandingPageView],
		CheckoutsInitiated: raw.Actions[actionInitiateCheckout],
		Thruplays:          raw.Actions[actionThruplay],
		Video3sViews:       raw.Actions[actionVideo3sView],
		DailyBudget:        raw.DailyBudget,
	}, nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
