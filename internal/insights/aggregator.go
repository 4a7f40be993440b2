package insights

import (
	"github.com/shopspring/decimal"

	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
)

// Metrics is the derived record served to dashboards and cached in
// snapshots. Money stays decimal; rates are rounded to four places.
type Metrics struct {
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	TotalSpend     decimal.Decimal `json:"totalSpend"`
	RefundedAmount decimal.Decimal `json:"refundedAmount"`
	Roas           float64         `json:"roas"`

	SaleCount   int             `json:"saleCount"`
	RefundCount int             `json:"refundCount"`
	AvgTicket   decimal.Decimal `json:"avgTicket"`

	Impressions        int64 `json:"impressions"`
	Reach              int64 `json:"reach"`
	Clicks             int64 `json:"clicks"`
	LinkClicks         int64 `json:"linkClicks"`
	LandingPageViews   int64 `json:"landingPageViews"`
	CheckoutsInitiated int64 `json:"checkoutsInitiated"`
	Thruplays          int64 `json:"thruplays"`
	Video3sViews       int64 `json:"video3sViews"`

	AvgFrequency         float64 `json:"avgFrequency"`
	CTR                  float64 `json:"ctr"`
	AvgCPC               float64 `json:"avgCpc"`
	AvgCPM               float64 `json:"avgCpm"`
	LPViewRate           float64 `json:"lpViewRate"`
	CostPerSale          float64 `json:"costPerSale"`
	SaleConversionFromLP float64 `json:"saleConversionFromLp"`
	CheckoutConversion   float64 `json:"checkoutConversion"`
	CreativeEngagement   float64 `json:"creativeEngagement"`
	CostPerCheckout      float64 `json:"costPerCheckout"`

	DailyBudget decimal.Decimal `json:"dailyBudget"`
}

// Aggregate derives the full metrics record from ledger rows already scoped
// to the project's allow-lists and date range. Pure and deterministic: the
// cache is only ever an accelerator for this function. Every division is
// guarded; a zero denominator yields 0, never NaN.
func Aggregate(mode enums.AttributionMode, ticketPrice *decimal.Decimal, sales []models.Sale, ads []models.AdSpendRecord) Metrics {
	m := Metrics{
		TotalRevenue:   decimal.Zero,
		TotalSpend:     decimal.Zero,
		RefundedAmount: decimal.Zero,
		AvgTicket:      decimal.Zero,
		DailyBudget:    decimal.Zero,
	}

	netRevenue := decimal.Zero
	grossRevenue := decimal.Zero
	for _, sale := range sales {
		switch sale.Status {
		case enums.SaleStatusPaid:
			m.SaleCount++
			netRevenue = netRevenue.Add(sale.NetAmount)
			grossRevenue = grossRevenue.Add(sale.GrossAmount)
		case enums.SaleStatusRefunded:
			m.RefundCount++
			m.RefundedAmount = m.RefundedAmount.Add(sale.NetAmount)
		}
	}

	switch {
	case mode == enums.AttributionTicket && ticketPrice != nil:
		m.TotalRevenue = ticketPrice.Mul(decimal.NewFromInt(int64(m.SaleCount)))
	case mode == enums.AttributionGross:
		m.TotalRevenue = grossRevenue
	default:
		m.TotalRevenue = netRevenue
	}

	var latestAd *models.AdSpendRecord
	for i := range ads {
		ad := &ads[i]
		m.TotalSpend = m.TotalSpend.Add(ad.Spend)
		m.Impressions += ad.Impressions
		m.Reach += ad.Reach
		m.Clicks += ad.Clicks
		m.LinkClicks += ad.LinkClicks
		m.LandingPageViews += ad.LandingPageViews
		m.CheckoutsInitiated += ad.CheckoutsInitiated
		m.Thruplays += ad.Thruplays
		m.Video3sViews += ad.Video3sViews
		if latestAd == nil || ad.Date.After(latestAd.Date) {
			latestAd = ad
		}
	}
	if latestAd != nil {
		m.DailyBudget = latestAd.DailyBudget
	}

	if m.SaleCount > 0 {
		m.AvgTicket = m.TotalRevenue.DivRound(decimal.NewFromInt(int64(m.SaleCount)), 2)
	}

	m.Roas = safeDivDecimal(m.TotalRevenue, m.TotalSpend)
	m.AvgFrequency = safeDiv(float64(m.Impressions), float64(m.Reach))
	m.CTR = safeDiv(float64(m.LinkClicks), float64(m.Impressions))
	m.AvgCPC = safeDiv(m.TotalSpend.InexactFloat64(), float64(m.LinkClicks))
	m.AvgCPM = safeDiv(1000*m.TotalSpend.InexactFloat64(), float64(m.Impressions))
	m.LPViewRate = safeDiv(float64(m.LandingPageViews), float64(m.LinkClicks))
	m.CostPerSale = safeDiv(m.TotalSpend.InexactFloat64(), float64(m.SaleCount))
	m.SaleConversionFromLP = safeDiv(float64(m.SaleCount), float64(m.LandingPageViews))
	m.CheckoutConversion = safeDiv(float64(m.SaleCount), float64(m.CheckoutsInitiated))
	m.CreativeEngagement = safeDiv(float64(m.Thruplays), float64(m.Video3sViews))
	m.CostPerCheckout = safeDiv(m.TotalSpend.InexactFloat64(), float64(m.CheckoutsInitiated))

	return m
}

func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return round4(numerator / denominator)
}

func safeDivDecimal(numerator, denominator decimal.Decimal) float64 {
	if denominator.IsZero() {
		return 0
	}
	return numerator.DivRound(denominator, 4).InexactFloat64()
}

func round4(value float64) float64 {
	return decimal.NewFromFloat(value).Round(4).InexactFloat64()
}
