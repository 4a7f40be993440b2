package platforms

import (
	"context"
	"time"

	"github.com/lmoreira/funneltrack-backend/pkg/enums"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Window is the half-open [From, To) interval a sync run covers, expressed
// in the reporting timezone.
type Window struct {
	From time.Time
	To   time.Time
}

// Credentials holds the per-project secrets used to authenticate against a
// source platform. Adapters never persist these.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	AccountID    string
}

// Session is the result of a successful authentication against a source.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

// UTMParams carries the tracking parameters attached to a sale.
type UTMParams struct {
	Source   string
	Medium   string
	Campaign string
	Content  string
	Term     string
}

// RawSale is the platform-agnostic shape of one checkout transaction as
// fetched from a sales source, before normalization.
type RawSale struct {
	ExternalID    string
	ProductID     string
	ProductName   string
	Status        string
	PaymentMethod string
	NetCents      int64
	ChargeCents   int64
	FeeCents      int64
	CustomerEmail string
	Timestamp     time.Time
	UTM           UTMParams
}

// RawAdRow is one day of delivery stats for a single ad.
type RawAdRow struct {
	CampaignID   string
	CampaignName string
	AdSetID      string
	AdSetName    string
	AdID         string
	AdName       string
	Date         time.Time
	Spend        decimal.Decimal
	Impressions  int64
	Clicks       int64
	LinkClicks   int64
	Reach        int64
	Frequency    decimal.Decimal
	CPC          decimal.Decimal
	CPM          decimal.Decimal
	Actions      map[string]int64
	DailyBudget  decimal.Decimal
}

// SalesPage is one page of sales records plus the cursor to resume from.
type SalesPage struct {
	Records    []RawSale
	NextCursor string
	Done       bool
}

// AdSpendPage is one page of ad rows plus the cursor to resume from.
type AdSpendPage struct {
	Records    []RawAdRow
	NextCursor string
	Done       bool
}

// SalesSource fetches checkout transactions from one platform. FetchPage is
// cursor-pure: the same (window, cursor) pair always requests the same page,
// so callers own the pagination loop.
type SalesSource interface {
	Platform() enums.PlatformType
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)
	FetchPage(ctx context.Context, session *Session, creds Credentials, window Window, cursor string) (*SalesPage, error)
}

// AdsSource fetches daily ad delivery stats from one platform.
type AdsSource interface {
	Platform() enums.PlatformType
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)
	FetchPage(ctx context.Context, session *Session, creds Credentials, window Window, cursor string) (*AdSpendPage, error)
}

// IsAuthError reports whether the source rejected the project credentials.
// Auth failures are terminal for the run; re-syncing cannot fix them.
func IsAuthError(err error) bool {
	if e := pkgerrors.As(err); e != nil {
		return e.Code() == pkgerrors.CodeUnauthorized
	}
	return false
}

// IsTransient reports whether the failure is worth retrying (network errors,
// rate limits, source 5xx).
func IsTransient(err error) bool {
	if e := pkgerrors.As(err); e != nil {
		return e.Code() == pkgerrors.CodeDependency
	}
	return false
}
