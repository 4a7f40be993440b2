package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
	"github.com/lmoreira/funneltrack-backend/pkg/pagination"
)

// Service exposes read access to the sales ledger.
type Service interface {
	ListSales(ctx context.Context, params ListSalesParams) (*ListSalesResponse, error)
}

// ListSalesParams captures filters and cursor pagination inputs.
type ListSalesParams struct {
	ProjectID uuid.UUID
	Status    string
	From      time.Time
	To        time.Time
	Limit     int
	Cursor    string
}

// SaleView is the API shape of one ledger row.
type SaleView struct {
	ID             uuid.UUID          `json:"id"`
	Platform       enums.PlatformType `json:"platform"`
	ExternalSaleID string             `json:"externalSaleId"`
	ProductID      string             `json:"productId,omitempty"`
	ProductName    string             `json:"productName,omitempty"`
	NetAmount      decimal.Decimal    `json:"netAmount"`
	GrossAmount    decimal.Decimal    `json:"grossAmount"`
	Status         enums.SaleStatus   `json:"status"`
	PaymentMethod  string             `json:"paymentMethod,omitempty"`
	SaleTimestamp  time.Time          `json:"saleTimestamp"`
	UTMSource      *string            `json:"utmSource,omitempty"`
	UTMCampaign    *string            `json:"utmCampaign,omitempty"`
}

// ListSalesResponse is one page of ledger rows.
type ListSalesResponse struct {
	Sales      []SaleView `json:"sales"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListSales(ctx context.Context, params ListSalesParams) (*ListSalesResponse, error) {
	if params.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	if params.Status != "" && !enums.SaleStatus(params.Status).IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown sale status").
			WithDetails(map[string]any{"status": params.Status})
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListSales(ctx, SalesQuery{
		ProjectID: params.ProjectID,
		Status:    params.Status,
		From:      params.From,
		To:        params.To,
		Cursor:    cursor,
		Limit:     limit + 1,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sales")
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	resp := &ListSalesResponse{Sales: make([]SaleView, 0, len(rows))}
	for _, row := range rows {
		resp.Sales = append(resp.Sales, toView(row))
	}
	if hasMore {
		last := rows[len(rows)-1]
		resp.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.SaleTimestamp,
			ID:        last.ID,
		})
	}
	return resp, nil
}

func toView(sale models.Sale) SaleView {
	return SaleView{
		ID:             sale.ID,
		Platform:       sale.Platform,
		ExternalSaleID: sale.ExternalSaleID,
		ProductID:      sale.ProductID,
		ProductName:    sale.ProductName,
		NetAmount:      sale.NetAmount,
		GrossAmount:    sale.GrossAmount,
		Status:         sale.Status,
		PaymentMethod:  sale.PaymentMethod,
		SaleTimestamp:  sale.SaleTimestamp,
		UTMSource:      sale.UTMSource,
		UTMCampaign:    sale.UTMCampaign,
	}
}
