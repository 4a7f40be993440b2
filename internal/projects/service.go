package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
)

// Service manages project configuration.
type Service interface {
	CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	SaveCredential(ctx context.Context, input SaveCredentialInput) (*models.IntegrationCredential, error)
}

// CreateProjectInput captures a new project's configuration.
type CreateProjectInput struct {
	Name            string   `json:"name" validate:"required,min=1,max=120"`
	AttributionMode string   `json:"attributionMode" validate:"omitempty,oneof=net gross ticket"`
	TicketPrice     *string  `json:"ticketPrice" validate:"omitempty"`
	ProductIDs      []string `json:"productIds" validate:"omitempty,dive,min=1"`
	CampaignIDs     []string `json:"campaignIds" validate:"omitempty,dive,min=1"`
}

// SaveCredentialInput upserts the per-platform secrets for a project.
type SaveCredentialInput struct {
	ProjectID    uuid.UUID `json:"-"`
	Platform     string    `json:"platform" validate:"required,oneof=kiwify hotmart meta_ads"`
	ClientID     string    `json:"clientId" validate:"omitempty,max=255"`
	ClientSecret string    `json:"clientSecret" validate:"omitempty,max=255"`
	AccessToken  string    `json:"accessToken" validate:"omitempty,max=2048"`
	AccountID    string    `json:"accountId" validate:"omitempty,max=255"`
}

type service struct {
	repo *Repository
}

// NewService wires a projects service with the provided repository.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("projects repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	mode := enums.AttributionNet
	if input.AttributionMode != "" {
		parsed, err := enums.ParseAttributionMode(input.AttributionMode)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid attribution mode")
		}
		mode = parsed
	}

	var ticket *decimal.Decimal
	if input.TicketPrice != nil && strings.TrimSpace(*input.TicketPrice) != "" {
		value, err := decimal.NewFromString(strings.TrimSpace(*input.TicketPrice))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ticket price")
		}
		if value.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket price must not be negative")
		}
		ticket = &value
	}
	if mode == enums.AttributionTicket && ticket == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket attribution requires a ticket price")
	}

	project := &models.Project{
		Name:            strings.TrimSpace(input.Name),
		AttributionMode: mode,
		TicketPrice:     ticket,
		ProductIDs:      pq.StringArray(input.ProductIDs),
		CampaignIDs:     pq.StringArray(input.CampaignIDs),
		Active:          true,
	}
	return s.repo.Create(ctx, project)
}

func (s *service) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) SaveCredential(ctx context.Context, input SaveCredentialInput) (*models.IntegrationCredential, error) {
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	platform, err := enums.ParsePlatformType(input.Platform)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform")
	}
	if _, err := s.repo.FindByID(ctx, input.ProjectID); err != nil {
		return nil, err
	}

	cred := &models.IntegrationCredential{
		ProjectID:    input.ProjectID,
		Platform:     platform,
		ClientID:     strings.TrimSpace(input.ClientID),
		ClientSecret: strings.TrimSpace(input.ClientSecret),
		AccessToken:  strings.TrimSpace(input.AccessToken),
		AccountID:    strings.TrimSpace(input.AccountID),
		Active:       true,
	}
	return s.repo.UpsertCredential(ctx, cred)
}
