package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lmoreira/funneltrack-backend/pkg/enums"
)

// IntegrationCredential holds the per-platform secrets a project syncs with.
// Managed by the credential collaborator; read-only for the sync engine.
type IntegrationCredential struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID    uuid.UUID          `gorm:"column:project_id;type:uuid;not null;uniqueIndex:ux_integration_credentials_project_platform"`
	Platform     enums.PlatformType `gorm:"column:platform;type:text;not null;uniqueIndex:ux_integration_credentials_project_platform"`
	ClientID     string             `gorm:"column:client_id;type:text"`
	ClientSecret string             `gorm:"column:client_secret;type:text"`
	AccessToken  string             `gorm:"column:access_token;type:text"`
	AccountID    string             `gorm:"column:account_id;type:text"`
	Active       bool               `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
