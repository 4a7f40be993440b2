package projects

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
)

// Repository exposes project and credential persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create persists a new project.
func (r *Repository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// FindByID loads one project.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListActive returns every project eligible for scheduled syncing.
func (r *Repository) ListActive(ctx context.Context) ([]models.Project, error) {
	var list []models.Project
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ActiveCredentials returns the active integration credentials for a project.
func (r *Repository) ActiveCredentials(ctx context.Context, projectID uuid.UUID) ([]models.IntegrationCredential, error) {
	var creds []models.IntegrationCredential
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND active = ?", projectID, true).
		Find(&creds).Error
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// UpsertCredential writes or replaces the credential for one platform.
func (r *Repository) UpsertCredential(ctx context.Context, cred *models.IntegrationCredential) (*models.IntegrationCredential, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}, {Name: "platform"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"client_id", "client_secret", "access_token", "account_id", "active", "updated_at",
			}),
		}).
		Create(cred).Error
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// AdvanceLastSyncAt moves the watermark forward. The conditional update keeps
// it monotonic: a slow run finishing after a newer one cannot drag it back.
func (r *Repository) AdvanceLastSyncAt(ctx context.Context, projectID uuid.UUID, syncedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND (last_sync_at IS NULL OR last_sync_at < ?)", projectID, syncedAt).
		Update("last_sync_at", syncedAt).Error
}
