package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lmoreira/funneltrack-backend/internal/projects"
	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
)

type fakeProjectsService struct {
	project   *models.Project
	cred      *models.IntegrationCredential
	err       error
	lastInput projects.CreateProjectInput
	lastCred  projects.SaveCredentialInput
}

func (f *fakeProjectsService) CreateProject(ctx context.Context, input projects.CreateProjectInput) (*models.Project, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.project, nil
}

func (f *fakeProjectsService) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.project, nil
}

func (f *fakeProjectsService) SaveCredential(ctx context.Context, input projects.SaveCredentialInput) (*models.IntegrationCredential, error) {
	f.lastCred = input
	if f.err != nil {
		return nil, f.err
	}
	return f.cred, nil
}

func TestCreateProjectReturns201(t *testing.T) {
	svc := &fakeProjectsService{project: &models.Project{ID: uuid.New(), Name: "Launch"}}
	r := chi.NewRouter()
	r.Post("/api/v1/projects", CreateProject(svc, testLogger()))

	body := `{"name":"Launch","attributionMode":"net","productIds":["prod-1"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastInput.Name != "Launch" {
		t.Fatalf("body not decoded: %+v", svc.lastInput)
	}
}

func TestCreateProjectRejectsMissingName(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/projects", CreateProject(&fakeProjectsService{}, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSaveCredentialInjectsProjectIDFromPath(t *testing.T) {
	svc := &fakeProjectsService{cred: &models.IntegrationCredential{
		ID:       uuid.New(),
		Platform: enums.PlatformHotmart,
		Active:   true,
	}}
	r := chi.NewRouter()
	r.Put("/api/v1/projects/{projectId}/credentials", SaveCredential(svc, testLogger()))

	projectID := uuid.New()
	body := `{"platform":"hotmart","clientId":"abc","clientSecret":"shh"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/projects/"+projectID.String()+"/credentials", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastCred.ProjectID != projectID {
		t.Fatalf("expected project id from path, got %s", svc.lastCred.ProjectID)
	}
	if strings.Contains(w.Body.String(), "shh") {
		t.Fatal("secret leaked into response")
	}
}

func TestSaveCredentialRejectsUnknownPlatform(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/api/v1/projects/{projectId}/credentials", SaveCredential(&fakeProjectsService{}, testLogger()))

	body := `{"platform":"shopify"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/projects/"+uuid.NewString()+"/credentials", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
