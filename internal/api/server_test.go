package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"apptrack/server/internal/config"
	"apptrack/server/internal/errors"
	"apptrack/server/internal/models"
	"apptrack/server/internal/store"

	"go.uber.org/zap"
)

// stubStore satisfies store.Store for handler tests that never reach
// deeper than the routing and error-mapping layers.
type stubStore struct{}

func (stubStore) FindLabeledEmail(ctx context.Context, owner, messageID string) (*models.LabeledEmail, error) {
	return nil, errors.NotFound("labeled email not found", nil)
}
func (stubStore) InsertLabeledEmail(ctx context.Context, email *models.LabeledEmail) error {
	return nil
}
func (stubStore) UpdateLabeledEmail(ctx context.Context, email *models.LabeledEmail) error {
	return nil
}
func (stubStore) ListLabeledEmails(ctx context.Context, owner string, applicationOnly bool) ([]models.LabeledEmail, error) {
	return nil, nil
}
func (stubStore) DeleteLabeledEmails(ctx context.Context, owner string) error { return nil }
func (stubStore) FindApplications(ctx context.Context, filter store.ApplicationFilter) ([]models.ApplicationRecord, error) {
	return nil, nil
}
func (stubStore) GetApplication(ctx context.Context, owner, id string) (*models.ApplicationRecord, error) {
	return nil, errors.NotFound("application not found", nil)
}
func (stubStore) ListApplications(ctx context.Context, owner string) ([]models.ApplicationRecord, error) {
	return nil, nil
}
func (stubStore) CreateApplication(ctx context.Context, app *models.ApplicationRecord) error {
	return nil
}
func (stubStore) UpdateApplication(ctx context.Context, app *models.ApplicationRecord) error {
	return nil
}
func (stubStore) DeleteApplication(ctx context.Context, owner, id string) error    { return nil }
func (stubStore) DeleteApplications(ctx context.Context, owner string) error       { return nil }
func (stubStore) AttachEmail(ctx context.Context, a *models.EmailAttachment) error { return nil }
func (stubStore) ListEmails(ctx context.Context, owner, applicationID string) ([]models.EmailAttachment, error) {
	return nil, nil
}

func newTestServer() *Server {
	return NewServer(zap.NewNop(), stubStore{}, nil, nil, &config.Config{
		Owner:    "default",
		HTTPAddr: ":0",
	})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf(`health status = %q, want "healthy"`, body["status"])
	}
}

func TestGetApplicationNotFoundMapsTo404(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/applications/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateApplicationRequiresCompany(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/applications", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
