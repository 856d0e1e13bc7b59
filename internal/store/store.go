// Package store is the storage collaborator contract for the pipeline:
// corpus lookups, application records, and email history. The pipeline
// depends only on this interface; the ClickHouse implementation lives in
// clickhouse.go.
package store

import (
	"context"
	"time"

	"apptrack/server/internal/models"
)

// ApplicationFilter narrows application queries for de-duplication:
// CompanyKey is the normalized company name; Since bounds appliedDate.
type ApplicationFilter struct {
	Owner      string
	CompanyKey string
	MessageID  string
	Since      time.Time
}

type Store interface {
	// FindLabeledEmail returns a NOT_FOUND domain error when absent.
	FindLabeledEmail(ctx context.Context, owner, messageID string) (*models.LabeledEmail, error)
	InsertLabeledEmail(ctx context.Context, email *models.LabeledEmail) error
	UpdateLabeledEmail(ctx context.Context, email *models.LabeledEmail) error
	ListLabeledEmails(ctx context.Context, owner string, applicationOnly bool) ([]models.LabeledEmail, error)
	DeleteLabeledEmails(ctx context.Context, owner string) error

	FindApplications(ctx context.Context, filter ApplicationFilter) ([]models.ApplicationRecord, error)
	GetApplication(ctx context.Context, owner, id string) (*models.ApplicationRecord, error)
	ListApplications(ctx context.Context, owner string) ([]models.ApplicationRecord, error)
	CreateApplication(ctx context.Context, app *models.ApplicationRecord) error
	UpdateApplication(ctx context.Context, app *models.ApplicationRecord) error
	DeleteApplication(ctx context.Context, owner, id string) error
	DeleteApplications(ctx context.Context, owner string) error

	AttachEmail(ctx context.Context, attachment *models.EmailAttachment) error
	ListEmails(ctx context.Context, owner, applicationID string) ([]models.EmailAttachment, error)
}
