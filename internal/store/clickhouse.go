package store

import (
	"context"
	"fmt"
	"time"

	"apptrack/server/internal/errors"
	"apptrack/server/internal/models"
	"apptrack/server/internal/patterns"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

// clickhouseStore persists records in ClickHouse. Updates are modeled as
// ReplacingMergeTree inserts keyed on (owner, id) with updated_at as the
// version column; reads use FINAL to collapse versions.
type clickhouseStore struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

func NewClickHouse(conn clickhouse.Conn, logger *zap.Logger) Store {
	return &clickhouseStore{conn: conn, logger: logger}
}

const labeledEmailColumns = `owner, message_id, subject, body, sender, received_date,
	is_application_email, company, position, verified, parsed_company, parsed_position,
	processing_status, updated_at`

func (s *clickhouseStore) FindLabeledEmail(ctx context.Context, owner, messageID string) (*models.LabeledEmail, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM labeled_emails FINAL
		WHERE owner = ? AND message_id = ?
		LIMIT 1
	`, labeledEmailColumns)

	rows, err := s.conn.Query(ctx, query, owner, messageID)
	if err != nil {
		return nil, errors.Internal("querying labeled email", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.NotFound("labeled email not found", nil)
	}
	return scanLabeledEmail(rows)
}

func (s *clickhouseStore) InsertLabeledEmail(ctx context.Context, email *models.LabeledEmail) error {
	email.UpdatedAt = time.Now()
	return s.writeLabeledEmail(ctx, email)
}

func (s *clickhouseStore) UpdateLabeledEmail(ctx context.Context, email *models.LabeledEmail) error {
	email.UpdatedAt = time.Now()
	return s.writeLabeledEmail(ctx, email)
}

func (s *clickhouseStore) writeLabeledEmail(ctx context.Context, email *models.LabeledEmail) error {
	query := fmt.Sprintf(`INSERT INTO labeled_emails (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, labeledEmailColumns)

	if err := s.conn.Exec(ctx, query,
		email.Owner,
		email.MessageID,
		email.Subject,
		email.Body,
		email.Sender,
		email.ReceivedDate,
		email.IsApplicationEmail,
		email.Company,
		email.Position,
		email.Verified,
		email.ParsedCompany,
		email.ParsedPosition,
		string(email.ProcessingStatus),
		email.UpdatedAt,
	); err != nil {
		return errors.Internal("inserting labeled email", err)
	}
	return nil
}

func (s *clickhouseStore) ListLabeledEmails(ctx context.Context, owner string, applicationOnly bool) ([]models.LabeledEmail, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM labeled_emails FINAL
		WHERE owner = ?
	`, labeledEmailColumns)
	if applicationOnly {
		query += " AND is_application_email = true"
	}
	query += " ORDER BY received_date DESC"

	rows, err := s.conn.Query(ctx, query, owner)
	if err != nil {
		return nil, errors.Internal("listing labeled emails", err)
	}
	defer rows.Close()

	var emails []models.LabeledEmail
	for rows.Next() {
		email, err := scanLabeledEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *email)
	}
	return emails, nil
}

func (s *clickhouseStore) DeleteLabeledEmails(ctx context.Context, owner string) error {
	if err := s.conn.Exec(ctx, `DELETE FROM labeled_emails WHERE owner = ?`, owner); err != nil {
		return errors.Internal("deleting labeled emails", err)
	}
	return nil
}

func scanLabeledEmail(rows interface {
	Scan(dest ...interface{}) error
}) (*models.LabeledEmail, error) {
	var email models.LabeledEmail
	var status string
	if err := rows.Scan(
		&email.Owner,
		&email.MessageID,
		&email.Subject,
		&email.Body,
		&email.Sender,
		&email.ReceivedDate,
		&email.IsApplicationEmail,
		&email.Company,
		&email.Position,
		&email.Verified,
		&email.ParsedCompany,
		&email.ParsedPosition,
		&status,
		&email.UpdatedAt,
	); err != nil {
		return nil, errors.Internal("scanning labeled email", err)
	}
	email.ProcessingStatus = models.ProcessingStatus(status)
	return &email, nil
}

const applicationColumns = `id, owner, company, company_key, position, applied_date,
	status, source_message_id, created_at, updated_at`

func (s *clickhouseStore) FindApplications(ctx context.Context, filter ApplicationFilter) ([]models.ApplicationRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM applications FINAL
		WHERE owner = ? AND company_key = ?
	`, applicationColumns)
	args := []interface{}{filter.Owner, filter.CompanyKey}

	if filter.MessageID != "" && !filter.Since.IsZero() {
		query += " AND (source_message_id = ? OR applied_date >= ?)"
		args = append(args, filter.MessageID, filter.Since)
	} else if filter.MessageID != "" {
		query += " AND source_message_id = ?"
		args = append(args, filter.MessageID)
	} else if !filter.Since.IsZero() {
		query += " AND applied_date >= ?"
		args = append(args, filter.Since)
	}
	query += " ORDER BY applied_date DESC"

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Internal("querying applications", err)
	}
	defer rows.Close()

	return scanApplications(rows)
}

func (s *clickhouseStore) GetApplication(ctx context.Context, owner, id string) (*models.ApplicationRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM applications FINAL
		WHERE owner = ? AND id = ?
		LIMIT 1
	`, applicationColumns)

	rows, err := s.conn.Query(ctx, query, owner, id)
	if err != nil {
		return nil, errors.Internal("querying application", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.NotFound("application not found", nil)
	}
	return scanApplication(rows)
}

func (s *clickhouseStore) ListApplications(ctx context.Context, owner string) ([]models.ApplicationRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM applications FINAL
		WHERE owner = ?
		ORDER BY applied_date DESC
	`, applicationColumns)

	rows, err := s.conn.Query(ctx, query, owner)
	if err != nil {
		return nil, errors.Internal("listing applications", err)
	}
	defer rows.Close()

	return scanApplications(rows)
}

func (s *clickhouseStore) CreateApplication(ctx context.Context, app *models.ApplicationRecord) error {
	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now
	return s.writeApplication(ctx, app)
}

func (s *clickhouseStore) UpdateApplication(ctx context.Context, app *models.ApplicationRecord) error {
	app.UpdatedAt = time.Now()
	return s.writeApplication(ctx, app)
}

func (s *clickhouseStore) writeApplication(ctx context.Context, app *models.ApplicationRecord) error {
	query := fmt.Sprintf(`INSERT INTO applications (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, applicationColumns)

	if err := s.conn.Exec(ctx, query,
		app.ID,
		app.Owner,
		app.Company,
		patterns.CompanyKey(app.Company),
		app.Position,
		app.AppliedDate,
		app.Status,
		app.SourceMessageID,
		app.CreatedAt,
		app.UpdatedAt,
	); err != nil {
		return errors.Internal("inserting application", err)
	}
	return nil
}

func (s *clickhouseStore) DeleteApplication(ctx context.Context, owner, id string) error {
	if err := s.conn.Exec(ctx, `DELETE FROM applications WHERE owner = ? AND id = ?`, owner, id); err != nil {
		return errors.Internal("deleting application", err)
	}
	return nil
}

func (s *clickhouseStore) DeleteApplications(ctx context.Context, owner string) error {
	if err := s.conn.Exec(ctx, `DELETE FROM applications WHERE owner = ?`, owner); err != nil {
		return errors.Internal("deleting applications", err)
	}
	return nil
}

func scanApplications(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
}) ([]models.ApplicationRecord, error) {
	var apps []models.ApplicationRecord
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, nil
}

func scanApplication(rows interface {
	Scan(dest ...interface{}) error
}) (*models.ApplicationRecord, error) {
	var app models.ApplicationRecord
	var companyKey string
	if err := rows.Scan(
		&app.ID,
		&app.Owner,
		&app.Company,
		&companyKey,
		&app.Position,
		&app.AppliedDate,
		&app.Status,
		&app.SourceMessageID,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, errors.Internal("scanning application", err)
	}
	return &app, nil
}

func (s *clickhouseStore) AttachEmail(ctx context.Context, attachment *models.EmailAttachment) error {
	query := `
		INSERT INTO application_emails (
			owner, application_id, message_id, subject, sender, date, body, is_follow_up
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if err := s.conn.Exec(ctx, query,
		attachment.Owner,
		attachment.ApplicationID,
		attachment.MessageID,
		attachment.Subject,
		attachment.Sender,
		attachment.Date,
		attachment.Body,
		attachment.IsFollowUp,
	); err != nil {
		return errors.Internal("attaching email", err)
	}
	return nil
}

func (s *clickhouseStore) ListEmails(ctx context.Context, owner, applicationID string) ([]models.EmailAttachment, error) {
	query := `
		SELECT owner, application_id, message_id, subject, sender, date, body, is_follow_up
		FROM application_emails
		WHERE owner = ? AND application_id = ?
		ORDER BY date DESC
	`

	rows, err := s.conn.Query(ctx, query, owner, applicationID)
	if err != nil {
		return nil, errors.Internal("listing application emails", err)
	}
	defer rows.Close()

	var attachments []models.EmailAttachment
	for rows.Next() {
		var a models.EmailAttachment
		if err := rows.Scan(
			&a.Owner,
			&a.ApplicationID,
			&a.MessageID,
			&a.Subject,
			&a.Sender,
			&a.Date,
			&a.Body,
			&a.IsFollowUp,
		); err != nil {
			return nil, errors.Internal("scanning application email", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, nil
}
