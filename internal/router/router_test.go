package router

import (
	"context"
	"testing"
	"time"

	"apptrack/server/internal/models"

	"go.uber.org/zap"
)

func newTestRouter() *Router {
	return New(nil, zap.NewNop())
}

func TestIsJobApplicationEmail(t *testing.T) {
	tests := []struct {
		name    string
		sender  string
		subject string
		want    bool
	}{
		{
			name:    "ats sender always relevant",
			sender:  "no-reply@greenhouse-mail.io",
			subject: "50% off sale today",
			want:    true,
		},
		{
			name:    "exclude keyword suppresses job keyword",
			sender:  "deals@shop.example.com",
			subject: "Sale on software engineering books",
			want:    false,
		},
		{
			name:    "newsletter excluded",
			sender:  "newsletter@deals.example.com",
			subject: "Weekly newsletter: new positions",
			want:    false,
		},
		{
			name:    "strong indicator",
			sender:  "careers@initech.com",
			subject: "Thank you for applying to Initech",
			want:    true,
		},
		{
			name:    "generic job keyword",
			sender:  "someone@example.com",
			subject: "About the engineer opening",
			want:    true,
		},
		{
			name:    "unrelated mail",
			sender:  "friend@example.com",
			subject: "Lunch tomorrow?",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsJobApplicationEmail(tt.sender, tt.subject); got != tt.want {
				t.Errorf("IsJobApplicationEmail(%q, %q) = %v, want %v", tt.sender, tt.subject, got, tt.want)
			}
		})
	}
}

func TestParseGreenhouseEmail(t *testing.T) {
	r := newTestRouter()
	email := models.RawEmail{
		MessageID:    "<msg-1@greenhouse-mail.io>",
		Sender:       "jobs@greenhouse-mail.io",
		Subject:      "Your application",
		Body:         "Thank you for your application to Acme Corp for the Backend Engineer position.",
		ReceivedDate: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	job, err := r.Parse(context.Background(), email)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if job.Company != "Acme Corp" {
		t.Errorf("company = %q, want Acme Corp", job.Company)
	}
	if job.Position != "Backend Engineer" {
		t.Errorf("position = %q, want Backend Engineer", job.Position)
	}
	if job.Status != "applied" {
		t.Errorf("status = %q, want applied", job.Status)
	}
	if !job.AppliedDate.Equal(email.ReceivedDate) {
		t.Errorf("applied date = %v, want %v", job.AppliedDate, email.ReceivedDate)
	}
	if job.SourceMessageID != email.MessageID {
		t.Errorf("source message id = %q, want %q", job.SourceMessageID, email.MessageID)
	}
}

func TestParsePatternFallback(t *testing.T) {
	r := newTestRouter()
	email := models.RawEmail{
		MessageID: "<msg-2@randomstartup.io>",
		Sender:    "careers@randomstartup.io",
		Subject:   "Thank you for applying to RandomStartup!",
		Body:      "We appreciate your interest and will be in touch soon.",
	}

	job, err := r.Parse(context.Background(), email)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if job.Company != "RandomStartup" {
		t.Errorf("company = %q, want RandomStartup", job.Company)
	}
	// No position anywhere in the email: sentinel applies.
	if job.Position != models.DefaultPosition {
		t.Errorf("position = %q, want %q", job.Position, models.DefaultPosition)
	}
}

func TestParseATSPrecedence(t *testing.T) {
	r := newTestRouter()
	// The subject carries a pattern-extractable company that disagrees with
	// the ATS extraction; the ATS result must win.
	email := models.RawEmail{
		MessageID: "<msg-3@greenhouse-mail.io>",
		Sender:    "no-reply@greenhouse-mail.io",
		Subject:   "Thank you for applying to WrongCo",
		Body:      "Thank you for applying to Acme Corp. Good luck!",
	}

	job, err := r.Parse(context.Background(), email)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if job.Company != "Acme Corp" {
		t.Errorf("company = %q, want Acme Corp (ATS must win over patterns)", job.Company)
	}
}

func TestParseSentinelFallback(t *testing.T) {
	r := newTestRouter()
	email := models.RawEmail{
		MessageID: "<msg-4@example.com>",
		Sender:    "someone@gmail.com",
		Subject:   "Following up on my application",
		Body:      "just checking in",
	}

	job, err := r.Parse(context.Background(), email)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if job.Company != models.UnknownCompany {
		t.Errorf("company = %q, want %q", job.Company, models.UnknownCompany)
	}
	if job.Position != models.DefaultPosition {
		t.Errorf("position = %q, want %q", job.Position, models.DefaultPosition)
	}
	if job.Confidence >= 0.5 {
		t.Errorf("confidence = %v, want a low floor value", job.Confidence)
	}
}

func TestParseIdempotent(t *testing.T) {
	r := newTestRouter()
	email := models.RawEmail{
		MessageID:    "<msg-5@greenhouse-mail.io>",
		Sender:       "jobs@greenhouse-mail.io",
		Subject:      "Your application",
		Body:         "Thank you for applying to Hooli. We will review it shortly.",
		ReceivedDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	first, err := r.Parse(context.Background(), email)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := r.Parse(context.Background(), email)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if first != second {
		t.Errorf("Parse is not idempotent: %+v vs %+v", first, second)
	}
}

func TestParseNilClassifierIsSafe(t *testing.T) {
	r := New(nil, zap.NewNop())
	email := models.RawEmail{
		MessageID: "<msg-6@example.com>",
		Sender:    "recruiting@example.com",
		Subject:   "Interview for a role",
		Body:      "no extractable fields here",
	}

	if _, err := r.Parse(context.Background(), email); err != nil {
		t.Fatalf("Parse() with nil classifier error = %v", err)
	}
}
