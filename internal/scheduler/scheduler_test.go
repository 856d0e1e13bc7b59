package scheduler

import (
	"context"
	"testing"
	"time"

	"apptrack/server/internal/config"
	"apptrack/server/internal/errors"
	"apptrack/server/internal/mailbox"
	"apptrack/server/internal/models"

	"go.uber.org/zap"
)

type fakeMailbox struct {
	emails  []models.RawEmail
	err     error
	calls   int
	fetched chan struct{}
}

func (f *fakeMailbox) Fetch(ctx context.Context, query mailbox.Query) ([]models.RawEmail, error) {
	f.calls++
	if f.fetched != nil {
		select {
		case f.fetched <- struct{}{}:
		default:
		}
	}
	return f.emails, f.err
}

type fakePublisher struct {
	published []models.RawEmail
	err       error
}

func (f *fakePublisher) PublishEmailFetched(ctx context.Context, owner string, email models.RawEmail) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, email)
	return nil
}

func (f *fakePublisher) Close() {}

func testConfig() *config.Config {
	return &config.Config{
		Owner:           "default",
		MailboxLookback: 30 * 24 * time.Hour,
		PollingInterval: time.Hour,
		BatchSize:       50,
	}
}

func TestPollNowPublishesBatch(t *testing.T) {
	mb := &fakeMailbox{
		emails: []models.RawEmail{
			{MessageID: "<a@x>", Subject: "Your application"},
			{MessageID: "<b@x>", Subject: "Interview invite"},
		},
	}
	pub := &fakePublisher{}
	s := New(mb, pub, zap.NewNop(), testConfig())

	published, err := s.PollNow(context.Background())
	if err != nil {
		t.Fatalf("PollNow() error = %v", err)
	}
	if published != 2 {
		t.Errorf("published = %d, want 2", published)
	}
	if len(pub.published) != 2 {
		t.Errorf("publisher saw %d emails, want 2", len(pub.published))
	}
}

func TestPollNowAbortsOnAuthFailure(t *testing.T) {
	mb := &fakeMailbox{err: errors.AuthRequired("imap login rejected", nil)}
	pub := &fakePublisher{}
	s := New(mb, pub, zap.NewNop(), testConfig())

	published, err := s.PollNow(context.Background())
	if err == nil {
		t.Fatal("PollNow() error = nil, want AUTH_REQUIRED")
	}
	if !errors.IsAuthRequired(err) {
		t.Errorf("error type = %v, want AUTH_REQUIRED passed through untouched", err)
	}
	if published != 0 || len(pub.published) != 0 {
		t.Errorf("published %d emails on auth failure, want 0", len(pub.published))
	}
}

func TestStopEndsRunningLoop(t *testing.T) {
	mb := &fakeMailbox{fetched: make(chan struct{}, 1)}
	pub := &fakePublisher{}
	s := New(mb, pub, zap.NewNop(), testConfig())

	done := make(chan error, 1)
	go func() {
		done <- s.Start(context.Background())
	}()

	select {
	case <-mb.fetched:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler never ran its initial sweep")
	}

	s.Stop()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Start() returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not end the polling loop")
	}
}

func TestPollNowEmptyMailbox(t *testing.T) {
	mb := &fakeMailbox{}
	pub := &fakePublisher{}
	s := New(mb, pub, zap.NewNop(), testConfig())

	published, err := s.PollNow(context.Background())
	if err != nil {
		t.Fatalf("PollNow() error = %v", err)
	}
	if published != 0 {
		t.Errorf("published = %d, want 0", published)
	}
}
