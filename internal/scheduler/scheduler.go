// Package scheduler sweeps the mailbox on a fixed interval and hands each
// fetched email to the pipeline over NATS. Sweeps are sequential: batches
// are small and the mailbox server throttles aggressive clients anyway.
package scheduler

import (
	"context"
	"sync"
	"time"

	"apptrack/server/internal/config"
	"apptrack/server/internal/errors"
	"apptrack/server/internal/events"
	"apptrack/server/internal/mailbox"
	"apptrack/server/internal/telemetry"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("apptrack/server/scheduler")

// searchKeywords narrow the server-side mailbox search; the relevance gate
// still runs on everything that comes back.
var searchKeywords = []string{
	"application",
	"applying",
	"interview",
	"position",
}

type Scheduler struct {
	mailbox   mailbox.Client
	publisher events.Publisher
	logger    *zap.Logger
	config    *config.Config
	mutex     sync.Mutex
	isActive  bool
	cancel    context.CancelFunc
}

func New(mb mailbox.Client, publisher events.Publisher, logger *zap.Logger, cfg *config.Config) *Scheduler {
	return &Scheduler{
		mailbox:   mb,
		publisher: publisher,
		logger:    logger,
		config:    cfg,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Scheduler.Start")
	defer span.End()

	s.mutex.Lock()
	if s.isActive {
		s.mutex.Unlock()
		return nil
	}
	s.isActive = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mutex.Unlock()

	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()

	if err := s.sweep(ctx); err != nil {
		s.logger.Error("initial mailbox sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Error("periodic mailbox sweep failed", zap.Error(err))
			}
		}
	}
}

// Stop cancels the polling loop; Start returns once the loop observes it.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.isActive = false
}

// PollNow runs one sweep outside the timer, for the manual check endpoint.
func (s *Scheduler) PollNow(ctx context.Context) (int, error) {
	return s.fetchAndPublish(ctx)
}

func (s *Scheduler) sweep(ctx context.Context) error {
	count, err := s.fetchAndPublish(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("mailbox sweep completed", zap.Int("published", count))
	return nil
}

// fetchAndPublish fetches one bounded batch and publishes each email. An
// AUTH_REQUIRED failure aborts the whole sweep: every later fetch would
// fail the same way, and the error must surface to the caller untouched
// so the owner knows to re-authenticate.
func (s *Scheduler) fetchAndPublish(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Scheduler.fetchAndPublish")
	defer span.End()

	emails, err := s.mailbox.Fetch(ctx, mailbox.Query{
		Since:    time.Now().Add(-s.config.MailboxLookback),
		Keywords: searchKeywords,
		Limit:    s.config.BatchSize,
	})
	if err != nil {
		span.RecordError(err)
		if errors.IsAuthRequired(err) {
			s.logger.Warn("mailbox credentials rejected, aborting sweep")
			return 0, err
		}
		return 0, errors.Internal("fetching mailbox batch", err)
	}
	span.SetAttributes(telemetry.Int("emails.count", len(emails)))

	published := 0
	for _, email := range emails {
		if err := s.publisher.PublishEmailFetched(ctx, s.config.Owner, email); err != nil {
			span.RecordError(err)
			return published, err
		}
		published++
	}
	return published, nil
}
