// Package processor drives emails through the pipeline and reconciles the
// results into application records: corpus insert, parse, and the
// follow-up-versus-new-record decision.
package processor

import (
	"context"
	"time"

	"apptrack/server/internal/ats"
	"apptrack/server/internal/classifier"
	"apptrack/server/internal/config"
	"apptrack/server/internal/errors"
	"apptrack/server/internal/models"
	"apptrack/server/internal/patterns"
	"apptrack/server/internal/router"
	"apptrack/server/internal/store"
	"apptrack/server/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type EmailProcessor struct {
	logger      *zap.Logger
	store       store.Store
	router      *router.Router
	classifier  *classifier.Classifier
	tracer      trace.Tracer
	dedupWindow time.Duration
}

// BatchStats summarizes one processing pass.
type BatchStats struct {
	Processed       int `json:"processed"`
	Duplicates      int `json:"duplicates"`
	Irrelevant      int `json:"irrelevant"`
	Failed          int `json:"failed"`
	NewApplications int `json:"new_applications"`
	FollowUps       int `json:"follow_ups"`
}

func NewEmailProcessor(logger *zap.Logger, st store.Store, rt *router.Router, cls *classifier.Classifier, cfg *config.Config) *EmailProcessor {
	return &EmailProcessor{
		logger:      logger,
		store:       st,
		router:      rt,
		classifier:  cls,
		tracer:      telemetry.GetTracer("apptrack/server/processor"),
		dedupWindow: cfg.DedupWindow,
	}
}

// ProcessEmail runs one email through the full pipeline. Already-seen
// message IDs and irrelevant emails are skipped; a parse failure marks the
// corpus entry failed but is not an error, so one bad email never stops a
// batch. Only storage problems propagate.
func (p *EmailProcessor) ProcessEmail(ctx context.Context, owner string, email models.RawEmail) error {
	_, err := p.processEmail(ctx, owner, email, &BatchStats{})
	return err
}

type emailOutcome int

const (
	outcomeDuplicate emailOutcome = iota
	outcomeIrrelevant
	outcomeFailed
	outcomeNewApplication
	outcomeFollowUp
)

func (p *EmailProcessor) processEmail(ctx context.Context, owner string, email models.RawEmail, stats *BatchStats) (emailOutcome, error) {
	ctx, span := p.tracer.Start(ctx, "ProcessEmail")
	defer span.End()
	span.SetAttributes(telemetry.String("email.message_id", email.MessageID))

	if _, err := p.store.FindLabeledEmail(ctx, owner, email.MessageID); err == nil {
		stats.Duplicates++
		p.logger.Debug("skipping already-processed email",
			zap.String("message_id", email.MessageID))
		return outcomeDuplicate, nil
	} else if !errors.IsNotFound(err) {
		return outcomeFailed, err
	}

	if !p.router.Relevant(email) {
		stats.Irrelevant++
		return outcomeIrrelevant, nil
	}

	entry := &models.LabeledEmail{
		Owner:              owner,
		MessageID:          email.MessageID,
		Subject:            email.Subject,
		Body:               email.Body,
		Sender:             email.Sender,
		ReceivedDate:       email.ReceivedDate,
		IsApplicationEmail: true,
		ProcessingStatus:   models.StatusPending,
	}
	if err := p.store.InsertLabeledEmail(ctx, entry); err != nil {
		return outcomeFailed, err
	}

	job, err := p.router.Parse(ctx, email)
	if err != nil {
		stats.Failed++
		span.RecordError(err)
		p.logger.Warn("failed to parse email",
			zap.String("message_id", email.MessageID),
			zap.Error(err))
		entry.ProcessingStatus = models.StatusFailed
		if updateErr := p.store.UpdateLabeledEmail(ctx, entry); updateErr != nil {
			return outcomeFailed, updateErr
		}
		return outcomeFailed, nil
	}

	entry.ParsedCompany = job.Company
	entry.ParsedPosition = job.Position
	entry.ProcessingStatus = models.StatusSuccess
	if err := p.store.UpdateLabeledEmail(ctx, entry); err != nil {
		return outcomeFailed, err
	}

	outcome, err := p.upsertApplication(ctx, owner, email, job)
	if err != nil {
		return outcomeFailed, err
	}
	stats.Processed++
	if outcome == outcomeFollowUp {
		stats.FollowUps++
	} else {
		stats.NewApplications++
	}
	return outcome, nil
}

// upsertApplication applies the de-duplication rule: an existing record for
// the same normalized company with an applied date inside the window (or the
// same source message) absorbs the email as a follow-up; otherwise the email
// opens a new record with a deterministic ID derived from its message ID.
func (p *EmailProcessor) upsertApplication(ctx context.Context, owner string, email models.RawEmail, job models.ParsedJob) (emailOutcome, error) {
	existing, err := p.store.FindApplications(ctx, store.ApplicationFilter{
		Owner:      owner,
		CompanyKey: patterns.CompanyKey(job.Company),
		MessageID:  job.SourceMessageID,
		Since:      job.AppliedDate.Add(-p.dedupWindow),
	})
	if err != nil {
		return outcomeFailed, err
	}

	if len(existing) > 0 {
		target := existing[0]
		if target.SourceMessageID == job.SourceMessageID {
			// Same source email seen again (reparse): refresh derived
			// fields instead of attaching a duplicate.
			target.Company = job.Company
			target.Position = job.Position
			if err := p.store.UpdateApplication(ctx, &target); err != nil {
				return outcomeFailed, err
			}
			return outcomeFollowUp, nil
		}

		if err := p.attachEmail(ctx, owner, target.ID, email, true); err != nil {
			return outcomeFailed, err
		}
		p.logger.Info("attached follow-up email",
			zap.String("company", job.Company),
			zap.String("application_id", target.ID))
		return outcomeFollowUp, nil
	}

	record := &models.ApplicationRecord{
		ID:              uuid.NewSHA1(uuid.NameSpaceOID, []byte(job.SourceMessageID)).String(),
		Owner:           owner,
		Company:         job.Company,
		Position:        job.Position,
		AppliedDate:     job.AppliedDate,
		Status:          job.Status,
		SourceMessageID: job.SourceMessageID,
	}
	if err := p.store.CreateApplication(ctx, record); err != nil {
		return outcomeFailed, err
	}
	if err := p.attachEmail(ctx, owner, record.ID, email, false); err != nil {
		return outcomeFailed, err
	}

	p.logger.Info("created application record",
		zap.String("company", job.Company),
		zap.String("position", job.Position),
		zap.Float64("confidence", job.Confidence))
	return outcomeNewApplication, nil
}

func (p *EmailProcessor) attachEmail(ctx context.Context, owner, applicationID string, email models.RawEmail, followUp bool) error {
	return p.store.AttachEmail(ctx, &models.EmailAttachment{
		Owner:         owner,
		ApplicationID: applicationID,
		MessageID:     email.MessageID,
		Subject:       email.Subject,
		Sender:        email.Sender,
		Date:          email.ReceivedDate,
		Body:          email.Body,
		IsFollowUp:    followUp,
	})
}

// ProcessBatch runs a fetched batch sequentially in received order.
func (p *EmailProcessor) ProcessBatch(ctx context.Context, owner string, emails []models.RawEmail) (BatchStats, error) {
	ctx, span := p.tracer.Start(ctx, "ProcessBatch")
	defer span.End()
	span.SetAttributes(telemetry.Int("batch.size", len(emails)))

	stats := BatchStats{}
	for _, email := range emails {
		if _, err := p.processEmail(ctx, owner, email, &stats); err != nil {
			return stats, err
		}
	}

	p.logger.Info("processed email batch",
		zap.Int("batch_size", len(emails)),
		zap.Int("processed", stats.Processed),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("irrelevant", stats.Irrelevant),
		zap.Int("failed", stats.Failed),
		zap.Int("new_applications", stats.NewApplications),
		zap.Int("follow_ups", stats.FollowUps))
	return stats, nil
}

// ReparseAll re-runs extraction over the stored corpus, overwriting derived
// fields. Labels and verification flags are never touched.
func (p *EmailProcessor) ReparseAll(ctx context.Context, owner string) (BatchStats, error) {
	ctx, span := p.tracer.Start(ctx, "ReparseAll")
	defer span.End()

	entries, err := p.store.ListLabeledEmails(ctx, owner, false)
	if err != nil {
		return BatchStats{}, err
	}

	stats := BatchStats{}
	for i := range entries {
		entry := &entries[i]
		email := models.RawEmail{
			MessageID:    entry.MessageID,
			Subject:      entry.Subject,
			Body:         entry.Body,
			Sender:       entry.Sender,
			ReceivedDate: entry.ReceivedDate,
		}

		job, err := p.router.Parse(ctx, email)
		if err != nil {
			stats.Failed++
			entry.ProcessingStatus = models.StatusFailed
			if updateErr := p.store.UpdateLabeledEmail(ctx, entry); updateErr != nil {
				return stats, updateErr
			}
			continue
		}

		entry.ParsedCompany = job.Company
		entry.ParsedPosition = job.Position
		entry.ProcessingStatus = models.StatusSuccess
		if err := p.store.UpdateLabeledEmail(ctx, entry); err != nil {
			return stats, err
		}

		if entry.IsApplicationEmail {
			if _, err := p.upsertApplication(ctx, owner, email, job); err != nil {
				return stats, err
			}
		}
		stats.Processed++
	}

	p.logger.Info("reparsed stored corpus",
		zap.Int("entries", len(entries)),
		zap.Int("processed", stats.Processed),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// Train rebuilds the statistical models from the labeled corpus.
func (p *EmailProcessor) Train(ctx context.Context, owner string) (*classifier.EvalReport, error) {
	ctx, span := p.tracer.Start(ctx, "Train")
	defer span.End()

	entries, err := p.store.ListLabeledEmails(ctx, owner, true)
	if err != nil {
		return nil, err
	}

	examples := make([]classifier.Example, 0, len(entries))
	for _, entry := range entries {
		examples = append(examples, classifier.Example{
			Subject:  entry.Subject,
			Body:     entry.Body,
			Sender:   entry.Sender,
			Company:  entry.CompanyLabel(),
			Position: entry.PositionLabel(),
			FromATS:  ats.FindProvider(entry.Sender) != nil,
		})
	}

	return p.classifier.Train(ctx, examples)
}
