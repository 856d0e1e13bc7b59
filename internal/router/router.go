// Package router orchestrates the inference pipeline for a single email:
// relevance gate, ATS rule match, generic pattern match, statistical
// fallback, sentinel defaults, field cleanup.
package router

import (
	"context"
	"fmt"

	"apptrack/server/internal/ats"
	"apptrack/server/internal/classifier"
	"apptrack/server/internal/errors"
	"apptrack/server/internal/models"
	"apptrack/server/internal/patterns"
	"apptrack/server/internal/telemetry"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const appliedStatus = "applied"

// Stage confidences for rule-based extraction; the classifier reports its
// own posterior. Unresolved fields score the floor.
const (
	atsConfidence     = 0.9
	patternConfidence = 0.7
	floorConfidence   = 0.1
)

type Router struct {
	classifier *classifier.Classifier
	logger     *zap.Logger
	tracer     trace.Tracer
}

// New builds a Router around an injected classifier instance; the Router
// never reaches into ambient state for a model.
func New(cls *classifier.Classifier, logger *zap.Logger) *Router {
	return &Router{
		classifier: cls,
		logger:     logger,
		tracer:     telemetry.GetTracer("apptrack/server/router"),
	}
}

// Relevant runs the relevance gate for one email.
func (r *Router) Relevant(email models.RawEmail) bool {
	return IsJobApplicationEmail(email.Sender, email.Subject)
}

// Parse runs the pipeline stages in order, each stage filling only fields
// that are still unresolved. Callers must gate with Relevant first. Any
// panic inside a stage surfaces as a PARSE_FAILURE error so one bad email
// never aborts a batch.
func (r *Router) Parse(ctx context.Context, email models.RawEmail) (job models.ParsedJob, err error) {
	_, span := r.tracer.Start(ctx, "Router.Parse")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err = errors.ParseFailure(fmt.Sprintf("parsing email %s", email.MessageID), fmt.Errorf("%v", rec))
			span.RecordError(err)
		}
	}()

	var company, position models.Field
	companyConf, positionConf := floorConfidence, floorConfidence

	provider := ats.FindProvider(email.Sender)
	if provider != nil {
		span.SetAttributes(telemetry.String("ats.provider", provider.Name))
		if f := provider.Company(email); f.OK {
			company, companyConf = f, atsConfidence
		}
		if f := provider.Position(email); f.OK {
			position, positionConf = f, atsConfidence
		}
	}

	if !company.OK {
		if f := patterns.ExtractCompany(email); f.OK {
			company, companyConf = f, patternConfidence
		}
	}
	if !position.OK {
		if f := patterns.ExtractPosition(email); f.OK {
			position, positionConf = f, patternConfidence
		}
	}

	if (!company.OK || !position.OK) && r.classifier != nil && r.classifier.Trained() {
		prediction := r.classifier.Classify(email, provider != nil)
		if !company.OK && prediction.Company.OK {
			company, companyConf = prediction.Company, prediction.CompanyConfidence
		}
		if !position.OK && prediction.Position.OK {
			position, positionConf = prediction.Position, prediction.PositionConfidence
		}
	}

	finalCompany := patterns.CleanCompany(company.OrDefault(models.UnknownCompany))
	if finalCompany == "" {
		finalCompany = models.UnknownCompany
	}
	finalPosition := patterns.CleanPosition(position.OrDefault(models.DefaultPosition))
	if finalPosition == "" {
		finalPosition = models.DefaultPosition
	}

	span.SetAttributes(
		telemetry.String("parsed.company", finalCompany),
		telemetry.String("parsed.position", finalPosition),
		telemetry.Bool("parsed.company_resolved", company.OK),
		telemetry.Bool("parsed.position_resolved", position.OK),
	)

	return models.ParsedJob{
		Company:         finalCompany,
		Position:        finalPosition,
		AppliedDate:     email.ReceivedDate,
		Status:          appliedStatus,
		Confidence:      (companyConf + positionConf) / 2,
		SourceMessageID: email.MessageID,
	}, nil
}
