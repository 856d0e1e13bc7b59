// Package events carries fetched emails from the mailbox poller to the
// processing side over NATS, decoupling fetch cadence from parse cost.
package events

import (
	"context"
	"encoding/json"
	"time"

	"apptrack/server/internal/config"
	"apptrack/server/internal/errors"
	"apptrack/server/internal/models"
	"apptrack/server/internal/telemetry"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("apptrack/server/events")

const (
	EmailsFetchedSubject = "emails.fetched"
	processingQueue      = "apptrack-server"
)

// EmailFetched is the wire event for one mailbox message handed to the
// pipeline.
type EmailFetched struct {
	Owner string          `json:"owner"`
	Email models.RawEmail `json:"email"`
}

type Publisher interface {
	PublishEmailFetched(ctx context.Context, owner string, email models.RawEmail) error
	Close()
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func Connect(cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, errors.Unavailable("connecting to NATS", err)
	}
	return conn, nil
}

func NewPublisher(conn *nats.Conn, logger *zap.Logger) Publisher {
	return &natsPublisher{
		conn:   conn,
		logger: logger,
	}
}

func (p *natsPublisher) PublishEmailFetched(ctx context.Context, owner string, email models.RawEmail) error {
	_, span := tracer.Start(ctx, "PublishEmailFetched")
	defer span.End()

	data, err := json.Marshal(EmailFetched{Owner: owner, Email: email})
	if err != nil {
		span.RecordError(err)
		return errors.Internal("marshaling email event", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", EmailsFetchedSubject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(EmailsFetchedSubject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish fetched email",
			zap.String("message_id", email.MessageID),
			zap.Error(err))
		return errors.Internal("publishing to NATS", err)
	}

	p.logger.Debug("published fetched email",
		zap.String("message_id", email.MessageID),
		zap.String("subject", EmailsFetchedSubject))
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
