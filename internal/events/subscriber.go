package events

import (
	"context"
	"encoding/json"
	"fmt"

	"apptrack/server/internal/processor"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Handler struct {
	logger    *zap.Logger
	nc        *nats.Conn
	processor *processor.EmailProcessor
	sub       *nats.Subscription
}

func NewHandler(logger *zap.Logger, nc *nats.Conn, emailProcessor *processor.EmailProcessor) *Handler {
	return &Handler{
		logger:    logger,
		nc:        nc,
		processor: emailProcessor,
	}
}

// RegisterSubscriptions joins the processing queue group so that only one
// server instance handles each fetched email.
func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) error {
	sub, err := h.nc.QueueSubscribe(EmailsFetchedSubject, processingQueue, h.handleEmailFetched)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", EmailsFetchedSubject, err)
	}

	h.sub = sub
	h.logger.Info("Registered NATS subscriptions")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return h.sub.Unsubscribe()
		},
	})

	return nil
}

func (h *Handler) handleEmailFetched(msg *nats.Msg) {
	ctx, span := tracer.Start(context.Background(), "handleEmailFetched")
	defer span.End()

	var event EmailFetched
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		h.logger.Error("Failed to decode fetched email event",
			zap.Error(err),
			zap.String("subject", msg.Subject),
		)
		return
	}

	if err := h.processor.ProcessEmail(ctx, event.Owner, event.Email); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to process fetched email",
			zap.Error(err),
			zap.String("message_id", event.Email.MessageID),
		)
		return
	}

	h.logger.Debug("Processed fetched email",
		zap.String("message_id", event.Email.MessageID),
	)
}
