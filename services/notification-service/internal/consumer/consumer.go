package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/consuldesk/invoicedesk/libs/kafkax"
	"github.com/consuldesk/invoicedesk/services/notification-service/internal/inbox"
)

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

// Handler processes a single Kafka message. Returning an error leaves the
// offset uncommitted so the message is redelivered.
type Handler func(ctx context.Context, msg kafka.Message) error

// Consumer reads one topic through a consumer group and applies inbox
// deduplication before invoking the handler.
type Consumer struct {
	logger  *slog.Logger
	inbox   *inbox.Repository
	cfg     Config
	handler Handler
}

func New(logger *slog.Logger, inboxRepo *inbox.Repository, cfg Config, handler Handler) *Consumer {
	return &Consumer{
		logger:  logger,
		inbox:   inboxRepo,
		cfg:     cfg,
		handler: handler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	brokers := kafkax.SplitBrokers(c.cfg.Brokers)
	if len(brokers) == 0 {
		c.logger.Warn("consumer disabled (no kafka brokers configured)", "topic", c.cfg.Topic)
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        c.cfg.GroupID,
		Topic:          c.cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	defer reader.Close()

	c.logger.Info("consumer starting", "topic", c.cfg.Topic, "group_id", c.cfg.GroupID)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("kafka fetch failed", "err", err, "topic", c.cfg.Topic)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		msgCtx := kafkax.ExtractTraceContext(ctx, msg)
		meta := kafkax.ExtractEventMeta(msg)

		fresh, err := c.inbox.MarkProcessed(msgCtx, meta.EventID, meta.EventType)
		if err != nil {
			c.logger.Error("inbox check failed", "err", err, "event_id", meta.EventID)
			continue
		}
		if !fresh {
			c.logger.Info("duplicate event skipped", "event_id", meta.EventID, "event_type", meta.EventType)
			c.commit(ctx, reader, msg)
			continue
		}

		if err := c.handler(msgCtx, msg); err != nil {
			c.logger.Error("handler failed", "err", err, "event_id", meta.EventID)
			if rmErr := c.inbox.Remove(msgCtx, meta.EventID); rmErr != nil {
				c.logger.Error("inbox release failed", "err", rmErr, "event_id", meta.EventID)
			}
			continue
		}

		c.commit(ctx, reader, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, reader *kafka.Reader, msg kafka.Message) {
	if err := reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("kafka commit failed", "err", err)
	}
}
