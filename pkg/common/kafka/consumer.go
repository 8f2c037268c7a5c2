package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/logger"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

const (
	defaultRetryDelay = 200 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
)

// messageReader is the part of *kafka.Reader the consumer loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     messageReader
	retryDelay time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, retryDelay: defaultRetryDelay}
}

// Consume blocks until ctx is cancelled. A message whose handler fails is
// retried with backoff and the loop does not fetch past it, so the group
// offset never skips an unprocessed event.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event")
			c.reader.CommitMessages(ctx, message)
			continue
		}

		if err := c.handle(ctx, handler, event, message.Offset); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			logger.Log.WithError(err).Error("Failed to commit message")
		}
	}
}

// handle runs handler until it succeeds. It only gives up when ctx ends.
func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event, offset int64) error {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"offset":   offset,
			"attempt":  attempt,
		}).Error("Failed to process event, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
