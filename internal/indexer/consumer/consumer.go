// Package consumer listens for collection-change notifications on Kafka and
// triggers a reload of the quote collection for each one.
package consumer

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/kafka"
)

// UpdateEvent announces that the quote collection behind a source changed.
// An empty Source matches every consumer.
type UpdateEvent struct {
	Source   string `json:"source"`
	Revision string `json:"revision,omitempty"`
}

// Reloader is satisfied by *app.App.
type Reloader interface {
	Reload(ctx context.Context)
}

// ReloadConsumer wraps a Kafka consumer to drive collection reloads.
type ReloadConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *ReloadConsumer {
	return &ReloadConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "reload-consumer"),
	}
}

// Start blocks consuming messages until ctx is cancelled.
func (rc *ReloadConsumer) Start(ctx context.Context) error {
	rc.logger.Info("reload consumer starting")
	return rc.consumer.Start(ctx)
}

func (rc *ReloadConsumer) Close() error {
	return rc.consumer.Close()
}

// HandleMessage returns a MessageHandler that starts a reload for every
// update event addressed to sourceName. Undecodable messages are logged and
// committed so they do not block the partition.
func HandleMessage(r Reloader, sourceName string) kafka.MessageHandler {
	logger := slog.Default().With("component", "reload-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[UpdateEvent](value)
		if err != nil {
			logger.Error("failed to decode update event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if event.Source != "" && event.Source != sourceName {
			logger.Debug("ignoring update for another source",
				"source", event.Source,
				"revision", event.Revision,
			)
			return nil
		}

		logger.Info("collection update received, reloading",
			"source", sourceName,
			"revision", event.Revision,
		)
		r.Reload(ctx)
		return nil
	}
}
