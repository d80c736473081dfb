package kafka

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageReader - часть kafka.Reader, которой пользуется EventTail
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventTail читает события транзакций из обоих топиков и передаёт их в handle
type EventTail struct {
	logger *zap.Logger
	reader messageReader
	handle func(context.Context, Event) error
}

// NewEventTail создаёт consumer group reader на топики created и status_changed
func NewEventTail(logger *zap.Logger, brokers []string, groupID string, topics []string, handle func(context.Context, Event) error) *EventTail {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})

	return newEventTail(logger, reader, handle)
}

func newEventTail(logger *zap.Logger, reader messageReader, handle func(context.Context, Event) error) *EventTail {
	return &EventTail{
		logger: logger,
		reader: reader,
		handle: handle,
	}
}

// Start читает сообщения до отмены ctx
// Битые сообщения логируются и коммитятся, ошибка handle оставляет offset на месте
func (t *EventTail) Start(ctx context.Context) error {
	for {
		m, err := t.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.logger.Info("event tail context cancelled, stopping")
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			t.logger.Error("failed to fetch message from kafka", zap.Error(err))
			continue
		}

		if !t.processMessage(ctx, m) {
			continue
		}

		if err := t.reader.CommitMessages(ctx, m); err != nil {
			t.logger.Error("failed to commit message offset",
				zap.Error(err),
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}
	}
}

func (t *EventTail) processMessage(ctx context.Context, m kafka.Message) bool {
	event, err := DecodeEvent(m.Value)
	if err != nil {
		var parseErr *ParseError
		field := ""
		if errors.As(err, &parseErr) {
			field = parseErr.Field
		}
		t.logger.Warn("skipping malformed transaction event",
			zap.Error(err),
			zap.String("field", field),
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
		return true
	}

	if err := t.handle(ctx, event); err != nil {
		t.logger.Error("failed to handle transaction event",
			zap.Error(err),
			zap.String("event_type", event.EventType),
			zap.String("transaction_id", event.TransactionID),
		)
		return false
	}
	return true
}

// Close закрывает Kafka reader
func (t *EventTail) Close() error {
	return t.reader.Close()
}
