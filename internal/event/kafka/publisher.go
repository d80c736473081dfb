package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/transaction/internal/service"
)

const (
	EventTypeTransactionCreated = "transaction.created"
	EventTypeStatusChanged      = "transaction.status_changed"

	eventVersion = 1

	// writerBatchTimeout - ожидание добора батча, публикация идёт внутри HTTP запроса
	writerBatchTimeout = 10 * time.Millisecond
)

// messageWriter - часть kafka.Writer, которой пользуется publisher
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TransactionEventPublisher реализует service.EventPublisher используя Kafka
// Один writer на оба топика: топик задаётся в каждом сообщении
type TransactionEventPublisher struct {
	logger       *zap.Logger
	writer       messageWriter
	createdTopic string
	statusTopic  string
}

// NewTransactionEventPublisher создаёт новый Kafka publisher для событий транзакций
func NewTransactionEventPublisher(logger *zap.Logger, brokers []string, createdTopic, statusTopic string) *TransactionEventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{}, //события одной транзакции попадают в одну партицию
		BatchTimeout:           writerBatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(logger, writer, createdTopic, statusTopic)
}

func newPublisher(logger *zap.Logger, writer messageWriter, createdTopic, statusTopic string) *TransactionEventPublisher {
	return &TransactionEventPublisher{
		logger:       logger,
		writer:       writer,
		createdTopic: createdTopic,
		statusTopic:  statusTopic,
	}
}

// Close закрывает Kafka writer
func (p *TransactionEventPublisher) Close() error {
	return p.writer.Close()
}

// PublishTransactionCreated публикует событие создания транзакции
func (p *TransactionEventPublisher) PublishTransactionCreated(ctx context.Context, event service.TransactionCreatedEvent) error {
	payload := map[string]interface{}{
		"event_id":       uuid.New().String(),
		"event_type":     EventTypeTransactionCreated,
		"event_version":  eventVersion,
		"occurred_at":    event.CreatedAt.UTC().Format(time.RFC3339),
		"transaction_id": event.TransactionID,
		"tryout_id":      event.TryoutID,
		"user_id":        event.UserID,
		"amount":         event.Amount.String(),
	}

	return p.publish(ctx, p.createdTopic, event.TransactionID, payload)
}

// PublishStatusChanged публикует событие смены статуса транзакции
func (p *TransactionEventPublisher) PublishStatusChanged(ctx context.Context, event service.StatusChangedEvent) error {
	payload := map[string]interface{}{
		"event_id":       uuid.New().String(),
		"event_type":     EventTypeStatusChanged,
		"event_version":  eventVersion,
		"occurred_at":    event.ChangedAt.UTC().Format(time.RFC3339),
		"transaction_id": event.TransactionID,
		"user_id":        event.UserID,
		"from_status":    string(event.From),
		"to_status":      string(event.To),
	}

	return p.publish(ctx, p.statusTopic, event.TransactionID, payload)
}

func (p *TransactionEventPublisher) publish(ctx context.Context, topic, key string, payload map[string]interface{}) error {
	valueBytes, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal transaction event",
			zap.Error(err),
			zap.String("transaction_id", key),
		)
		return err
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key), //ключ - ID транзакции
		Value: valueBytes,
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.Error("failed to publish transaction event",
			zap.Error(err),
			zap.String("topic", topic),
			zap.String("transaction_id", key),
		)
		return err
	}

	p.logger.Info("transaction event published",
		zap.String("topic", topic),
		zap.String("transaction_id", key),
		zap.Any("event_type", payload["event_type"]),
	)
	return nil
}

// NoopPublisher используется, когда Kafka выключена (KAFKA_ENABLED=false)
type NoopPublisher struct{}

func (NoopPublisher) PublishTransactionCreated(context.Context, service.TransactionCreatedEvent) error {
	return nil
}

func (NoopPublisher) PublishStatusChanged(context.Context, service.StatusChangedEvent) error {
	return nil
}
