package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
	"github.com/shestoi/GoBigTech/services/transaction/internal/storage"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ProofStorage --dir=. --output=./mocks --outpkg=mocks

// ProofStorage хранит подтверждения оплаты (одно на транзакцию, повторная загрузка перезаписывает)
type ProofStorage interface {
	Put(ctx context.Context, transactionID string, data []byte, contentType string) error
	// Get возвращает storage.ErrNotFound, если подтверждения нет
	Get(ctx context.Context, transactionID string) (storage.Proof, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=Broadcaster --dir=. --output=./mocks --outpkg=mocks

// Broadcaster рассылает событие подключённым наблюдателям
// Ошибки доставки отдельным наблюдателям наружу не возвращаются
type Broadcaster interface {
	Broadcast(ctx context.Context, event any) error
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=EventPublisher --dir=. --output=./mocks --outpkg=mocks

// EventPublisher публикует доменные события во внешний поток (Kafka)
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, event TransactionCreatedEvent) error
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
}

// TransactionCreatedEvent - событие создания транзакции
type TransactionCreatedEvent struct {
	TransactionID string
	TryoutID      string
	UserID        string
	Amount        decimal.Decimal
	CreatedAt     time.Time
}

// StatusChangedEvent - событие смены статуса транзакции
type StatusChangedEvent struct {
	TransactionID string
	UserID        string
	From          repository.Status
	To            repository.Status
	ChangedAt     time.Time
}
