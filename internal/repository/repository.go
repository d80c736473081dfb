package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status представляет статус транзакции оплаты
type Status string

const (
	// StatusPending - транзакция создана и ждёт подтверждения оплаты
	StatusPending Status = "pending"
	// StatusApproved - оплата подтверждена (терминальный статус)
	StatusApproved Status = "approved"
	// StatusRejected - оплата отклонена (терминальный статус)
	StatusRejected Status = "rejected"
)

// IsTerminal возвращает true для статусов, из которых нет переходов
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid проверяет, что статус входит в допустимый набор
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Transaction представляет доменную модель транзакции оплаты tryout
// Это бизнес-сущность, не привязанная к HTTP или БД
type Transaction struct {
	ID        string
	TryoutID  string
	UserID    string
	Amount    decimal.Decimal
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tryout представляет метаданные tryout, которые нужны для отображения и расчёта суммы
type Tryout struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// ListFilter описывает выборку транзакций с пагинацией
// Пустые UserID/TryoutID означают "без фильтра"
type ListFilter struct {
	UserID   string
	TryoutID string
	Skip     int
	Limit    int
}

// Match проверяет, подходит ли транзакция под фильтр (без учёта пагинации)
func (f ListFilter) Match(tx Transaction) bool {
	if f.UserID != "" && tx.UserID != f.UserID {
		return false
	}
	if f.TryoutID != "" && tx.TryoutID != f.TryoutID {
		return false
	}
	return true
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=TransactionRepository --dir=. --output=./mocks --outpkg=mocks

// TransactionRepository определяет интерфейс для работы с хранилищем транзакций
// Service слой зависит от этого интерфейса, а не от конкретной реализации
type TransactionRepository interface {
	// Create сохраняет новую транзакцию
	Create(ctx context.Context, tx Transaction) error

	// GetByID получает транзакцию по ID
	// Возвращает ErrNotFound, если транзакция не найдена
	GetByID(ctx context.Context, id string) (Transaction, error)

	// List возвращает транзакции по фильтру, упорядоченные по created_at, id
	List(ctx context.Context, filter ListFilter) ([]Transaction, error)

	// UpdateStatus переводит транзакцию из статуса from в статус to
	// Возвращает ErrNotFound, если транзакции нет, и ErrStatusConflict,
	// если текущий статус уже не равен from
	UpdateStatus(ctx context.Context, id string, from, to Status, updatedAt time.Time) (Transaction, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=TryoutRepository --dir=. --output=./mocks --outpkg=mocks

// TryoutRepository определяет источник метаданных tryout
type TryoutRepository interface {
	// GetTryout возвращает tryout по ID
	// Возвращает ErrTryoutNotFound, если tryout не существует
	GetTryout(ctx context.Context, id string) (Tryout, error)
}

var (
	// ErrNotFound возвращается, когда транзакция не найдена в хранилище
	ErrNotFound = errors.New("transaction not found")
	// ErrStatusConflict возвращается, когда условное обновление статуса не применилось
	ErrStatusConflict = errors.New("transaction status conflict")
	// ErrTryoutNotFound возвращается, когда tryout не найден
	ErrTryoutNotFound = errors.New("tryout not found")
)
