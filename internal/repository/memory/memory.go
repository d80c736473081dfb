package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
)

// MemoryRepository реализует TransactionRepository используя in-memory хранилище
// Используется для разработки и тестирования
type MemoryRepository struct {
	mu           sync.RWMutex
	transactions map[string]repository.Transaction
}

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		transactions: make(map[string]repository.Transaction),
	}
}

// Create сохраняет транзакцию в памяти
// Если у транзакции нет CreatedAt, устанавливаем текущее время
func (r *MemoryRepository) Create(ctx context.Context, tx repository.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}

	r.transactions[tx.ID] = tx
	return nil
}

// GetByID получает транзакцию по ID из памяти
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (repository.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, exists := r.transactions[id]
	if !exists {
		return repository.Transaction{}, repository.ErrNotFound
	}

	return tx, nil
}

// List возвращает срез транзакций по фильтру в порядке created_at, id
func (r *MemoryRepository) List(ctx context.Context, filter repository.ListFilter) ([]repository.Transaction, error) {
	r.mu.RLock()
	matched := make([]repository.Transaction, 0, len(r.transactions))
	for _, tx := range r.transactions {
		if filter.Match(tx) {
			matched = append(matched, tx)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if filter.Skip >= len(matched) {
		return []repository.Transaction{}, nil
	}
	end := len(matched)
	if filter.Limit >= 0 && filter.Skip+filter.Limit < end {
		end = filter.Skip + filter.Limit
	}

	return matched[filter.Skip:end], nil
}

// UpdateStatus применяет переход статуса только если текущий статус равен from
// Проверка и запись выполняются под одним lock, как conditional update в БД
func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, from, to repository.Status, updatedAt time.Time) (repository.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, exists := r.transactions[id]
	if !exists {
		return repository.Transaction{}, repository.ErrNotFound
	}
	if tx.Status != from {
		return repository.Transaction{}, repository.ErrStatusConflict
	}

	tx.Status = to
	tx.UpdatedAt = updatedAt
	r.transactions[id] = tx

	return tx, nil
}
