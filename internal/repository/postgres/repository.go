package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
)

const selectColumns = `id, tryout_id, user_id, amount, status, created_at, updated_at`

// Repository реализует TransactionRepository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// Create сохраняет транзакцию в PostgreSQL
// Если CreatedAt пустой, используем DEFAULT now() из БД
func (r *Repository) Create(ctx context.Context, tx repository.Transaction) error {
	var err error
	if !tx.CreatedAt.IsZero() {
		updatedAt := tx.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = tx.CreatedAt
		}
		_, err = r.pool.Exec(ctx,
			`INSERT INTO transactions (id, tryout_id, user_id, amount, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			tx.ID, tx.TryoutID, tx.UserID, tx.Amount, string(tx.Status), tx.CreatedAt, updatedAt)
	} else {
		_, err = r.pool.Exec(ctx,
			`INSERT INTO transactions (id, tryout_id, user_id, amount, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			tx.ID, tx.TryoutID, tx.UserID, tx.Amount, string(tx.Status))
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

// GetByID получает транзакцию по ID из PostgreSQL
func (r *Repository) GetByID(ctx context.Context, id string) (repository.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+selectColumns+`
		 FROM transactions
		 WHERE id = $1`,
		id)

	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Transaction{}, repository.ErrNotFound
		}
		return repository.Transaction{}, err
	}

	return tx, nil
}

// List возвращает транзакции по фильтру с OFFSET/LIMIT
func (r *Repository) List(ctx context.Context, filter repository.ListFilter) ([]repository.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.TryoutID != "" {
		args = append(args, filter.TryoutID)
		where = append(where, fmt.Sprintf("tryout_id = $%d", len(args)))
	}

	query := `SELECT ` + selectColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Skip, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at, id OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Пустой slice вместо nil, чтобы клиент получал [] а не null
	result := make([]repository.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateStatus выполняет conditional update: статус меняется только если он всё ещё равен from
// Так два конкурентных approve/reject не могут оба примениться
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to repository.Status, updatedAt time.Time) (repository.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE transactions
		 SET status = $3, updated_at = $4
		 WHERE id = $1 AND status = $2
		 RETURNING `+selectColumns,
		id, string(from), string(to), updatedAt)

	tx, err := scanTransaction(row)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return repository.Transaction{}, err
	}

	// Ни одна строка не обновилась: либо транзакции нет, либо статус уже другой
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return repository.Transaction{}, err
	}
	if !exists {
		return repository.Transaction{}, repository.ErrNotFound
	}

	return repository.Transaction{}, repository.ErrStatusConflict
}

func scanTransaction(row pgx.Row) (repository.Transaction, error) {
	var (
		tx     repository.Transaction
		status string
	)
	if err := row.Scan(&tx.ID, &tx.TryoutID, &tx.UserID, &tx.Amount, &status, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return repository.Transaction{}, err
	}
	tx.Status = repository.Status(status)
	if !tx.Status.Valid() {
		return repository.Transaction{}, fmt.Errorf("transaction %s has unknown status %q", tx.ID, status)
	}
	return tx, nil
}
