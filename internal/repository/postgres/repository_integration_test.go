//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib" //для goose миграций

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
	"github.com/shestoi/GoBigTech/services/transaction/migrations"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()

	// Поднимаем PostgreSQL контейнер через testcontainers
	postgresContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("transactions"),
		postgres.WithUsername("transaction_user"),
		postgres.WithPassword("transaction_password"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, testcontainers.TerminateContainer(postgresContainer))
	}()

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Открываем *sql.DB через pgx stdlib для goose миграций
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	var pingErr error
	for i := 0; i < 10; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, pingErr, "Failed to ping database after retries")

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(ctx, db, "."), "Failed to run migrations")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := repo.Create(ctx, repository.Transaction{
			ID:        fmt.Sprintf("00000000-0000-0000-0000-00000000000%d", i),
			TryoutID:  fmt.Sprintf("tryout-%d", i%2),
			UserID:    "user-1",
			Amount:    decimal.RequireFromString("150000.50"),
			Status:    repository.StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		require.Equal(t, "tryout-0", got.TryoutID)
		require.True(t, decimal.RequireFromString("150000.50").Equal(got.Amount))
		require.Equal(t, repository.StatusPending, got.Status)
		require.True(t, base.Equal(got.CreatedAt))
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		require.True(t, errors.Is(err, repository.ErrNotFound), "Expected ErrNotFound, got: %v", err)
	})

	t.Run("List pagination", func(t *testing.T) {
		page, err := repo.List(ctx, repository.ListFilter{Skip: 0, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)

		page, err = repo.List(ctx, repository.ListFilter{Skip: 4, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 1)

		page, err = repo.List(ctx, repository.ListFilter{TryoutID: "tryout-1", Limit: 100})
		require.NoError(t, err)
		require.Len(t, page, 2)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		id := "00000000-0000-0000-0000-000000000001"
		updated, err := repo.UpdateStatus(ctx, id, repository.StatusPending, repository.StatusApproved, time.Now().UTC())
		require.NoError(t, err)
		require.Equal(t, repository.StatusApproved, updated.Status)

		_, err = repo.UpdateStatus(ctx, id, repository.StatusPending, repository.StatusRejected, time.Now().UTC())
		require.ErrorIs(t, err, repository.ErrStatusConflict)

		_, err = repo.UpdateStatus(ctx, "missing", repository.StatusPending, repository.StatusRejected, time.Now().UTC())
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("amount keeps two decimal places", func(t *testing.T) {
		for i, raw := range []string{"0.01", "50000.05", "9999999999.99"} {
			id := fmt.Sprintf("10000000-0000-0000-0000-00000000000%d", i)
			amount := decimal.RequireFromString(raw)
			require.NoError(t, repo.Create(ctx, repository.Transaction{
				ID:        id,
				TryoutID:  "tryout-amount",
				UserID:    "user-amount",
				Amount:    amount,
				Status:    repository.StatusPending,
				CreatedAt: base,
			}))

			got, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			require.True(t, amount.Equal(got.Amount), "stored %s, got %s", raw, got.Amount)
		}
	})
}
