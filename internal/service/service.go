package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
	"github.com/shestoi/GoBigTech/services/transaction/internal/storage"
	platformobservability "github.com/shestoi/GoBigTech/services/transaction/platform/observability"
)

const (
	// DefaultLimit - размер страницы по умолчанию
	DefaultLimit = 100
	// DefaultDownstreamTimeout - таймаут одного вызова хранилища или внешнего сервиса
	DefaultDownstreamTimeout = 5 * time.Second
	// AmountScale - знаков после запятой у суммы (колонка NUMERIC(12, 2))
	AmountScale = 2
)

// MaxAmount - верхняя граница суммы, не включительно: 10 цифр до запятой
var MaxAmount = decimal.New(1, 10)

// PaymentInstructions - статичные реквизиты для оплаты, приходят из конфигурации
type PaymentInstructions struct {
	Bank          string
	AccountNumber string
}

// TransactionDetail - транзакция, обогащённая названием tryout и реквизитами
// Этот же JSON рассылается наблюдателям при создании транзакции
type TransactionDetail struct {
	ID            string            `json:"id"`
	TryoutID      string            `json:"tryout_id"`
	UserID        string            `json:"user_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        repository.Status `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	TryoutName    string            `json:"tryout_name"`
	Bank          string            `json:"bank"`
	AccountNumber string            `json:"account_number"`
}

// TransactionIntent - расчёт оплаты для tryout, ничего не сохраняется
type TransactionIntent struct {
	TryoutID      string          `json:"tryout_id"`
	TryoutName    string          `json:"tryout_name"`
	Amount        decimal.Decimal `json:"amount"`
	Bank          string          `json:"bank"`
	AccountNumber string          `json:"account_number"`
}

// CreateTransactionInput содержит входные данные для создания транзакции
type CreateTransactionInput struct {
	TryoutID string
	UserID   string
	Amount   decimal.Decimal
}

// Page - параметры пагинации. nil означает значение по умолчанию (0 / DefaultLimit)
type Page struct {
	Skip  *int
	Limit *int
}

// TransactionService содержит бизнес-логику жизненного цикла транзакций оплаты
type TransactionService struct {
	logger      *zap.Logger
	repo        repository.TransactionRepository
	tryouts     repository.TryoutRepository
	proofs      ProofStorage
	broadcaster Broadcaster
	publisher   EventPublisher
	payment     PaymentInstructions
	timeout     time.Duration

	now   func() time.Time
	newID func() string
}

// NewTransactionService создаёт новый экземпляр TransactionService
// timeout <= 0 заменяется на DefaultDownstreamTimeout
func NewTransactionService(
	logger *zap.Logger,
	repo repository.TransactionRepository,
	tryouts repository.TryoutRepository,
	proofs ProofStorage,
	broadcaster Broadcaster,
	publisher EventPublisher,
	payment PaymentInstructions,
	timeout time.Duration,
) *TransactionService {
	if timeout <= 0 {
		timeout = DefaultDownstreamTimeout
	}
	return &TransactionService{
		logger:      logger,
		repo:        repo,
		tryouts:     tryouts,
		proofs:      proofs,
		broadcaster: broadcaster,
		publisher:   publisher,
		payment:     payment,
		timeout:     timeout,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.New().String() },
	}
}

// CreateTransaction создаёт транзакцию в статусе pending и рассылает её наблюдателям
// Tryout резолвится до сохранения: если его нет, ничего не сохраняется и не рассылается
func (s *TransactionService) CreateTransaction(ctx context.Context, input CreateTransactionInput) (TransactionDetail, error) {
	if strings.TrimSpace(input.TryoutID) == "" {
		return TransactionDetail{}, fmt.Errorf("tryout_id is required: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(input.UserID) == "" {
		return TransactionDetail{}, fmt.Errorf("user_id is required: %w", ErrInvalidInput)
	}
	if err := validateAmount(input.Amount); err != nil {
		return TransactionDetail{}, err
	}

	tryout, err := s.lookupTryout(ctx, input.TryoutID)
	if err != nil {
		return TransactionDetail{}, err
	}

	now := s.now()
	tx := repository.Transaction{
		ID:        s.newID(),
		TryoutID:  input.TryoutID,
		UserID:    input.UserID,
		Amount:    input.Amount,
		Status:    repository.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	repoCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.repo.Create(repoCtx, tx)
	cancel()
	if err != nil {
		s.log(ctx).Error("failed to save transaction",
			zap.Error(err),
			zap.String("tryout_id", tx.TryoutID),
			zap.String("user_id", tx.UserID),
		)
		return TransactionDetail{}, fmt.Errorf("failed to save transaction: %w", err)
	}

	detail := s.enrich(tx, tryout)

	s.log(ctx).Info("transaction created",
		zap.String("transaction_id", tx.ID),
		zap.String("tryout_id", tx.TryoutID),
		zap.String("user_id", tx.UserID),
		zap.String("amount", tx.Amount.String()),
	)

	// Рассылка и публикация best-effort: ошибки только логируем
	if err := s.broadcaster.Broadcast(ctx, detail); err != nil {
		s.log(ctx).Warn("failed to broadcast transaction",
			zap.Error(err),
			zap.String("transaction_id", tx.ID),
		)
	}
	s.publishCreated(ctx, tx)

	return detail, nil
}

// validateAmount пропускает только суммы, которые хранилище сохранит без округления
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than 0: %w", ErrInvalidInput)
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("amount must have at most %d decimal places: %w", AmountScale, ErrInvalidInput)
	}
	if amount.GreaterThanOrEqual(MaxAmount) {
		return fmt.Errorf("amount must be less than %s: %w", MaxAmount.String(), ErrInvalidInput)
	}
	return nil
}

// GetTransaction получает транзакцию по ID
func (s *TransactionService) GetTransaction(ctx context.Context, id string) (repository.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return repository.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// GetTransactionDetail возвращает транзакцию вместе с названием tryout и реквизитами
func (s *TransactionService) GetTransactionDetail(ctx context.Context, id string) (TransactionDetail, error) {
	tx, err := s.GetTransaction(ctx, id)
	if err != nil {
		return TransactionDetail{}, err
	}

	tryout, err := s.lookupTryout(ctx, tx.TryoutID)
	if err != nil {
		return TransactionDetail{}, err
	}

	return s.enrich(tx, tryout), nil
}

// GetTransactionIntent возвращает сумму и реквизиты для оплаты tryout
func (s *TransactionService) GetTransactionIntent(ctx context.Context, tryoutID string) (TransactionIntent, error) {
	tryout, err := s.lookupTryout(ctx, tryoutID)
	if err != nil {
		return TransactionIntent{}, err
	}

	return TransactionIntent{
		TryoutID:      tryout.ID,
		TryoutName:    tryout.Name,
		Amount:        tryout.Price,
		Bank:          s.payment.Bank,
		AccountNumber: s.payment.AccountNumber,
	}, nil
}

// ListTransactions возвращает все транзакции постранично
func (s *TransactionService) ListTransactions(ctx context.Context, page Page) ([]repository.Transaction, error) {
	return s.list(ctx, repository.ListFilter{}, page)
}

// ListByUser возвращает транзакции пользователя постранично
func (s *TransactionService) ListByUser(ctx context.Context, userID string, page Page) ([]repository.Transaction, error) {
	return s.list(ctx, repository.ListFilter{UserID: userID}, page)
}

// ListByTryout возвращает транзакции по tryout постранично
func (s *TransactionService) ListByTryout(ctx context.Context, tryoutID string, page Page) ([]repository.Transaction, error) {
	return s.list(ctx, repository.ListFilter{TryoutID: tryoutID}, page)
}

func (s *TransactionService) list(ctx context.Context, filter repository.ListFilter, page Page) ([]repository.Transaction, error) {
	skip, limit, err := page.resolve()
	if err != nil {
		return nil, err
	}
	filter.Skip = skip
	filter.Limit = limit

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	txs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if txs == nil {
		txs = []repository.Transaction{}
	}
	return txs, nil
}

// resolve применяет значения по умолчанию и проверяет границы
func (p Page) resolve() (skip, limit int, err error) {
	skip, limit = 0, DefaultLimit
	if p.Skip != nil {
		skip = *p.Skip
	}
	if p.Limit != nil {
		limit = *p.Limit
	}
	if skip < 0 {
		return 0, 0, fmt.Errorf("skip must be >= 0: %w", ErrInvalidInput)
	}
	if limit < 0 {
		return 0, 0, fmt.Errorf("limit must be >= 0: %w", ErrInvalidInput)
	}
	return skip, limit, nil
}

// Approve переводит транзакцию pending -> approved
func (s *TransactionService) Approve(ctx context.Context, id string) (repository.Transaction, error) {
	return s.transition(ctx, id, repository.StatusApproved)
}

// Reject переводит транзакцию pending -> rejected
func (s *TransactionService) Reject(ctx context.Context, id string) (repository.Transaction, error) {
	return s.transition(ctx, id, repository.StatusRejected)
}

// transition выполняет переход из pending через условное обновление в хранилище,
// поэтому из двух конкурентных approve/reject применяется только один
func (s *TransactionService) transition(ctx context.Context, id string, to repository.Status) (repository.Transaction, error) {
	current, err := s.GetTransaction(ctx, id)
	if err != nil {
		return repository.Transaction{}, err
	}
	if current.Status.IsTerminal() {
		return repository.Transaction{}, fmt.Errorf("transaction %s is already %s: %w", id, current.Status, ErrInvalidState)
	}

	repoCtx, cancel := context.WithTimeout(ctx, s.timeout)
	updated, err := s.repo.UpdateStatus(repoCtx, id, repository.StatusPending, to, s.now())
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return repository.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		case errors.Is(err, repository.ErrStatusConflict):
			return repository.Transaction{}, fmt.Errorf("transaction %s is no longer pending: %w", id, ErrInvalidState)
		}
		s.log(ctx).Error("failed to update transaction status",
			zap.Error(err),
			zap.String("transaction_id", id),
			zap.String("status", string(to)),
		)
		return repository.Transaction{}, fmt.Errorf("failed to update transaction status: %w", err)
	}

	s.log(ctx).Info("transaction status changed",
		zap.String("transaction_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
	)

	// Наблюдателям смена статуса не рассылается, только в Kafka
	s.publishStatusChanged(ctx, current.Status, updated)

	return updated, nil
}

// UploadProof сохраняет изображение подтверждения оплаты, повторная загрузка перезаписывает
func (s *TransactionService) UploadProof(ctx context.Context, id string, data []byte, contentType string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return "", fmt.Errorf("content type %q is not an image: %w", contentType, ErrInvalidInput)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("proof file is empty: %w", ErrInvalidInput)
	}

	if _, err := s.GetTransaction(ctx, id); err != nil {
		return "", err
	}

	putCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.proofs.Put(putCtx, id, data, contentType); err != nil {
		s.log(ctx).Error("failed to store proof",
			zap.Error(err),
			zap.String("transaction_id", id),
		)
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	s.log(ctx).Info("proof uploaded",
		zap.String("transaction_id", id),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)),
	)
	return id, nil
}

// GetProof возвращает подтверждение оплаты транзакции
func (s *TransactionService) GetProof(ctx context.Context, id string) (storage.Proof, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	proof, err := s.proofs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Proof{}, fmt.Errorf("proof for transaction %s: %w", id, ErrNotFound)
		}
		return storage.Proof{}, fmt.Errorf("%w: failed to get proof: %w", ErrUpstream, err)
	}
	if proof.ContentType == "" {
		proof.ContentType = "image/png"
	}
	return proof, nil
}

func (s *TransactionService) lookupTryout(ctx context.Context, tryoutID string) (repository.Tryout, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tryout, err := s.tryouts.GetTryout(ctx, tryoutID)
	if err != nil {
		if errors.Is(err, repository.ErrTryoutNotFound) {
			return repository.Tryout{}, fmt.Errorf("tryout %s: %w", tryoutID, ErrNotFound)
		}
		s.log(ctx).Error("tryout lookup failed",
			zap.Error(err),
			zap.String("tryout_id", tryoutID),
		)
		return repository.Tryout{}, fmt.Errorf("%w: tryout lookup: %w", ErrUpstream, err)
	}
	return tryout, nil
}

func (s *TransactionService) enrich(tx repository.Transaction, tryout repository.Tryout) TransactionDetail {
	return TransactionDetail{
		ID:            tx.ID,
		TryoutID:      tx.TryoutID,
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
		TryoutName:    tryout.Name,
		Bank:          s.payment.Bank,
		AccountNumber: s.payment.AccountNumber,
	}
}

func (s *TransactionService) publishCreated(ctx context.Context, tx repository.Transaction) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.publisher.PublishTransactionCreated(ctx, TransactionCreatedEvent{
		TransactionID: tx.ID,
		TryoutID:      tx.TryoutID,
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		CreatedAt:     tx.CreatedAt,
	})
	if err != nil {
		s.log(ctx).Warn("failed to publish transaction created event",
			zap.Error(err),
			zap.String("transaction_id", tx.ID),
		)
	}
}

func (s *TransactionService) publishStatusChanged(ctx context.Context, from repository.Status, tx repository.Transaction) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.publisher.PublishStatusChanged(ctx, StatusChangedEvent{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		From:          from,
		To:            tx.Status,
		ChangedAt:     tx.UpdatedAt,
	})
	if err != nil {
		s.log(ctx).Warn("failed to publish status changed event",
			zap.Error(err),
			zap.String("transaction_id", tx.ID),
		)
	}
}

// log добавляет trace_id/span_id запроса к логам сервиса
func (s *TransactionService) log(ctx context.Context) *zap.Logger {
	return platformobservability.L(ctx, s.logger)
}
