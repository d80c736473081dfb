package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
)

// TryoutClient читает метаданные tryout из DB service по HTTP
// Реализует repository.TryoutRepository
type TryoutClient struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

// NewTryoutClient создаёт клиента DB service
func NewTryoutClient(logger *zap.Logger, baseURL string, timeout time.Duration) *TryoutClient {
	return &TryoutClient{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// tryoutResponse - ответ DB service на GET /tryout/{id}
type tryoutResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// GetTryout выполняет GET {baseURL}/tryout/{id}
// 404 превращается в repository.ErrTryoutNotFound, остальные не-200 - в ошибку со статусом
func (c *TryoutClient) GetTryout(ctx context.Context, id string) (repository.Tryout, error) {
	endpoint := fmt.Sprintf("%s/tryout/%s", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return repository.Tryout{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return repository.Tryout{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return repository.Tryout{}, repository.ErrTryoutNotFound
	}

	// При не-200 читаем тело ответа для диагностики и не декодируем JSON
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return repository.Tryout{}, fmt.Errorf("db service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload tryoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return repository.Tryout{}, fmt.Errorf("failed to decode response: %w", err)
	}

	// DB service иногда отвечает 200 с пустым объектом вместо 404
	if payload.ID == "" && payload.Name == "" {
		return repository.Tryout{}, repository.ErrTryoutNotFound
	}
	if payload.ID == "" {
		payload.ID = id
	}

	c.logger.Debug("tryout fetched from db service",
		zap.String("tryout_id", id),
	)

	return repository.Tryout{
		ID:    payload.ID,
		Name:  payload.Name,
		Price: payload.Price,
	}, nil
}
