package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
)

const (
	hashFieldName  = "name"  // hashFieldName - название tryout
	hashFieldPrice = "price" // hashFieldPrice - цена tryout строкой decimal
)

// TryoutCache реализует TryoutRepository как read-through кеш поверх другого источника
// Ошибки Redis не ломают запрос: при недоступном кеше идём напрямую в источник
type TryoutCache struct {
	client *redis.Client
	next   repository.TryoutRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewTryoutCache создаёт кеш tryout в Redis hash с указанным TTL
func NewTryoutCache(client *redis.Client, next repository.TryoutRepository, ttl time.Duration, logger *zap.Logger) *TryoutCache {
	return &TryoutCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

func tryoutKey(id string) string {
	return fmt.Sprintf("tryout:%s", id)
}

// GetTryout читает tryout из Redis, при промахе - из источника, и кладёт результат в кеш
func (c *TryoutCache) GetTryout(ctx context.Context, id string) (repository.Tryout, error) {
	key := tryoutKey(id)

	fields, err := c.client.HGetAll(ctx, key).Result()
	switch {
	case err != nil:
		c.logger.Warn("failed to read tryout from redis, falling back to source",
			zap.Error(err),
			zap.String("tryout_id", id),
		)
	case len(fields) > 0:
		tryout, parseErr := fromHash(id, fields)
		if parseErr == nil {
			return tryout, nil
		}
		// Битая запись: удаляем и идём в источник
		c.logger.Warn("invalid tryout hash in redis",
			zap.Error(parseErr),
			zap.String("tryout_id", id),
		)
		_ = c.client.Del(ctx, key).Err()
	}

	tryout, err := c.next.GetTryout(ctx, id)
	if err != nil {
		return repository.Tryout{}, err
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, hashFieldName, tryout.Name, hashFieldPrice, tryout.Price.String())
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("failed to cache tryout in redis",
			zap.Error(err),
			zap.String("tryout_id", id),
		)
	}

	return tryout, nil
}

func fromHash(id string, fields map[string]string) (repository.Tryout, error) {
	name, ok := fields[hashFieldName]
	if !ok {
		return repository.Tryout{}, errors.New("name field is missing")
	}
	price, err := decimal.NewFromString(fields[hashFieldPrice])
	if err != nil {
		return repository.Tryout{}, fmt.Errorf("price field: %w", err)
	}
	return repository.Tryout{ID: id, Name: name, Price: price}, nil
}
