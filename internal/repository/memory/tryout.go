package memory

import (
	"context"

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
)

// TryoutCatalog - неизменяемый каталог tryout для тестов service и HTTP слоя
type TryoutCatalog struct {
	tryouts map[string]repository.Tryout
}

// NewTryoutCatalog создаёт каталог с начальным набором tryout
func NewTryoutCatalog(tryouts ...repository.Tryout) *TryoutCatalog {
	c := &TryoutCatalog{
		tryouts: make(map[string]repository.Tryout, len(tryouts)),
	}
	for _, t := range tryouts {
		c.tryouts[t.ID] = t
	}
	return c
}

// GetTryout возвращает tryout по ID или ErrTryoutNotFound
func (c *TryoutCatalog) GetTryout(ctx context.Context, id string) (repository.Tryout, error) {
	t, ok := c.tryouts[id]
	if !ok {
		return repository.Tryout{}, repository.ErrTryoutNotFound
	}
	return t, nil
}
