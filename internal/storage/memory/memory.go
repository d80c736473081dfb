package memory

import (
	"context"
	"sync"

	"github.com/shestoi/GoBigTech/services/transaction/internal/storage"
)

// ProofStorage хранит подтверждения оплаты в памяти, ключ = transaction ID
type ProofStorage struct {
	mu     sync.RWMutex
	proofs map[string]storage.Proof
}

// NewProofStorage создаёт пустое in-memory хранилище
func NewProofStorage() *ProofStorage {
	return &ProofStorage{
		proofs: make(map[string]storage.Proof),
	}
}

// Put сохраняет копию данных, перезаписывая предыдущее подтверждение
func (s *ProofStorage) Put(ctx context.Context, transactionID string, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.proofs[transactionID] = storage.Proof{Data: buf, ContentType: contentType}
	return nil
}

// Get возвращает копию подтверждения или storage.ErrNotFound
func (s *ProofStorage) Get(ctx context.Context, transactionID string) (storage.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proof, ok := s.proofs[transactionID]
	if !ok {
		return storage.Proof{}, storage.ErrNotFound
	}
	data := make([]byte, len(proof.Data))
	copy(data, proof.Data)
	return storage.Proof{Data: data, ContentType: proof.ContentType}, nil
}
