package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shestoi/GoBigTech/services/transaction/internal/storage"
)

func TestProofStorage(t *testing.T) {
	ctx := context.Background()
	s := NewProofStorage()

	_, err := s.Get(ctx, "tx-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	data := []byte{0x89, 'P', 'N', 'G'}
	require.NoError(t, s.Put(ctx, "tx-1", data, "image/png"))

	// Изменение исходного буфера не влияет на сохранённые данные
	data[0] = 0
	got, err := s.Get(ctx, "tx-1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got.Data)
	require.Equal(t, "image/png", got.ContentType)

	// Повторная загрузка перезаписывает
	require.NoError(t, s.Put(ctx, "tx-1", []byte("jpeg"), "image/jpeg"))
	got, err = s.Get(ctx, "tx-1")
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg"), got.Data)
	require.Equal(t, "image/jpeg", got.ContentType)
}

func TestProofStorage_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewProofStorage()
	require.NoError(t, s.Put(ctx, "tx-1", []byte("png"), "image/png"))

	got, err := s.Get(ctx, "tx-1")
	require.NoError(t, err)
	got.Data[0] = 'X'

	again, err := s.Get(ctx, "tx-1")
	require.NoError(t, err)
	require.Equal(t, []byte("png"), again.Data)
}
