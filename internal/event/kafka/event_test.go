package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
	"github.com/shestoi/GoBigTech/services/transaction/internal/service"
)

func TestDecodeEvent_FromPublisher(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w := &recordingWriter{}
	p := newPublisher(zap.NewNop(), w, "created", "status")

	require.NoError(t, p.PublishTransactionCreated(ctx, service.TransactionCreatedEvent{
		TransactionID: "tx-1",
		TryoutID:      "tryout-1",
		UserID:        "user-1",
		Amount:        decimal.RequireFromString("150000.00"),
		CreatedAt:     at,
	}))
	require.NoError(t, p.PublishStatusChanged(ctx, service.StatusChangedEvent{
		TransactionID: "tx-1",
		UserID:        "user-1",
		From:          repository.StatusPending,
		To:            repository.StatusApproved,
		ChangedAt:     at,
	}))
	require.Len(t, w.messages, 2)

	created, err := DecodeEvent(w.messages[0].Value)
	require.NoError(t, err)
	require.Equal(t, EventTypeTransactionCreated, created.EventType)
	require.Equal(t, "tx-1", created.TransactionID)
	require.Equal(t, "tryout-1", created.TryoutID)
	require.True(t, decimal.RequireFromString("150000").Equal(created.Amount))
	require.True(t, at.Equal(created.OccurredAt))
	require.Equal(t, 1, created.EventVersion)
	require.NotEmpty(t, created.EventID)

	changed, err := DecodeEvent(w.messages[1].Value)
	require.NoError(t, err)
	require.Equal(t, EventTypeStatusChanged, changed.EventType)
	require.Equal(t, "pending", changed.FromStatus)
	require.Equal(t, "approved", changed.ToStatus)
}

func TestDecodeEvent_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		field string
	}{
		{name: "not json", value: `{`, field: ""},
		{name: "missing event_type", value: `{"transaction_id":"tx-1"}`, field: "event_type"},
		{name: "missing transaction_id", value: `{"event_type":"transaction.created","amount":"1"}`, field: "transaction_id"},
		{name: "missing amount", value: `{"event_type":"transaction.created","transaction_id":"tx-1"}`, field: "amount"},
		{name: "bad amount", value: `{"event_type":"transaction.created","transaction_id":"tx-1","amount":"abc"}`, field: "amount"},
		{name: "missing statuses", value: `{"event_type":"transaction.status_changed","transaction_id":"tx-1"}`, field: "to_status"},
		{name: "unknown type", value: `{"event_type":"order.paid","transaction_id":"tx-1"}`, field: "event_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.value))
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			require.Equal(t, tt.field, parseErr.Field)
		})
	}
}

// scriptedReader отдаёт заранее заданные сообщения, затем ждёт отмены ctx
type scriptedReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func (r *scriptedReader) offsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestEventTail_Start(t *testing.T) {
	reader := &scriptedReader{messages: []kafka.Message{
		{Offset: 1, Value: []byte(`{"event_type":"transaction.created","transaction_id":"tx-1","amount":"10"}`)},
		{Offset: 2, Value: []byte(`garbage`)},
		{Offset: 3, Value: []byte(`{"event_type":"transaction.status_changed","transaction_id":"tx-2","from_status":"pending","to_status":"rejected"}`)},
		{Offset: 4, Value: []byte(`{"event_type":"transaction.status_changed","transaction_id":"tx-fail","from_status":"pending","to_status":"approved"}`)},
	}}

	var mu sync.Mutex
	var handled []string
	tail := newEventTail(zap.NewNop(), reader, func(_ context.Context, e Event) error {
		if e.TransactionID == "tx-fail" {
			return errors.New("sink unavailable")
		}
		mu.Lock()
		handled = append(handled, e.TransactionID)
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tail.Start(ctx) }()

	// Битое сообщение коммитится, упавший handle нет
	require.Eventually(t, func() bool {
		return len(reader.offsets()) == 3
	}, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, []int64{1, 2, 3}, reader.offsets())
	mu.Lock()
	require.Equal(t, []string{"tx-1", "tx-2"}, handled)
	mu.Unlock()

	require.NoError(t, tail.Close())
	require.True(t, reader.closed)
}
