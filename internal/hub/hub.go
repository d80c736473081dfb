package hub

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Observer - получатель уведомлений (например, websocket соединение)
type Observer interface {
	// Send доставляет уже сериализованное событие
	Send(ctx context.Context, payload []byte) error
	// Close закрывает канал доставки
	Close() error
}

// Subscription - регистрация observer в hub
// Два Connect одного и того же observer дают две независимые подписки
type Subscription struct {
	id       uint64
	observer Observer
}

// ID возвращает идентификатор подписки
func (s *Subscription) ID() uint64 {
	return s.id
}

// Hub хранит набор подписок и рассылает им события
// Ошибка доставки одному observer не мешает остальным, упавший observer удаляется
type Hub struct {
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64

	// dispatchMu сериализует Broadcast: каждый observer видит события в порядке вызовов
	dispatchMu sync.Mutex

	subscriptions metric.Int64UpDownCounter
	dropped       metric.Int64Counter
}

// New создаёт пустой hub
func New(logger *zap.Logger) *Hub {
	meter := otel.Meter("transaction/hub")
	// При ошибке meter возвращает noop инструмент
	subscriptions, _ := meter.Int64UpDownCounter("hub.subscriptions",
		metric.WithDescription("Number of live observer subscriptions"))
	dropped, _ := meter.Int64Counter("hub.observers.dropped",
		metric.WithDescription("Observers removed after a failed delivery"))

	return &Hub{
		logger:        logger,
		subs:          make(map[uint64]*Subscription),
		subscriptions: subscriptions,
		dropped:       dropped,
	}
}

// Connect регистрирует observer и возвращает подписку
func (h *Hub) Connect(observer Observer) *Subscription {
	h.mu.Lock()
	h.nextID++
	sub := &Subscription{id: h.nextID, observer: observer}
	h.subs[sub.id] = sub
	h.mu.Unlock()

	h.subscriptions.Add(context.Background(), 1)
	h.logger.Debug("observer connected", zap.Uint64("subscription_id", sub.id))
	return sub
}

// Disconnect удаляет подписку. Повторный вызов ничего не делает
func (h *Hub) Disconnect(sub *Subscription) {
	if sub == nil {
		return
	}
	if h.remove(sub.id) {
		h.logger.Debug("observer disconnected", zap.Uint64("subscription_id", sub.id))
	}
}

func (h *Hub) remove(id uint64) bool {
	h.mu.Lock()
	_, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()

	if ok {
		h.subscriptions.Add(context.Background(), -1)
	}
	return ok
}

// Len возвращает число живых подписок
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast сериализует событие в JSON один раз и доставляет его всем подпискам по очереди
// Возвращает ошибку только если событие не сериализуется
func (h *Hub) Broadcast(ctx context.Context, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()

	for _, sub := range h.snapshot() {
		if err := sub.observer.Send(ctx, payload); err != nil {
			h.logger.Warn("failed to deliver event, dropping observer",
				zap.Error(err),
				zap.Uint64("subscription_id", sub.id),
			)
			if h.remove(sub.id) {
				h.dropped.Add(ctx, 1)
				_ = sub.observer.Close()
			}
		}
	}
	return nil
}

// snapshot копирует подписки в порядке регистрации
func (h *Hub) snapshot() []*Subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		out = append(out, sub)
	}
	slices.SortFunc(out, func(a, b *Subscription) int {
		return cmp.Compare(a.id, b.id)
	})
	return out
}

// Close закрывает всех observer и очищает набор
func (h *Hub) Close() error {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		h.subscriptions.Add(context.Background(), -1)
		if err := sub.observer.Close(); err != nil {
			h.logger.Debug("failed to close observer",
				zap.Error(err),
				zap.Uint64("subscription_id", sub.id),
			)
		}
	}
	h.logger.Info("hub closed", zap.Int("observers", len(subs)))
	return nil
}
