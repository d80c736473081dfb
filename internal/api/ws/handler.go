package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/transaction/internal/hub"
)

const (
	defaultWriteTimeout = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = (pongWait * 9) / 10
	maxMessageSize      = 512
)

// Observer отправляет события hub в websocket соединение
// Запись сериализована мьютексом: gorilla/websocket не допускает конкурентных writer
type Observer struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
}

// NewObserver оборачивает websocket соединение
func NewObserver(conn *websocket.Conn, writeTimeout time.Duration) *Observer {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Observer{conn: conn, writeTimeout: writeTimeout}
}

// Send пишет событие текстовым сообщением
func (o *Observer) Send(ctx context.Context, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.conn.SetWriteDeadline(o.deadline(ctx)); err != nil {
		return err
	}
	return o.conn.WriteMessage(websocket.TextMessage, payload)
}

func (o *Observer) ping() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(o.writeTimeout))
}

// Close отправляет close frame и закрывает соединение. Повторный вызов ничего не делает
func (o *Observer) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.mu.Lock()
		_ = o.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(o.writeTimeout))
		o.mu.Unlock()
		err = o.conn.Close()
	})
	return err
}

func (o *Observer) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(o.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// Handler принимает websocket подключения и регистрирует их в hub
// Клиент только слушает: входящие сообщения читаются и отбрасываются
type Handler struct {
	logger       *zap.Logger
	hub          *hub.Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

// NewHandler создаёт websocket handler
func NewHandler(logger *zap.Logger, h *hub.Hub, writeTimeout time.Duration) *Handler {
	return &Handler{
		logger: logger,
		hub:    h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Аутентификации нет, подключаться может любой origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
	}
}

// ServeHTTP апгрейдит соединение и держит его до отключения клиента
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	observer := NewObserver(conn, h.writeTimeout)
	sub := h.hub.Connect(observer)
	h.logger.Info("websocket observer connected",
		zap.Uint64("subscription_id", sub.ID()),
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int("observers", h.hub.Len()),
	)

	done := make(chan struct{})
	defer func() {
		close(done)
		h.hub.Disconnect(sub)
		_ = observer.Close()
		h.logger.Info("websocket observer disconnected",
			zap.Uint64("subscription_id", sub.ID()),
			zap.Int("observers", h.hub.Len()),
		)
	}()

	go h.keepAlive(observer, done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) keepAlive(observer *Observer, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := observer.ping(); err != nil {
				return
			}
		}
	}
}
