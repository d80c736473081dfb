package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
	"github.com/shestoi/GoBigTech/services/transaction/internal/service"
	platformobservability "github.com/shestoi/GoBigTech/services/transaction/platform/observability"
)

const (
	// MaxProofSize - максимальный размер загружаемого подтверждения
	MaxProofSize   = 10 << 20
	proofFormField = "file"
)

// Handler содержит HTTP-обработчики Transaction Service
type Handler struct {
	logger *zap.Logger
	svc    *service.TransactionService
}

// NewHandler создаёт новый HTTP handler
func NewHandler(logger *zap.Logger, svc *service.TransactionService) *Handler {
	return &Handler{
		logger: logger,
		svc:    svc,
	}
}

// TransactionResponse - транзакция в HTTP ответе
type TransactionResponse struct {
	ID        string          `json:"id"`
	TryoutID  string          `json:"tryout_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateTransactionRequest - тело POST /transaction/
// amount принимается и числом, и строкой
type CreateTransactionRequest struct {
	TryoutID string          `json:"tryout_id"`
	UserID   string          `json:"user_id"`
	Amount   decimal.Decimal `json:"amount"`
}

func toResponse(tx repository.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		TryoutID:  tx.TryoutID,
		UserID:    tx.UserID,
		Amount:    tx.Amount,
		Status:    string(tx.Status),
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
	}
}

func toResponses(txs []repository.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toResponse(tx))
	}
	return out
}

// Root обрабатывает GET / - проверка, что сервер запущен
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"message": "Server is running"})
}

// GetTransaction обрабатывает GET /transaction/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toResponse(tx))
}

// GetTransactionDetail обрабатывает GET /transaction/detail/{id}
func (h *Handler) GetTransactionDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetTransactionDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, detail)
}

// GetTransactionIntent обрабатывает GET /intent/{tryout_id}
func (h *Handler) GetTransactionIntent(w http.ResponseWriter, r *http.Request) {
	intent, err := h.svc.GetTransactionIntent(r.Context(), chi.URLParam(r, "tryout_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, intent)
}

// ListTransactions обрабатывает GET /transactions/?skip=&limit=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txs, err := h.svc.ListTransactions(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toResponses(txs))
}

// ListByUser обрабатывает GET /transactions/user/{user_id}
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txs, err := h.svc.ListByUser(r.Context(), chi.URLParam(r, "user_id"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toResponses(txs))
}

// ListByTryout обрабатывает GET /transactions/tryout/{tryout_id}
func (h *Handler) ListByTryout(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txs, err := h.svc.ListByTryout(r.Context(), chi.URLParam(r, "tryout_id"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toResponses(txs))
}

// CreateTransaction обрабатывает POST /transaction/
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("invalid JSON: %v: %w", err, service.ErrInvalidInput))
		return
	}

	detail, err := h.svc.CreateTransaction(r.Context(), service.CreateTransactionInput{
		TryoutID: req.TryoutID,
		UserID:   req.UserID,
		Amount:   req.Amount,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, detail)
}

// Approve обрабатывает POST /approve/{id}
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toResponse(tx))
}

// Reject обрабатывает POST /reject/{id}
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toResponse(tx))
}

// GetProof обрабатывает GET /proof/{id} - отдаёт изображение с сохранённым content type
func (h *Handler) GetProof(w http.ResponseWriter, r *http.Request) {
	proof, err := h.svc.GetProof(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", proof.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(proof.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(proof.Data); err != nil {
		h.log(r).Warn("failed to write proof", zap.Error(err))
	}
}

// UploadProof обрабатывает POST /proof/{id} (multipart, поле file)
// В ответе - ID транзакции JSON строкой
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	// Запас на заголовки multipart сверх размера файла
	r.Body = http.MaxBytesReader(w, r.Body, MaxProofSize+1<<20)
	if err := r.ParseMultipartForm(MaxProofSize); err != nil {
		h.writeError(w, r, fmt.Errorf("invalid multipart form: %v: %w", err, service.ErrInvalidInput))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(proofFormField)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("field %q is required: %w", proofFormField, service.ErrInvalidInput))
		return
	}
	defer file.Close()

	if header.Size > MaxProofSize {
		h.writeError(w, r, fmt.Errorf("proof is larger than %d bytes: %w", MaxProofSize, service.ErrInvalidInput))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("failed to read proof: %w", err))
		return
	}

	id, err := h.svc.UploadProof(r.Context(), chi.URLParam(r, "id"), data, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, id)
}

// parsePage читает skip/limit из query. Отсутствующий параметр = значение по умолчанию
func parsePage(r *http.Request) (service.Page, error) {
	var page service.Page
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "skip", query, &page.Skip); err != nil {
		return service.Page{}, fmt.Errorf("skip must be an integer: %w", service.ErrInvalidInput)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &page.Limit); err != nil {
		return service.Page{}, fmt.Errorf("limit must be an integer: %w", service.ErrInvalidInput)
	}
	return page, nil
}

// statusFromError сопоставляет ошибки service слоя HTTP статусам
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrUploadFailed):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError пишет {"detail": "..."}; для 500 детали наружу не отдаём
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		h.log(r).Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		detail = "internal server error"
	} else {
		h.log(r).Debug("request rejected",
			zap.Error(err),
			zap.Int("status", status),
			zap.String("path", r.URL.Path),
		)
	}
	h.writeJSON(w, r, status, map[string]string{"detail": detail})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log(r).Warn("failed to encode response", zap.Error(err))
	}
}

// log возвращает logger запроса с trace_id, если его положил observability middleware
func (h *Handler) log(r *http.Request) *zap.Logger {
	if l := platformobservability.LoggerFromContext(r.Context()); l != nil {
		return l
	}
	return h.logger
}
