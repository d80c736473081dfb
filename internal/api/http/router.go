package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformhealth "github.com/shestoi/GoBigTech/services/transaction/platform/health/http"
	platformobservability "github.com/shestoi/GoBigTech/services/transaction/platform/observability"
)

// BasePath - префикс всех маршрутов платёжного API
const BasePath = "/api/payment"

// NewRouter создаёт и настраивает HTTP роутер для Transaction Service
// readiness - проверка готовности (ping БД); при false /health отвечает 503
// ws - handler websocket наблюдателей, монтируется на BasePath/ws
func NewRouter(handler *Handler, ws http.Handler, readiness func() bool, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)

	router.Get("/", handler.Root)
	// Health без observability middleware
	router.Get("/health", platformhealth.Handler(readiness))

	router.Route(BasePath, func(r chi.Router) {
		// websocket без tracing middleware: обёртка ResponseWriter не поддерживает Hijack
		if ws != nil {
			r.Get("/ws", ws.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			if logger != nil {
				r.Use(platformobservability.HTTPMiddleware("transaction", logger))
			}
			r.Use(chimiddleware.Timeout(60 * time.Second))

			r.Get("/transaction/{id}", handler.GetTransaction)
			r.Get("/transaction/detail/{id}", handler.GetTransactionDetail)
			r.Get("/intent/{tryout_id}", handler.GetTransactionIntent)
			r.Get("/transactions/", handler.ListTransactions)
			r.Get("/transactions/user/{user_id}", handler.ListByUser)
			r.Get("/transactions/tryout/{tryout_id}", handler.ListByTryout)
			r.Post("/transaction/", handler.CreateTransaction)
			r.Post("/approve/{id}", handler.Approve)
			r.Post("/reject/{id}", handler.Reject)
			r.Get("/proof/{id}", handler.GetProof)
			r.Post("/proof/{id}", handler.UploadProof)
		})
	})

	return router
}
