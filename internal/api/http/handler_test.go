package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/transaction/internal/event/kafka"
	"github.com/shestoi/GoBigTech/services/transaction/internal/hub"
	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
	"github.com/shestoi/GoBigTech/services/transaction/internal/repository/memory"
	"github.com/shestoi/GoBigTech/services/transaction/internal/service"
	storageMemory "github.com/shestoi/GoBigTech/services/transaction/internal/storage/memory"
)

type testServer struct {
	router http.Handler
	hub    *hub.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	h := hub.New(logger)
	catalog := memory.NewTryoutCatalog(repository.Tryout{
		ID:    "tryout-1",
		Name:  "Tryout Saintek",
		Price: decimal.RequireFromString("50000"),
	})
	svc := service.NewTransactionService(
		logger,
		memory.NewMemoryRepository(),
		catalog,
		storageMemory.NewProofStorage(),
		h,
		kafka.NoopPublisher{},
		service.PaymentInstructions{Bank: "BCA", AccountNumber: "1234567890"},
		time.Second,
	)
	return &testServer{
		router: NewRouter(NewHandler(logger, svc), nil, func() bool { return true }, logger),
		hub:    h,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(t *testing.T, userID string) map[string]interface{} {
	t.Helper()
	body := `{"tryout_id":"tryout-1","user_id":"` + userID + `","amount":50000}`
	rec := s.do(t, http.MethodPost, BasePath+"/transaction/", []byte(body), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["detail"]
}

func multipartBody(t *testing.T, contentType string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="proof"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestRouter_RootAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Server is running"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_CreateAndGet(t *testing.T) {
	s := newTestServer(t)

	created := s.create(t, "user-1")
	require.Equal(t, "pending", created["status"])
	require.Equal(t, "Tryout Saintek", created["tryout_name"])
	require.Equal(t, "BCA", created["bank"])
	require.Equal(t, "1234567890", created["account_number"])
	require.Equal(t, "50000", created["amount"])
	id := created["id"].(string)

	rec := s.do(t, http.MethodGet, BasePath+"/transaction/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tx TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	require.Equal(t, id, tx.ID)
	require.Equal(t, "user-1", tx.UserID)

	rec = s.do(t, http.MethodGet, BasePath+"/transaction/detail/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"tryout_name":"Tryout Saintek"`)
}

func TestHandler_CreateValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{name: "malformed json", body: `{"tryout_id":`, expectedStatus: http.StatusBadRequest},
		{name: "zero amount", body: `{"tryout_id":"tryout-1","user_id":"u","amount":0}`, expectedStatus: http.StatusBadRequest},
		{name: "sub-cent amount", body: `{"tryout_id":"tryout-1","user_id":"u","amount":0.001}`, expectedStatus: http.StatusBadRequest},
		{name: "too many decimals", body: `{"tryout_id":"tryout-1","user_id":"u","amount":"50000.005"}`, expectedStatus: http.StatusBadRequest},
		{name: "amount too large", body: `{"tryout_id":"tryout-1","user_id":"u","amount":123456789012.5}`, expectedStatus: http.StatusBadRequest},
		{name: "missing user", body: `{"tryout_id":"tryout-1","amount":"100"}`, expectedStatus: http.StatusBadRequest},
		{name: "unknown tryout", body: `{"tryout_id":"nope","user_id":"u","amount":100}`, expectedStatus: http.StatusNotFound},
		{name: "amount as string", body: `{"tryout_id":"tryout-1","user_id":"u","amount":"75000.50"}`, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, BasePath+"/transaction/", []byte(tt.body), "application/json")
			require.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedStatus != http.StatusOK {
				require.NotEmpty(t, detailOf(t, rec))
			}
		})
	}
}

func TestHandler_CreateBroadcastsToObservers(t *testing.T) {
	s := newTestServer(t)
	obs := &captureObserver{}
	s.hub.Connect(obs)

	created := s.create(t, "user-1")

	require.Len(t, obs.payloads, 1)
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(obs.payloads[0], &event))
	require.Equal(t, created["id"], event["id"])
	require.Equal(t, "Tryout Saintek", event["tryout_name"])
}

func TestHandler_NotFound(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/transaction/missing",
		"/transaction/detail/missing",
		"/intent/missing",
		"/proof/missing",
	} {
		rec := s.do(t, http.MethodGet, BasePath+path, nil, "")
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		require.NotEmpty(t, detailOf(t, rec))
	}

	rec := s.do(t, http.MethodPost, BasePath+"/approve/missing", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Intent(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, BasePath+"/intent/tryout-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{
		"tryout_id":"tryout-1",
		"tryout_name":"Tryout Saintek",
		"amount":"50000",
		"bank":"BCA",
		"account_number":"1234567890"
	}`, rec.Body.String())
}

func TestHandler_List(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 5; i++ {
		user := "user-a"
		if i >= 3 {
			user = "user-b"
		}
		s.create(t, user)
	}

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedLen    int
	}{
		{name: "all", path: "/transactions/", expectedStatus: http.StatusOK, expectedLen: 5},
		{name: "first page", path: "/transactions/?skip=0&limit=2", expectedStatus: http.StatusOK, expectedLen: 2},
		{name: "last page", path: "/transactions/?skip=4&limit=2", expectedStatus: http.StatusOK, expectedLen: 1},
		{name: "by user", path: "/transactions/user/user-b", expectedStatus: http.StatusOK, expectedLen: 2},
		{name: "by tryout", path: "/transactions/tryout/tryout-1?limit=3", expectedStatus: http.StatusOK, expectedLen: 3},
		{name: "unknown user", path: "/transactions/user/nobody", expectedStatus: http.StatusOK, expectedLen: 0},
		{name: "negative skip", path: "/transactions/?skip=-1", expectedStatus: http.StatusBadRequest},
		{name: "non-integer limit", path: "/transactions/?limit=ten", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, BasePath+tt.path, nil, "")
			require.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var txs []TransactionResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
			require.Len(t, txs, tt.expectedLen)
		})
	}
}

func TestHandler_ApproveReject(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, "user-1")["id"].(string)

	rec := s.do(t, http.MethodPost, BasePath+"/approve/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tx TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	require.Equal(t, "approved", tx.Status)

	rec = s.do(t, http.MethodPost, BasePath+"/reject/"+id, nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, detailOf(t, rec), "approved")
}

func TestHandler_Proof(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, "user-1")["id"].(string)
	png := []byte("\x89PNG\r\n\x1a\n")

	t.Run("non-image is rejected", func(t *testing.T) {
		body, ct := multipartBody(t, "application/pdf", []byte("%PDF-1.4"))
		rec := s.do(t, http.MethodPost, BasePath+"/proof/"+id, body, ct)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, BasePath+"/proof/"+id, []byte("x"), "text/plain")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		body, ct := multipartBody(t, "image/png", png)
		rec := s.do(t, http.MethodPost, BasePath+"/proof/missing", body, ct)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		body, ct := multipartBody(t, "image/png", bytes.Repeat([]byte{1}, MaxProofSize+1))
		rec := s.do(t, http.MethodPost, BasePath+"/proof/"+id, body, ct)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upload and download round trip", func(t *testing.T) {
		body, ct := multipartBody(t, "image/png", png)
		rec := s.do(t, http.MethodPost, BasePath+"/proof/"+id, body, ct)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, `"`+id+`"`, strings.TrimSpace(rec.Body.String()))

		rec = s.do(t, http.MethodGet, BasePath+"/proof/"+id, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		require.Equal(t, png, rec.Body.Bytes())
	})
}

type captureObserver struct {
	payloads [][]byte
}

func (o *captureObserver) Send(_ context.Context, payload []byte) error {
	o.payloads = append(o.payloads, payload)
	return nil
}

func (o *captureObserver) Close() error { return nil }
