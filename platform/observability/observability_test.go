package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false, ServiceName: "transaction"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestHTTPMiddleware(t *testing.T) {
	recorder := withRecorder(t)
	core, logs := observer.New(zap.InfoLevel)

	handler := HTTPMiddleware("transaction", zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := LoggerFromContext(r.Context())
		require.NotNil(t, l)
		l.Info("inside handler")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payment/transactions/", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "HTTP GET /api/payment/transactions/", spans[0].Name())
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusServiceUnavailable))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, spans[0].SpanContext().TraceID().String(), fields["trace_id"])
}

func TestHTTPMiddleware_ClientErrorIsNotSpanError(t *testing.T) {
	recorder := withRecorder(t)

	handler := HTTPMiddleware("transaction", zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.NotEqual(t, codes.Error, spans[0].Status().Code)
	require.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusNotFound))
}

func TestL_WithoutSpan(t *testing.T) {
	base := zap.NewNop()
	require.Same(t, base, L(context.Background(), base))
	require.Nil(t, LoggerFromContext(context.Background()))
}

func TestGRPCUnaryServerInterceptor(t *testing.T) {
	recorder := withRecorder(t)
	interceptor := GRPCUnaryServerInterceptor("transaction")
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.MD{})

	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(grpccodes.Unavailable, "not ready")
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Contains(t, spans[0].Attributes(), attribute.String("rpc.service", "grpc.health.v1.Health"))
	require.Contains(t, spans[0].Attributes(), attribute.String("rpc.method", "Check"))
	require.Contains(t, spans[0].Attributes(), attribute.Int("rpc.grpc.status_code", int(grpccodes.Unavailable)))
}

func TestSplitFullMethod(t *testing.T) {
	tests := []struct {
		in, service, method string
	}{
		{"/grpc.health.v1.Health/Check", "grpc.health.v1.Health", "Check"},
		{"noslash", "noslash", "noslash"},
		{"", "", ""},
	}
	for _, tt := range tests {
		service, method := splitFullMethod(tt.in)
		require.Equal(t, tt.service, service, tt.in)
		require.Equal(t, tt.method, method, tt.in)
	}
}
