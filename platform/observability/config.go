package observability

// Config конфигурация OpenTelemetry
type Config struct {
	// Enabled включает экспорт трейсов и метрик в OTLP collector
	Enabled bool
	// OTLPEndpoint адрес OTLP gRPC, например "127.0.0.1:4317" или "otel-collector:4317"
	OTLPEndpoint string
	// SamplingRatio доля семплируемых трасс (0..1)
	SamplingRatio float64
	ServiceName   string
	// DeploymentEnvironment local или docker
	DeploymentEnvironment string
	ServiceVersion        string
}
