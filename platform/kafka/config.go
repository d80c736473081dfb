package kafka

// Config содержит конфигурацию подключения сервисов к Kafka
type Config struct {
	// Enabled - при false сервисы не создают writer/reader и публикуют в noop
	Enabled bool `env:"KAFKA_ENABLED" envDefault:"true"`
	// Brokers - список брокеров через запятую:
	//   - локальная разработка (go run): localhost:19092
	//   - запуск в Docker: kafka:9092
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
}

// DefaultBrokers возвращает брокеры по умолчанию для окружения (local/docker)
func DefaultBrokers(appEnv string) []string {
	if appEnv == "docker" {
		return []string{"kafka:9092"}
	}
	return []string{"localhost:19092"}
}

// DefaultConfig возвращает конфигурацию с дефолтами для окружения
func DefaultConfig(appEnv string) Config {
	return Config{
		Enabled: true,
		Brokers: DefaultBrokers(appEnv),
	}
}
