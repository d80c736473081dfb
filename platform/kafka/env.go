package kafka

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// LoadEnv дополняет cfg значениями из переменных окружения
// Пустой KAFKA_BROKERS оставляет брокеры из cfg
func LoadEnv(cfg *Config) error {
	defaults := cfg.Brokers
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse kafka env: %w", err)
	}
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = defaults
	}
	return nil
}

// Validate проверяет, что у включённой Kafka есть брокеры
func (c Config) Validate() error {
	if c.Enabled && len(c.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	return nil
}
