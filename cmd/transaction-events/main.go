// Package main содержит CLI, который печатает события транзакций из Kafka.
//
// Читает топики TRANSACTION_CREATED_TOPIC и TRANSACTION_STATUS_TOPIC
// в consumer group TAIL_GROUP_ID до Ctrl+C. Брокеры берутся из
// KAFKA_BROKERS (по умолчанию localhost:19092, для APP_ENV=docker kafka:9092).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"

	kafkaevent "github.com/shestoi/GoBigTech/services/transaction/internal/event/kafka"
	platformkafka "github.com/shestoi/GoBigTech/services/transaction/platform/kafka"
	platformlogging "github.com/shestoi/GoBigTech/services/transaction/platform/logging"
)

type tailConfig struct {
	AppEnv       string `env:"APP_ENV" envDefault:"local"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	GroupID      string `env:"TAIL_GROUP_ID" envDefault:"transaction-events-tail"`
	CreatedTopic string `env:"TRANSACTION_CREATED_TOPIC" envDefault:"transaction.created"`
	StatusTopic  string `env:"TRANSACTION_STATUS_TOPIC" envDefault:"transaction.status_changed"`
}

func main() {
	var cfg tailConfig
	if err := env.Parse(&cfg); err != nil {
		os.Stderr.WriteString("Failed to parse env: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "transaction-events",
		Env:         cfg.AppEnv,
		Level:       cfg.LogLevel,
		Format:      "console",
		AddCaller:   true,
	})
	if err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer platformlogging.Sync(logger)

	kafkaCfg := platformkafka.DefaultConfig(cfg.AppEnv)
	if err := platformkafka.LoadEnv(&kafkaCfg); err != nil {
		logger.Error("failed to load kafka config", zap.Error(err))
		os.Exit(1)
	}
	if err := kafkaCfg.Validate(); err != nil {
		logger.Error("invalid kafka config", zap.Error(err))
		os.Exit(1)
	}

	topics := []string{cfg.CreatedTopic, cfg.StatusTopic}
	logger.Info("kafka config loaded",
		zap.Strings("brokers", kafkaCfg.Brokers),
		zap.Strings("topics", topics),
		zap.String("group_id", cfg.GroupID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tail := kafkaevent.NewEventTail(logger, kafkaCfg.Brokers, cfg.GroupID, topics, func(_ context.Context, e kafkaevent.Event) error {
		fields := []zap.Field{
			zap.String("event_id", e.EventID),
			zap.String("transaction_id", e.TransactionID),
			zap.String("user_id", e.UserID),
			zap.Time("occurred_at", e.OccurredAt),
		}
		if e.EventType == kafkaevent.EventTypeTransactionCreated {
			fields = append(fields, zap.String("tryout_id", e.TryoutID), zap.String("amount", e.Amount.String()))
		} else {
			fields = append(fields, zap.String("from", e.FromStatus), zap.String("to", e.ToStatus))
		}
		logger.Info(e.EventType, fields...)
		return nil
	})
	defer func() {
		if err := tail.Close(); err != nil {
			logger.Error("failed to close kafka reader", zap.Error(err))
		}
	}()

	if err := tail.Start(ctx); err != nil {
		logger.Error("event tail stopped with error", zap.Error(err))
		os.Exit(1)
	}
}
