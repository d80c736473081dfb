package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	httpapi "github.com/shestoi/GoBigTech/services/transaction/internal/api/http"
	wsapi "github.com/shestoi/GoBigTech/services/transaction/internal/api/ws"
	httpclient "github.com/shestoi/GoBigTech/services/transaction/internal/client/http"
	"github.com/shestoi/GoBigTech/services/transaction/internal/config"
	kafkaevent "github.com/shestoi/GoBigTech/services/transaction/internal/event/kafka"
	"github.com/shestoi/GoBigTech/services/transaction/internal/hub"
	"github.com/shestoi/GoBigTech/services/transaction/internal/repository"
	"github.com/shestoi/GoBigTech/services/transaction/internal/repository/postgres"
	redisrepo "github.com/shestoi/GoBigTech/services/transaction/internal/repository/redis"
	"github.com/shestoi/GoBigTech/services/transaction/internal/service"
	"github.com/shestoi/GoBigTech/services/transaction/internal/storage/gridfs"
	"github.com/shestoi/GoBigTech/services/transaction/migrations"
	platformhealth "github.com/shestoi/GoBigTech/services/transaction/platform/health/grpc"
	platformlogging "github.com/shestoi/GoBigTech/services/transaction/platform/logging"
	platformobservability "github.com/shestoi/GoBigTech/services/transaction/platform/observability"
	platformshutdown "github.com/shestoi/GoBigTech/services/transaction/platform/shutdown"
)

const readinessInterval = 5 * time.Second

// App содержит все зависимости для запуска и корректного shutdown Transaction Service
type App struct {
	logger       *zap.Logger
	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener
	health       *platformhealth.Health
	readiness    func() bool
	shutdownMgr  *platformshutdown.Manager
	watchCtx     context.Context
	wg           sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Transaction Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: config.ServiceName,
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}
	cfg.Log(logger)

	logger = logger.With(zap.String("op", op))
	logger.Info("Building Transaction service", zap.String("http_addr", cfg.HTTPAddr))

	// cleanup закрывает уже поднятые ресурсы, если сборка упала на полпути
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// OpenTelemetry
	otelShutdown, err := platformobservability.Init(context.Background(), platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTLPEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           config.ServiceName,
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	closers = append(closers, func() { _ = otelShutdown(context.Background()) })

	// PostgreSQL
	logger.Info("Connecting to PostgreSQL")
	pool, err := connectPostgres(cfg)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%s: postgres: %w", op, err)
	}
	closers = append(closers, pool.Close)
	logger.Info("PostgreSQL connection established")

	logger.Info("Applying database migrations")
	if err := applyMigrations(cfg.PostgresDSN); err != nil {
		cleanup()
		return nil, fmt.Errorf("%s: migrations: %w", op, err)
	}
	logger.Info("Database migrations applied successfully")

	// MongoDB (GridFS для подтверждений оплаты)
	logger.Info("Connecting to MongoDB")
	mongoClient, err := connectMongo(cfg)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%s: mongo: %w", op, err)
	}
	closers = append(closers, func() { _ = mongoClient.Disconnect(context.Background()) })
	logger.Info("MongoDB connection established")

	// Tryout lookup: DB service, опционально через Redis кеш
	var tryouts repository.TryoutRepository = httpclient.NewTryoutClient(logger, cfg.DBServiceURL, cfg.DownstreamTimeout)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		logger.Info("Connecting to Redis", zap.String("addr", cfg.RedisAddr))
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		ctxRedis, cancelRedis := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctxRedis).Err()
		cancelRedis()
		if err != nil {
			_ = redisClient.Close()
			cleanup()
			return nil, fmt.Errorf("%s: redis: %w", op, err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		tryouts = redisrepo.NewTryoutCache(redisClient, tryouts, cfg.TryoutCacheTTL, logger)
		logger.Info("Redis connection established, tryout cache enabled")
	}

	// Kafka
	var publisher service.EventPublisher = kafkaevent.NoopPublisher{}
	var kafkaPublisher *kafkaevent.TransactionEventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher = kafkaevent.NewTransactionEventPublisher(logger, cfg.Kafka.Brokers, cfg.CreatedTopic, cfg.StatusTopic)
		publisher = kafkaPublisher
		logger.Info("Kafka publisher configured", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		logger.Info("Kafka disabled, events are not published")
	}

	transactionHub := hub.New(logger)

	transactionService := service.NewTransactionService(
		logger,
		postgres.NewRepository(pool),
		tryouts,
		gridfs.NewProofStorage(mongoClient, cfg.MongoDB, cfg.ProofBucket, logger),
		transactionHub,
		publisher,
		service.PaymentInstructions{
			Bank:          cfg.PaymentBank,
			AccountNumber: cfg.PaymentAccountNumber,
		},
		cfg.DownstreamTimeout,
	)

	// readiness для /health и gRPC health
	readiness := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx) == nil
	}

	handler := httpapi.NewHandler(logger, transactionService)
	wsHandler := wsapi.NewHandler(logger, transactionHub, cfg.DownstreamTimeout)
	router := httpapi.NewRouter(handler, wsHandler, readiness, logger)

	// WriteTimeout не задаём: websocket соединения долгоживущие
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	health := platformhealth.New(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	var grpcServer *grpc.Server
	var grpcListener net.Listener
	if cfg.GRPCAddr != "" {
		grpcListener, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("%s: grpc listen: %w", op, err)
		}
		grpcServer = grpc.NewServer(
			grpc.UnaryInterceptor(platformobservability.GRPCUnaryServerInterceptor(config.ServiceName)),
		)
		health.Register(grpcServer)
		logger.Info("gRPC health server configured", zap.String("addr", cfg.GRPCAddr))
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)

	// Регистрируем shutdown функции в обратном порядке выполнения
	shutdownMgr.Add("otel", otelShutdown)
	shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
	shutdownMgr.Add("mongodb", platformshutdown.DisconnectMongo(mongoClient))
	if redisClient != nil {
		shutdownMgr.Add("redis_client", platformshutdown.CloseFunc(redisClient))
	}
	if kafkaPublisher != nil {
		shutdownMgr.Add("kafka_publisher", platformshutdown.CloseFunc(kafkaPublisher))
	}
	shutdownMgr.Add("hub", platformshutdown.CloseFunc(transactionHub))
	if grpcServer != nil {
		shutdownMgr.Add("grpc_server", platformshutdown.ShutdownGRPCServer(grpcServer))
	}
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))
	shutdownMgr.Add("health_readiness", platformshutdown.SetHealthNotServing(health))

	// Watch останавливается первым, иначе он вернёт SERVING после health_readiness
	watchCtx, stopWatch := context.WithCancel(context.Background())
	shutdownMgr.Add("readiness_watch", func(context.Context) error {
		stopWatch()
		return nil
	})

	return &App{
		logger:       logger,
		httpServer:   httpServer,
		grpcServer:   grpcServer,
		grpcListener: grpcListener,
		health:       health,
		readiness:    readiness,
		shutdownMgr:  shutdownMgr,
		watchCtx:     watchCtx,
	}, nil
}

func connectPostgres(cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// applyMigrations применяет встроенные в бинарник миграции
func applyMigrations(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	return goose.Up(db, ".")
}

func connectMongo(cfg config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.health.Watch(a.watchCtx, readinessInterval, a.readiness)
	}()

	a.logger.Info("Starting Transaction service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	if a.grpcServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.grpcServer.Serve(a.grpcListener); err != nil {
				a.logger.Error("gRPC server error", zap.Error(err))
			}
		}()
	}

	// Ожидаем сигнал и выполняем shutdown
	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("Transaction service stopped")
	return nil
}
