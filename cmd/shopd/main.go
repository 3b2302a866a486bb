package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopd/shopd/internal/cart"
	"github.com/shopd/shopd/internal/catalog"
	"github.com/shopd/shopd/internal/clock"
	shophttp "github.com/shopd/shopd/internal/http"
	"github.com/shopd/shopd/internal/notification"
	"github.com/shopd/shopd/internal/order"
	"github.com/shopd/shopd/internal/outbox"
	"github.com/shopd/shopd/internal/password"
	"github.com/shopd/shopd/internal/payment"
	"github.com/shopd/shopd/internal/postgres"
)

type Config struct {
	HTTPPort           string
	PostgresHost       string
	PostgresPort       int
	PostgresUser       string
	PostgresPassword   string
	PostgresDB         string
	MigrationsDir      string
	MongoURI           string
	MongoDatabase      string
	RedisAddr          string
	KafkaBrokers       []string
	OrderEventsTopic   string
	EmailJobsTopic     string
	Currency           string
	FrontendURL        string
	PaymentTTL         time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:       getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:         getEnv("POSTGRES_DB", "shopd"),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", "migrations"),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "shopd"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrderEventsTopic:   getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		EmailJobsTopic:     getEnv("EMAIL_JOBS_TOPIC", "email-jobs"),
		Currency:           getEnv("CURRENCY", "usd"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		PaymentTTL:         30 * time.Minute,
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(postgres.Credentials{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
	})
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	mongoDB, err := cart.ConnectMongoDB(ctx, cart.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: uint64(getEnvInt("MONGODB_MAX_POOL_SIZE", 100)),
		MinPoolSize: uint64(getEnvInt("MONGODB_MIN_POOL_SIZE", 10)),
	})
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer mongoDB.Client().Disconnect(context.Background())

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	cartRepo := cart.NewMongoRepository(mongoDB)
	if err := cartRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("failed to ensure cart indexes", zap.Error(err))
	}
	userStore := password.NewMongoUserStore(mongoDB)

	catalogRepo := catalog.NewPostgresRepository(db)
	cartSvc := cart.NewService(cartRepo, cart.NewRedisCache(redisClient), catalogRepo, logger)

	gateway := payment.NewBreakerGateway(payment.NewSimulatedGateway(nil))
	orderRepo := order.NewPostgresRepository(db)
	orderSvc := order.NewService(orderRepo, cartSvc, catalogRepo, gateway, clock.System(), logger, cfg.Currency)

	emailWriter := notification.NewEmailJobWriter(cfg.EmailJobsTopic, cfg.KafkaBrokers...)
	defer emailWriter.Close()
	sink := notification.NewKafkaSink(emailWriter)

	passwordSvc := password.NewService(userStore, sink, clock.System(), logger, cfg.FrontendURL)

	eventWriter := outbox.NewKafkaWriter(cfg.OrderEventsTopic, cfg.KafkaBrokers...)
	defer eventWriter.Close()
	poller := outbox.NewPoller(outbox.NewStore(db), eventWriter, logger)
	go poller.Run(ctx)

	worker := notification.NewWorker(sink, logger, cfg.OrderEventsTopic, cfg.KafkaBrokers...)
	defer worker.Close()
	go worker.Run(ctx)

	reaper := order.NewReaper(orderRepo, clock.System(), logger, cfg.PaymentTTL)
	go reaper.Run(ctx)

	router := shophttp.NewRouter(
		shophttp.RouterConfig{
			RequestTimeout:     cfg.RequestTimeout,
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		shophttp.NewCartHandler(cartSvc, logger),
		shophttp.NewOrderHandler(orderSvc, logger),
		shophttp.NewProductHandler(catalogRepo, logger),
		shophttp.NewPasswordHandler(passwordSvc, logger),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
