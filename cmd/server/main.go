/**
 * @description
 * This is the main entry point for the banking assistant service. It is
 * responsible for initializing all components: configuration, database
 * connection, Redis, the RabbitMQ producer, the account store, the transfer
 * engine, the operation registry and the mediator. It wires everything
 * together and starts the HTTP server with graceful shutdown.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Redis client for rate limiting.
 * - internal/api, internal/config, internal/mediator, internal/store: Internal packages.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/imSurme/interchat-banking-assistant/internal/api"
	"github.com/imSurme/interchat-banking-assistant/internal/config"
	"github.com/imSurme/interchat-banking-assistant/internal/limits"
	"github.com/imSurme/interchat-banking-assistant/internal/mediator"
	"github.com/imSurme/interchat-banking-assistant/internal/registry"
	"github.com/imSurme/interchat-banking-assistant/internal/respond"
	"github.com/imSurme/interchat-banking-assistant/internal/sanitize"
	"github.com/imSurme/interchat-banking-assistant/internal/store"
	"github.com/imSurme/interchat-banking-assistant/internal/tools"
	"github.com/imSurme/interchat-banking-assistant/internal/transfer"
	"github.com/imSurme/interchat-banking-assistant/pkg/rabbitmq"
)

func main() {
	// Load a local .env into the process environment before viper runs.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting assistant service\" port=%s", cfg.ServerPort)

	perTxn, err := decimal.NewFromString(cfg.PaymentPerTxnLimit)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"invalid per-txn limit\" value=%s err=%v", cfg.PaymentPerTxnLimit, err)
	}
	daily, err := decimal.NewFromString(cfg.PaymentDailyLimit)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"invalid daily limit\" value=%s err=%v", cfg.PaymentDailyLimit, err)
	}
	policy := limits.Policy{PerTxn: perTxn, Daily: daily}

	// Establish the account store: PostgreSQL when configured, otherwise an
	// in-memory store for local development.
	var repository store.Repository
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"database url missing; using in-memory store\" env=DATABASE_URL")
		repository = store.NewMemoryRepository()
	} else {
		poolConfig, parseErr := pgxpool.ParseConfig(cfg.DatabaseURL)
		if parseErr != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", parseErr)
		}
		poolConfig.MaxConns = 50
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute
		// Disable prepared statement caching to prevent conflicts
		poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, poolErr := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if poolErr != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", poolErr)
		}
		defer dbpool.Close()
		log.Println("level=info component=bootstrap msg=\"database connected\"")
		repository = store.NewPostgresRepository(dbpool)
	}

	// Initialize the RabbitMQ producer to publish payment events.
	var producer rabbitmq.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; payment events disabled\" env=RABBITMQ_URL")
		producer = &rabbitmq.EventProducerFallback{}
	} else if p, prodErr := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.PaymentEventExchange); prodErr != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", prodErr)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer p.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		producer = p
	}

	// Redis backs the per-customer invocation rate limit; a missing Redis
	// disables the limit rather than the service.
	var limiter mediator.RateLimiter
	if cfg.InvokeRateLimitPerMinute > 0 && strings.TrimSpace(cfg.RedisURL) != "" {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
				limiter = mediator.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
			}
		}
	}

	engine := transfer.NewEngine(repository, policy, cfg.DefaultCurrency, producer)

	reg := registry.New()
	tools.Register(reg, tools.Deps{
		Store:           repository,
		Engine:          engine,
		DefaultCurrency: cfg.DefaultCurrency,
		ReceiptDir:      cfg.ReceiptDir,
	})

	formatter := respond.NewFormatter(sanitize.New(0))
	med := mediator.New(reg, formatter, limiter, mediator.Config{
		DefaultTimeout: time.Duration(cfg.ToolTimeoutSeconds) * time.Second,
		RateLimit:      cfg.InvokeRateLimitPerMinute,
		RateWindow:     time.Minute,
	})

	router := api.Routes(api.NewHandlers(med, engine), cfg.JWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
