package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/servicepay/internal/command"
	"github.com/eaglebank/servicepay/internal/config"
	"github.com/eaglebank/servicepay/internal/handler"
	"github.com/eaglebank/servicepay/internal/ledger"
	"github.com/eaglebank/servicepay/internal/query"
	"github.com/eaglebank/servicepay/internal/repository"
	"github.com/eaglebank/servicepay/internal/tools"
	"github.com/eaglebank/servicepay/shared/events"
	"github.com/eaglebank/servicepay/shared/middleware"
	redisClient "github.com/eaglebank/servicepay/shared/redis"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, err := buildLedger(cfg)
	if err != nil {
		log.Fatalf("Failed to build ledger: %v", err)
	}

	// Database connection (receipt journal), optional
	var db *sql.DB
	var store command.ReceiptStore
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		writeRepo := repository.NewReceiptWriteRepository(db)
		if err := writeRepo.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare schema: %v", err)
		}
		store = writeRepo
	} else {
		log.Println("DATABASE_URL not set, receipts are kept in memory only")
	}

	// Redis connection (read model + event streaming), optional
	var redis *redisClient.Client
	var publisher command.EventPublisher
	if cfg.RedisAddr != "" {
		redis, err = redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redis.Close()
		publisher = events.NewPublisher(redis.Client, cfg.StreamMaxLen)
	} else {
		log.Println("REDIS_ADDR not set, payment events are disabled")
	}

	// --- CQRS wiring ---
	var readRepo *repository.ReceiptReadRepository
	if redis != nil {
		readRepo = repository.NewReceiptReadRepository(db, redis.Client)
	} else {
		readRepo = repository.NewReceiptReadRepository(db, nil)
	}

	var cache command.ReceiptCache
	if redis != nil {
		cache = readRepo
	}

	commandSvc := command.NewPaymentCommandService(l, cache, store, publisher)
	querySvc := query.NewLedgerQueryService(l, readRepo)
	registry := tools.NewLedgerRegistry(commandSvc, querySvc)
	toolHandler := handler.NewToolHandler(registry, querySvc)

	if redis != nil && store != nil {
		go func() {
			subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
				Group:    "ledger-service-group",
				Consumer: consumerName(),
				Stream:   events.PaymentEventsStream,
				Handler:  commandSvc.HandlePaymentEvent,
			})
			if err := subscriber.Start(ctx); err != nil {
				log.Printf("Subscriber stopped: %v", err)
			}
		}()
	}

	// Setup router
	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "ledger-service"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewCallerLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	v1 := router.Group("/v1", middleware.AuthMiddleware([]byte(cfg.JWTSecret)), middleware.RateLimitMiddleware(limiter))
	toolHandler.RegisterRoutes(v1)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	log.Printf("Ledger service starting on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildLedger(cfg config.Config) (*ledger.Ledger, error) {
	now := time.Now()
	seed := ledger.DefaultSeed(now)
	if cfg.Seed != nil {
		var err error
		if seed, err = cfg.Seed.Seed(now); err != nil {
			return nil, err
		}
	}
	return ledger.New(seed, ledger.WithDefaultCurrency(cfg.DefaultCurrency))
}

func consumerName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return "ledger-consumer-" + host
	}
	return "ledger-consumer-1"
}
