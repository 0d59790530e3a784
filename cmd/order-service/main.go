package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/catalog"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database/migrations"
	"ms-marketplace/internal/identity"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/order"
	orderdb "ms-marketplace/internal/order/db"
	orderkafka "ms-marketplace/internal/order/kafka"
	"ms-marketplace/internal/order/order_api"
	rediswrap "ms-marketplace/internal/order/redis"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	// --- Dependencies ---
	dbLayer := &orderdb.DB{Bun: bunDB}
	orderLock := rediswrap.NewRedis(redisClient, log, cfg.Redis.OrderLockTTL)
	catalogSvc := catalog.New(bunDB)
	identitySvc := identity.New(bunDB, redisClient, log)

	var publisher order.EventPublisher
	if cfg.Kafka.Enabled {
		producer := orderkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
	} else {
		log.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	log.Info("PROCESS", "Initializing Order Ledger service...")
	service := order.NewOrderService(dbLayer, catalogSvc, identitySvc, orderLock, publisher, log)
	handler := order_api.NewHandler(service, log)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(auth.RequestLogger(log))
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.OIDCIssuer))

		r.Route("/buyers/{buyerSlug}/orders", func(r chi.Router) {
			r.Post("/", handler.CreateOrder)
			r.Get("/", handler.BuyerOrders)
			r.Patch("/{orderId}", handler.BuyerUpdateOrder)
			r.Delete("/{orderId}", handler.DeleteOrder)
		})

		r.Route("/sellers/{sellerSlug}/orders", func(r chi.Router) {
			r.Get("/", handler.SellerOrders)
			r.Put("/{orderId}/accept", handler.AcceptOrder)
			r.Patch("/{orderId}", handler.SellerUpdateOrder)
		})

		r.Get("/orders/{orderId}", handler.GetOrder)
		r.Get("/orders/{orderId}/invoice/qr", handler.InvoiceQR)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("PROCESS", fmt.Sprintf("Order Ledger service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("PROCESS", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("PROCESS", "Shutdown signal received. Cleaning up...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("PROCESS", fmt.Sprintf("Server forced to shutdown: %v", err))
	}
	log.Info("PROCESS", "Server exited gracefully")
}
