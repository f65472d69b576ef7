package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricing-wallet/wallet-service/internal/api"
	"github.com/pricing-wallet/wallet-service/internal/cache"
	"github.com/pricing-wallet/wallet-service/internal/config"
	"github.com/pricing-wallet/wallet-service/internal/repository"
	"github.com/pricing-wallet/wallet-service/internal/repository/memory"
	"github.com/pricing-wallet/wallet-service/internal/service"

	_ "github.com/lib/pq"
)

type storage struct {
	wallets service.WalletRepository
	ledger  service.TransactionRepository
	tx      service.TxManager
	pricing service.PricingRepository
	close   func() error
}

func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.Env, cfg.LogLevel)
	log.Info("starting wallet service", slog.String("env", cfg.Env), slog.String("storage", cfg.StorageDriver))

	store, err := initStorage(cfg, log)
	if err != nil {
		log.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.close()

	walletService := service.NewWalletService(store.wallets, store.ledger, store.tx, log, service.Options{
		OperationTimeout: cfg.Engine.OperationTimeout,
		MaxRetries:       cfg.Engine.MaxRetries,
		Backoff:          10 * time.Millisecond,
	})

	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		walletCache := cache.NewWalletCache(client, cfg.Redis.TTL)
		if err := walletCache.HealthCheck(context.Background()); err != nil {
			log.Warn("wallet cache unavailable, continuing without it", slog.String("error", err.Error()))
		} else {
			walletService.WithCache(walletCache)
		}
	}

	discount, err := cfg.Pricing.Discount()
	if err != nil {
		log.Error("invalid pricing config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	pricingService := service.NewPricingService(store.pricing, discount, log)

	router := api.NewRouter(walletService, pricingService, cfg.CORSOrigins, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", slog.Int("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", slog.String("error", err.Error()))
		return
	}

	log.Info("server exited properly")
}

func initStorage(cfg *config.Config, log *slog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.New()
		return &storage{
			wallets: store,
			ledger:  store,
			tx:      store,
			pricing: store,
			close:   func() error { return nil },
		}, nil
	}

	db, err := initDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.CreateTablesIfNotExist(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &storage{
		wallets: repository.NewWalletRepository(db, log),
		ledger:  repository.NewTransactionRepository(db, log),
		tx:      repository.NewTxManager(db),
		pricing: repository.NewPricingRepository(db),
		close:   db.Close,
	}, nil
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DataBase.URL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(cfg.ConnectionPool.MaxOpenConns)
	db.SetMaxIdleConns(cfg.ConnectionPool.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnectionPool.MaxLifetime)

	return db, nil
}

func setupLogger(env, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if env == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
