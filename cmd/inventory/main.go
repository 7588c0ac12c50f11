package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/config"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/inventory"
	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/logging"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/postgres"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/redisx"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/tracing"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	name := cfg.ServiceName + "-inventory"
	logger := logging.New(name, cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, name, cfg.OtelEndpoint)
	if err != nil {
		logger.Fatal("tracing init", zap.Error(err))
	}

	var ledger inventory.Ledger
	switch cfg.LedgerBackend {
	case config.LedgerRedis:
		rdb, err := redisx.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		ledger = &inventory.RedisLedger{Redis: rdb}
	case config.LedgerPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, int32(cfg.ConsumerWorkers*2))
		if err != nil {
			logger.Fatal("postgres", zap.Error(err))
		}
		defer db.Close()
		pl := &inventory.PostgresLedger{DB: db}
		if err := pl.EnsureSchema(ctx); err != nil {
			logger.Fatal("postgres schema", zap.Error(err))
		}
		ledger = pl
	default:
		ledger = inventory.NewMemoryLedger(nil)
	}
	if err := ledger.Seed(ctx, cfg.SeedStock); err != nil {
		logger.Fatal("seed stock", zap.Error(err))
	}
	logger.Info("stock seeded", zap.String("ledger", cfg.LedgerBackend), zap.Any("stock", cfg.SeedStock))

	svc := &inventory.Service{
		Engine: &inventory.Engine{Ledger: ledger, Log: logger},
		Log:    logger,
		Delay:  cfg.Delay(300 * time.Millisecond),
	}

	cc, err := cfg.Consumer(cfg.InventoryGroup)
	if err != nil {
		logger.Fatal("consumer config", zap.Error(err))
	}
	cons, dlq := kafkax.NewConsumerWithDeadLetter(cc, cfg.DeadLetterProducer(), logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer")
	cancel()
	<-done
	if dlq != nil {
		_ = dlq.Close()
	}

	if snap, err := ledger.Snapshot(context.Background()); err == nil {
		logger.Info("final stock", zap.Any("stock", snap))
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = shutdownTracing(ctx2)
}
