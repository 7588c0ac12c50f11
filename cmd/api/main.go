package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/config"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/httpx"
	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/logging"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
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
	name := cfg.ServiceName + "-api"
	logger := logging.New(name, cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, name, cfg.OtelEndpoint)
	if err != nil {
		logger.Fatal("tracing init", zap.Error(err))
	}

	// Kafka producer
	prod := kafkax.NewProducer(kafkax.ProducerConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.OrdersTopic,
		MaxAttempts: cfg.ProducerMaxAttempts,
	}, logger)

	svc := &orders.Service{
		Producer: prod,
		Log:      logger,
		Sync:     cfg.PublishSync,
		Timeout:  cfg.PublishTimeout,
	}
	router := httpx.NewRouter(logger)
	(&httpx.OrdersHandler{Orders: svc, Validate: httpx.NewValidator(), Log: logger}).Register(router)

	srv := httpx.NewServer(cfg.OrderHTTPAddr, router)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.OrderHTTPAddr), zap.Bool("publish_sync", cfg.PublishSync))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if err := prod.Close(); err != nil {
		logger.Error("producer close", zap.Error(err))
	}
	_ = shutdownTracing(ctx2)
}
