package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/config"
	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/logging"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/notification"
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
	name := cfg.ServiceName + "-notification"
	logger := logging.New(name, cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, name, cfg.OtelEndpoint)
	if err != nil {
		logger.Fatal("tracing init", zap.Error(err))
	}

	svc := &notification.Service{
		Dispatcher: &notification.Dispatcher{
			Sidecar: notification.NewSidecarClient(cfg.SidecarBaseURL, cfg.SidecarTimeout),
			Mode:    cfg.SidecarMode,
			Log:     logger,
		},
		Log:   logger,
		Delay: cfg.Delay(500 * time.Millisecond),
	}
	logger.Info("email delegated to sidecar", zap.String("url", cfg.SidecarBaseURL), zap.String("mode", cfg.SidecarMode))

	cc, err := cfg.Consumer(cfg.NotificationGroup)
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

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = shutdownTracing(ctx2)
}
