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
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/email"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/httpx"
	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/logging"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/tracing"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// The sidecar serves two ingress paths into the same email routine: its own
// consumer group on the orders topic and the HTTP endpoints.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	name := cfg.ServiceName + "-email-sidecar"
	logger := logging.New(name, cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, name, cfg.OtelEndpoint)
	if err != nil {
		logger.Fatal("tracing init", zap.Error(err))
	}

	svc := &email.Service{
		Mailer: &email.Mailer{
			Transport: email.NewLogTransport(logger, cfg.Delay),
			Sender:    cfg.EmailSender,
			Log:       logger,
		},
		Log: logger,
	}

	// HTTP path
	router := httpx.NewRouter(logger)
	(&httpx.EmailHandler{Email: svc, Validate: httpx.NewValidator(), Log: logger}).Register(router)
	srv := httpx.NewServer(cfg.SidecarHTTPAddr, router)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.SidecarHTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", zap.Error(err))
			cancel()
		}
	}()

	// bus path
	cc, err := cfg.Consumer(cfg.EmailGroup)
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
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()
	<-done
	if dlq != nil {
		_ = dlq.Close()
	}
	_ = shutdownTracing(ctx2)
}
