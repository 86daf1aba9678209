package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-bookswap/internal/config"
	kafkax "github.com/ariefcatur/go-bookswap/internal/kafka"
	"github.com/ariefcatur/go-bookswap/internal/logx"
	"github.com/ariefcatur/go-bookswap/internal/notify"
	"github.com/ariefcatur/go-bookswap/internal/orders"
	"github.com/ariefcatur/go-bookswap/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-notifier"

	logger, err := logx.New(cfg.LogLevel, name)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.RedisAddr == "" || len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("notifier needs both REDIS_ADDR and KAFKA_BROKERS")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Service
	svc := &notify.Service{
		Inbox:       &notify.Inbox{Redis: rdb},
		Redis:       rdb,
		ServiceName: name,
		Log:         logger,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderLifecycle, cfg.NotifierWorkers, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("notifier consumer started",
			zap.String("group", cfg.NotifierGroup),
			zap.String("topic", orders.TopicOrderLifecycle),
			zap.Int("workers", cfg.NotifierWorkers))
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
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
}
