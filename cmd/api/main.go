package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-bookswap/internal/cart"
	"github.com/ariefcatur/go-bookswap/internal/config"
	"github.com/ariefcatur/go-bookswap/internal/httpx"
	kafkax "github.com/ariefcatur/go-bookswap/internal/kafka"
	"github.com/ariefcatur/go-bookswap/internal/logx"
	"github.com/ariefcatur/go-bookswap/internal/notify"
	"github.com/ariefcatur/go-bookswap/internal/orders"
	"github.com/ariefcatur/go-bookswap/internal/postgres"
	"github.com/ariefcatur/go-bookswap/internal/redisx"
	"github.com/ariefcatur/go-bookswap/internal/sqlite"
	"github.com/ariefcatur/go-bookswap/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logx.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	// Store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	// Redis (opsional; tanpa Redis cart disimpan di memori)
	var (
		rdb   *redis.Client
		carts cart.Store = cart.NewMemoryStore()
		inbox *notify.Inbox
	)
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		carts = cart.NewRedisStore(rdb, cfg.CartTTL)
		inbox = &notify.Inbox{Redis: rdb}
	}

	opts := []orders.Option{
		orders.WithCarts(carts),
		orders.WithLogger(logger),
		orders.WithMetrics(metrics),
		orders.WithProducer(cfg.ServiceName),
	}

	// Kafka producer
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderLifecycle, 1024, logger)
		prod.Start(ctx)
		opts = append(opts, orders.WithPublisher(kafkax.EventWriter{Producer: prod}))
	}

	engine := orders.NewEngine(store, opts...)

	router := httpx.NewRouter(logger, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	h := &httpx.Handler{
		Engine: engine,
		Carts:  carts,
		Redis:  rdb,
		Inbox:  inbox,
		Log:    logger,
	}
	h.Register(router, &httpx.Auth{Secret: []byte(cfg.JWTSecret)})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
	cancel()
	if err := shutdownTracing(ctx2); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config) (orders.Store, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &orders.Repo{DB: db}, db.Close, nil
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "memory":
		return orders.NewMemStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
