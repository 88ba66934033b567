package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/padi-pay/padi_pay/internal/config"
	"github.com/padi-pay/padi_pay/internal/gateway"
	"github.com/padi-pay/padi_pay/internal/infra"
	"github.com/padi-pay/padi_pay/internal/ledger"
	"github.com/padi-pay/padi_pay/internal/logging"
	"github.com/padi-pay/padi_pay/internal/notify"
	"github.com/padi-pay/padi_pay/internal/webhook"
	"github.com/padi-pay/padi_pay/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}()

	reader := infra.NewKafkaReader(cfg.KafkaBrokers, cfg.EventsTopic, cfg.ConsumerGroup)
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("close kafka reader", "error", err)
		}
	}()

	eventsWriter := infra.NewKafkaWriter(cfg.KafkaBrokers, cfg.EventsTopic, logger)
	defer eventsWriter.Close()
	dlqWriter := infra.NewKafkaWriter(cfg.KafkaBrokers, cfg.DeadLetterTopic, logger)
	defer dlqWriter.Close()

	var gatewayClient gateway.Client
	if cfg.GatewaySecretKey != "" {
		gatewayClient = gateway.NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewaySecretKey, cfg.GatewayWebhookHash)
	} else {
		gatewayClient = gateway.Static{Hash: cfg.GatewayWebhookHash}
	}

	store := ledger.NewPostgresStore(db)
	bus := notify.NewBus(cache, cfg.UpdatesChannel)
	resolver := worker.NewResolver(store, gatewayClient, bus, logger)
	gate := webhook.NewGate(cache, cfg.WebhookDedupTTL)

	w := worker.New(
		reader,
		gate,
		resolver,
		webhook.NewPublisher(eventsWriter),
		worker.NewDeadLetterQueue(dlqWriter),
		cfg.WorkerMaxAttempts,
		logger,
	)

	logger.Info("worker started", "topic", cfg.EventsTopic, "group", cfg.ConsumerGroup)
	if err := w.Run(ctx); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker exited cleanly")
}
