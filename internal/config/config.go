package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName            = "PadiPay"
	defaultAppEnv             = "development"
	defaultPort               = "8080"
	defaultLogLevel           = "info"
	defaultCurrency           = "NGN"
	defaultShutdownDelay      = 10 * time.Second
	defaultIdempotencyTTL     = 24 * time.Hour
	defaultWebhookDedupTTL    = 24 * time.Hour
	defaultVendorTimeout      = 15 * time.Second
	defaultEventsTopic        = "wallet.events"
	defaultDeadLetterTopic    = "wallet.events.dlq"
	defaultConsumerGroup      = "wallet-workers"
	defaultUpdatesChannel     = "wallet.updates"
	defaultWorkerMaxAttempts  = 3
	defaultRequeryInterval    = 30 * time.Second
	defaultRequeryMaxAttempts = 10
	defaultStuckLockThreshold = 30 * time.Minute
	shutdownSecondsEnvVar     = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar    = "SHUTDOWN_TIMEOUT"
	idemTTLSecondsEnvVar      = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar          = "IDEMPOTENCY_TTL"
	vendorTimeoutEnvVar       = "VENDOR_TIMEOUT"
	webhookDedupTTLEnvVar     = "WEBHOOK_DEDUP_TTL"
	requeryIntervalEnvVar     = "AIRTIME_REQUERY_INTERVAL"
	requeryMaxAttemptsEnvVar  = "AIRTIME_REQUERY_MAX_ATTEMPTS"
	workerMaxAttemptsEnvVar   = "WORKER_MAX_ATTEMPTS"
	stuckLockThresholdEnvVar  = "STUCK_LOCK_THRESHOLD"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string
	Currency string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers    []string
	EventsTopic     string
	DeadLetterTopic string
	ConsumerGroup   string

	// UpdatesChannel is the Redis pub/sub channel carrying notification
	// envelopes between process instances.
	UpdatesChannel string

	GatewayBaseURL     string
	GatewaySecretKey   string
	GatewayWebhookHash string
	AirtimeBaseURL     string
	AirtimeAPIKey      string
	AirtimeSecretKey   string
	AirtimePublicKey   string

	ShutdownPeriod     time.Duration
	IdempotencyTTL     time.Duration
	WebhookDedupTTL    time.Duration
	VendorTimeout      time.Duration
	RequeryInterval    time.Duration
	RequeryMaxAttempts int
	WorkerMaxAttempts  int
	StuckLockThreshold time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		Currency:           getEnv("WALLET_CURRENCY", defaultCurrency),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		EventsTopic:        getEnv("KAFKA_EVENTS_TOPIC", defaultEventsTopic),
		DeadLetterTopic:    getEnv("KAFKA_DLQ_TOPIC", defaultDeadLetterTopic),
		ConsumerGroup:      getEnv("KAFKA_CONSUMER_GROUP", defaultConsumerGroup),
		UpdatesChannel:     getEnv("REDIS_UPDATES_CHANNEL", defaultUpdatesChannel),
		GatewayBaseURL:     os.Getenv("GATEWAY_BASE_URL"),
		GatewaySecretKey:   os.Getenv("GATEWAY_SECRET_KEY"),
		GatewayWebhookHash: os.Getenv("GATEWAY_WEBHOOK_HASH"),
		AirtimeBaseURL:     os.Getenv("AIRTIME_BASE_URL"),
		AirtimeAPIKey:      os.Getenv("AIRTIME_API_KEY"),
		AirtimeSecretKey:   os.Getenv("AIRTIME_SECRET_KEY"),
		AirtimePublicKey:   os.Getenv("AIRTIME_PUBLIC_KEY"),
		ShutdownPeriod:     defaultShutdownDelay,
		IdempotencyTTL:     defaultIdempotencyTTL,
		WebhookDedupTTL:    defaultWebhookDedupTTL,
		VendorTimeout:      defaultVendorTimeout,
		RequeryInterval:    defaultRequeryInterval,
		RequeryMaxAttempts: defaultRequeryMaxAttempts,
		WorkerMaxAttempts:  defaultWorkerMaxAttempts,
		StuckLockThreshold: defaultStuckLockThreshold,
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	durationOverrides := []struct {
		envVar string
		dst    *time.Duration
	}{
		{vendorTimeoutEnvVar, &cfg.VendorTimeout},
		{webhookDedupTTLEnvVar, &cfg.WebhookDedupTTL},
		{requeryIntervalEnvVar, &cfg.RequeryInterval},
		{stuckLockThresholdEnvVar, &cfg.StuckLockThreshold},
	}
	for _, o := range durationOverrides {
		if v := os.Getenv(o.envVar); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", o.envVar, err)
			}
			*o.dst = d
		}
	}

	countOverrides := []struct {
		envVar string
		dst    *int
	}{
		{requeryMaxAttemptsEnvVar, &cfg.RequeryMaxAttempts},
		{workerMaxAttemptsEnvVar, &cfg.WorkerMaxAttempts},
	}
	for _, o := range countOverrides {
		if v := os.Getenv(o.envVar); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", o.envVar, err)
			}
			*o.dst = n
		}
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
