package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/padi-pay/padi_pay/internal/airtime"
	"github.com/padi-pay/padi_pay/internal/config"
	"github.com/padi-pay/padi_pay/internal/gateway"
	"github.com/padi-pay/padi_pay/internal/ledger"
	"github.com/padi-pay/padi_pay/internal/middleware"
	"github.com/padi-pay/padi_pay/internal/notify"
	"github.com/padi-pay/padi_pay/internal/wallet"
	"github.com/padi-pay/padi_pay/internal/webhook"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Queue  webhook.EventQueue
	Rooms  *notify.Rooms
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce infra presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Queue == nil {
			return fmt.Errorf("event queue is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
	}

	var gatewayClient gateway.Client
	if d.Cfg.GatewaySecretKey != "" {
		gatewayClient = gateway.NewHTTPClient(d.Cfg.GatewayBaseURL, d.Cfg.GatewaySecretKey, d.Cfg.GatewayWebhookHash)
	} else {
		gatewayClient = gateway.Static{Hash: d.Cfg.GatewayWebhookHash}
	}

	var airtimeClient airtime.Client
	if d.Cfg.AirtimeAPIKey != "" {
		airtimeClient = airtime.NewHTTPClient(d.Cfg.AirtimeBaseURL, d.Cfg.AirtimeAPIKey, d.Cfg.AirtimeSecretKey)
	} else {
		airtimeClient = airtime.Static{}
	}

	bus := notify.NewBus(d.Cache, d.Cfg.UpdatesChannel)
	requery := airtime.NewRequery(context.Background(), airtimeClient, d.Queue,
		d.Cfg.RequeryInterval, d.Cfg.RequeryMaxAttempts, d.Logger)

	walletSvc := wallet.NewService(store, gatewayClient, bus, d.Cfg.Currency,
		d.Cfg.VendorTimeout, d.Cfg.StuckLockThreshold, d.Logger)
	airtimeSvc := airtime.NewService(store, airtimeClient, requery, bus, d.Cfg.VendorTimeout, d.Logger)

	walletHandler := wallet.NewHandler(walletSvc)
	airtimeHandler := airtime.NewHandler(airtimeSvc)
	webhookHandler := webhook.NewHandler(gatewayClient, d.Queue, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Vendor-facing: authenticated by webhook signature, not user identity.
	RegisterWebhookRoutes(api, webhookHandler)

	// User-facing: unsafe endpoints sit behind the client idempotency layer.
	protected := api.Group("", middleware.RequireUser())
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterWalletRoutes(protected, walletHandler)
	RegisterAirtimeRoutes(protected, airtimeHandler)

	RegisterRealtimeRoutes(app, d.Rooms, d.Logger)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
