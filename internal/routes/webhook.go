package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/padi-pay/padi_pay/internal/webhook"
)

// RegisterWebhookRoutes wires the vendor callback endpoint.
func RegisterWebhookRoutes(router fiber.Router, h *webhook.Handler) {
	router.Post("/webhooks/gateway", h.Gateway)
}
