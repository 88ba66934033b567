package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/padi-pay/padi_pay/internal/airtime"
)

// RegisterAirtimeRoutes wires the airtime catalogue and purchase
// endpoints.
func RegisterAirtimeRoutes(router fiber.Router, h *airtime.Handler) {
	router.Get("/airtime/services", h.Services)
	router.Post("/wallets/:walletId/airtime", h.Purchase)
}
