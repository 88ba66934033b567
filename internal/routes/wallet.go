package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/padi-pay/padi_pay/internal/wallet"
)

// RegisterWalletRoutes wires wallet lifecycle, transfer, and operator
// endpoints.
func RegisterWalletRoutes(router fiber.Router, h *wallet.Handler) {
	router.Post("/wallets", h.Create)
	router.Get("/wallets/:walletId", h.Get)
	router.Get("/users/:userId/wallet", h.GetByUser)
	router.Patch("/wallets/:walletId/activity", h.SetActivity)

	router.Post("/wallets/:walletId/fund", h.Fund)
	router.Post("/wallets/:walletId/withdraw", h.Withdraw)

	router.Get("/transactions/:reference", h.Transaction)
	router.Get("/banks", h.Banks)

	admin := router.Group("/admin")
	admin.Post("/wallets/:walletId/unlock", h.Unlock)
	admin.Get("/locks/stuck", h.StuckLocks)
}
