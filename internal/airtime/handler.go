package airtime

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/padi-pay/padi_pay/internal/ledger"
)

// PurchaseRequestBody captures user-provided data to buy airtime.
type PurchaseRequestBody struct {
	ServiceID string `json:"service_id"`
	Phone     string `json:"phone"`
	Amount    int64  `json:"amount"`
}

// PurchaseResponse represents the API answer to a purchase.
type PurchaseResponse struct {
	Reference string `json:"tx_ref"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Balance   int64  `json:"balance,omitempty"`
}

// Handler exposes HTTP endpoints for the airtime catalogue and purchases.
type Handler struct {
	service *Service
}

// NewHandler constructs an airtime handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Services lists the purchasable airtime products.
func (h *Handler) Services(c *fiber.Ctx) error {
	products, err := h.service.Services(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"services": products})
}

// Purchase buys airtime from the wallet in the route.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	var req PurchaseRequestBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.service.Purchase(c.UserContext(), PurchaseInput{
		WalletID:  c.Params("walletId"),
		ServiceID: req.ServiceID,
		Phone:     req.Phone,
		Amount:    req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ledger.ErrWalletLocked):
			return fiber.NewError(http.StatusConflict, "wallet is processing another transaction")
		case errors.Is(err, ledger.ErrWalletInactive):
			return fiber.NewError(http.StatusForbidden, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
	}

	status := http.StatusOK
	if outcome.Status == ledger.StatusPending {
		status = http.StatusAccepted
	}
	return c.Status(status).JSON(PurchaseResponse{
		Reference: outcome.Reference,
		Status:    outcome.Status,
		Message:   outcome.Message,
		Balance:   outcome.Balance,
	})
}
