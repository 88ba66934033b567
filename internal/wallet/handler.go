package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/padi-pay/padi_pay/internal/ledger"
)

// Handler exposes HTTP endpoints for wallet lifecycle and transfers.
type Handler struct {
	service *Service
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create provisions the wallet for a user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	w, err := h.service.Create(c.UserContext(), req.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toWalletResponse(w))
}

// Get returns a wallet by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return walletError(err)
	}
	return c.JSON(toWalletResponse(w))
}

// GetByUser returns the wallet owned by a user.
func (h *Handler) GetByUser(c *fiber.Ctx) error {
	w, err := h.service.ByUser(c.UserContext(), c.Params("userId"))
	if err != nil {
		return walletError(err)
	}
	return c.JSON(toWalletResponse(w))
}

// SetActivity toggles whether the wallet accepts new transactions.
func (h *Handler) SetActivity(c *fiber.Ctx) error {
	var req ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	w, err := h.service.SetActive(c.UserContext(), c.Params("walletId"), req.Active)
	if err != nil {
		return walletError(err)
	}
	return c.JSON(toWalletResponse(w))
}

// Fund starts a top-up and returns the hosted payment link.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req FundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Fund(c.UserContext(), FundInput{
		WalletID: c.Params("walletId"),
		Email:    req.Email,
		Amount:   req.Amount,
	})
	if err != nil {
		if errors.Is(err, ErrAwaitingVendor) {
			return c.Status(http.StatusAccepted).JSON(FundResponse{Reference: result.Reference, Status: result.Status})
		}
		return walletError(err)
	}
	return c.Status(http.StatusCreated).JSON(FundResponse{
		Reference:   result.Reference,
		PaymentLink: result.PaymentLink,
		Status:      result.Status,
	})
}

// Withdraw starts a bank payout.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		WalletID:      c.Params("walletId"),
		Amount:        req.Amount,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		if errors.Is(err, ErrAwaitingVendor) {
			return c.Status(http.StatusAccepted).JSON(WithdrawResponse{Reference: result.Reference, Status: result.Status})
		}
		return walletError(err)
	}
	return c.Status(http.StatusCreated).JSON(WithdrawResponse{
		Reference:   result.Reference,
		AccountName: result.AccountName,
		Status:      result.Status,
	})
}

// Transaction returns a transaction by reference.
func (h *Handler) Transaction(c *fiber.Ctx) error {
	t, err := h.service.Transaction(c.UserContext(), c.Params("reference"))
	if err != nil {
		return walletError(err)
	}
	return c.JSON(toTransactionResponse(t))
}

// Banks lists the supported payout banks.
func (h *Handler) Banks(c *fiber.Ctx) error {
	banks, err := h.service.Banks(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"banks": banks})
}

// Unlock force-releases a wallet lock.
func (h *Handler) Unlock(c *fiber.Ctx) error {
	if err := h.service.Unlock(c.UserContext(), c.Params("walletId")); err != nil {
		return walletError(err)
	}
	return c.JSON(fiber.Map{"status": "unlocked"})
}

// StuckLocks lists transactions holding their wallet lock past the
// configured threshold.
func (h *Handler) StuckLocks(c *fiber.Ctx) error {
	stuck, err := h.service.StuckLocks(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]TransactionResponse, 0, len(stuck))
	for _, t := range stuck {
		out = append(out, toTransactionResponse(t))
	}
	return c.JSON(fiber.Map{"transactions": out})
}

func walletError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, ledger.ErrTransactionNotFound):
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
