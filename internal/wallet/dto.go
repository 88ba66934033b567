package wallet

import (
	"time"

	"github.com/padi-pay/padi_pay/internal/ledger"
)

// CreateWalletRequest captures the data needed to provision a wallet.
type CreateWalletRequest struct {
	UserID string `json:"user_id"`
}

// FundRequest captures user-provided data to top up a wallet.
type FundRequest struct {
	Amount int64  `json:"amount"`
	Email  string `json:"email"`
}

// WithdrawRequest captures payout details for a bank withdrawal.
type WithdrawRequest struct {
	Amount        int64  `json:"amount"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
}

// ActivityRequest toggles whether a wallet accepts new transactions.
type ActivityRequest struct {
	Active bool `json:"active"`
}

// WalletResponse represents a wallet in API responses.
type WalletResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"is_active"`
	IsLocked  bool      `json:"is_locked"`
	CreatedAt time.Time `json:"created_at"`
}

// FundResponse acknowledges an initiated top-up.
type FundResponse struct {
	Reference   string `json:"tx_ref"`
	PaymentLink string `json:"payment_link,omitempty"`
	Status      string `json:"status"`
}

// WithdrawResponse acknowledges an initiated payout.
type WithdrawResponse struct {
	Reference   string `json:"tx_ref"`
	AccountName string `json:"account_name,omitempty"`
	Status      string `json:"status"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	Reference string    `json:"tx_ref"`
	WalletID  string    `json:"wallet_id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toWalletResponse(w ledger.Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID,
		UserID:    w.UserID,
		Balance:   w.Balance,
		Currency:  w.Currency,
		IsActive:  w.IsActive,
		IsLocked:  w.IsLocked,
		CreatedAt: w.CreatedAt,
	}
}

func toTransactionResponse(t ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		Reference: t.Reference,
		WalletID:  t.WalletID,
		Type:      t.Type,
		Amount:    t.Amount,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
