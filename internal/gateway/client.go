package gateway

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"

	"github.com/padi-pay/padi_pay/internal/vendors"
)

// PaymentRequest captures data needed to request a hosted payment link.
type PaymentRequest struct {
	Reference string
	UserID    string
	Email     string
	Amount    int64
	Currency  string
}

// PaymentLink is the gateway's response to a payment initiation.
type PaymentLink struct {
	Reference string
	Link      string
	CreatedAt time.Time
}

// TransferRequest captures data needed to push funds to a bank account.
type TransferRequest struct {
	Reference     string
	UserID        string
	Amount        int64
	Currency      string
	BankCode      string
	AccountNumber string
}

// TransferReceipt acknowledges an accepted transfer request. Settlement
// arrives later through the webhook.
type TransferReceipt struct {
	Reference        string
	VendorTransferID string
	CreatedAt        time.Time
}

// Verification is the gateway's authoritative record for a transaction,
// fetched before crediting a funded amount.
type Verification struct {
	Reference string
	Status    vendors.Status
	Amount    int64
	Currency  string
}

// Bank identifies a supported settlement bank.
type Bank struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// BankAccount is a resolved account holder.
type BankAccount struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	AccountName   string `json:"account_name"`
}

// Client is the funds-transfer gateway connector.
type Client interface {
	InitiatePayment(ctx context.Context, req PaymentRequest) (PaymentLink, error)
	InitiateTransfer(ctx context.Context, req TransferRequest) (TransferReceipt, error)
	Verify(ctx context.Context, reference string) (Verification, error)
	VerifyBankAccount(ctx context.Context, bankCode, accountNumber string) (BankAccount, error)
	Banks(ctx context.Context) ([]Bank, error)
	VerifyWebhookSignature(signature string) bool
}

// Static simulates a gateway that approves everything. Used in tests and
// local development without vendor credentials.
type Static struct {
	// Verdict overrides the verification status when set.
	Verdict vendors.Status
	// VerifiedAmount overrides the verified amount when non-zero.
	VerifiedAmount int64
	// Hash is the accepted webhook signature.
	Hash string
}

func (s Static) InitiatePayment(_ context.Context, req PaymentRequest) (PaymentLink, error) {
	return PaymentLink{
		Reference: req.Reference,
		Link:      "https://checkout.example.test/pay/" + req.Reference,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s Static) InitiateTransfer(_ context.Context, req TransferRequest) (TransferReceipt, error) {
	return TransferReceipt{
		Reference:        req.Reference,
		VendorTransferID: uuid.NewString(),
		CreatedAt:        time.Now().UTC(),
	}, nil
}

func (s Static) Verify(_ context.Context, reference string) (Verification, error) {
	status := s.Verdict
	if status == "" {
		status = vendors.StatusSuccess
	}
	return Verification{Reference: reference, Status: status, Amount: s.VerifiedAmount, Currency: "NGN"}, nil
}

func (s Static) VerifyBankAccount(_ context.Context, bankCode, accountNumber string) (BankAccount, error) {
	return BankAccount{AccountNumber: accountNumber, BankCode: bankCode, AccountName: "TEST ACCOUNT"}, nil
}

func (s Static) Banks(_ context.Context) ([]Bank, error) {
	return []Bank{{ID: 1, Code: "044", Name: "Test Bank"}}, nil
}

func (s Static) VerifyWebhookSignature(signature string) bool {
	return subtle.ConstantTimeCompare([]byte(signature), []byte(s.Hash)) == 1
}
