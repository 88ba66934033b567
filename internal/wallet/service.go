package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/padi-pay/padi_pay/internal/gateway"
	"github.com/padi-pay/padi_pay/internal/ledger"
	"github.com/padi-pay/padi_pay/internal/notify"
)

// ErrAwaitingVendor signals that the vendor call did not complete within
// the deadline. The transaction stays PENDING and the wallet stays locked
// until the vendor's webhook or a reconciliation pass decides the verdict.
var ErrAwaitingVendor = errors.New("awaiting vendor confirmation")

// Notifier is the publish side of the notification bus.
type Notifier interface {
	Publish(ctx context.Context, envelope notify.Envelope) error
}

// Service owns wallet lifecycle and the money-out/money-in entry points.
// Each entry point follows the same shape: acquire the wallet lock and
// write a PENDING transaction in one atomic step, then call the vendor.
// Terminal verdicts arrive asynchronously; only a synchronous vendor
// rejection is settled inline.
type Service struct {
	store         ledger.Store
	gateway       gateway.Client
	bus           Notifier
	currency      string
	vendorTimeout time.Duration
	stuckAfter    time.Duration
	logger        *slog.Logger
}

// NewService constructs the wallet service.
func NewService(store ledger.Store, gw gateway.Client, bus Notifier, currency string, vendorTimeout, stuckAfter time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:         store,
		gateway:       gw,
		bus:           bus,
		currency:      currency,
		vendorTimeout: vendorTimeout,
		stuckAfter:    stuckAfter,
		logger:        logger,
	}
}

// Create provisions the single wallet for a user.
func (s *Service) Create(ctx context.Context, userID string) (ledger.Wallet, error) {
	if userID == "" {
		return ledger.Wallet{}, fmt.Errorf("user id is required")
	}
	now := time.Now().UTC()
	w := ledger.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Currency:  s.currency,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		return ledger.Wallet{}, err
	}
	return w, nil
}

// Get fetches a wallet by id.
func (s *Service) Get(ctx context.Context, walletID string) (ledger.Wallet, error) {
	return s.store.Wallet(ctx, walletID)
}

// ByUser fetches the wallet owned by a user.
func (s *Service) ByUser(ctx context.Context, userID string) (ledger.Wallet, error) {
	return s.store.WalletByUser(ctx, userID)
}

// SetActive toggles whether the wallet accepts new transactions. A
// deactivated wallet still settles transactions already in flight.
func (s *Service) SetActive(ctx context.Context, walletID string, active bool) (ledger.Wallet, error) {
	return s.store.SetWalletActive(ctx, walletID, active)
}

// Transaction fetches a transaction by reference.
func (s *Service) Transaction(ctx context.Context, reference string) (ledger.Transaction, error) {
	return s.store.Transaction(ctx, reference)
}

// FundInput captures the data needed to start a wallet top-up.
type FundInput struct {
	WalletID string
	Email    string
	Amount   int64
}

// FundResult is the synchronous half of a funding flow: a hosted payment
// link the user completes out of band.
type FundResult struct {
	Reference   string
	PaymentLink string
	Status      string
}

// Fund opens a PENDING funding transaction and requests a hosted payment
// link from the gateway. The wallet ends locked until the gateway's
// webhook settles the transaction.
func (s *Service) Fund(ctx context.Context, input FundInput) (FundResult, error) {
	if input.Amount <= 0 {
		return FundResult{}, fmt.Errorf("amount must be positive")
	}

	w, err := s.store.Wallet(ctx, input.WalletID)
	if err != nil {
		return FundResult{}, err
	}

	reference := uuid.NewString()
	now := time.Now().UTC()
	if err := s.store.BeginPending(ctx, ledger.Transaction{
		ID:        uuid.NewString(),
		Reference: reference,
		WalletID:  w.ID,
		UserID:    w.UserID,
		Type:      ledger.TypeFund,
		Amount:    input.Amount,
		CreatedAt: now,
	}); err != nil {
		return FundResult{}, err
	}

	vctx, cancel := context.WithTimeout(ctx, s.vendorTimeout)
	defer cancel()

	link, err := s.gateway.InitiatePayment(vctx, gateway.PaymentRequest{
		Reference: reference,
		UserID:    w.UserID,
		Email:     input.Email,
		Amount:    input.Amount,
		Currency:  w.Currency,
	})
	if err != nil {
		return s.vendorCallFailed(ctx, reference, err)
	}

	return FundResult{Reference: reference, PaymentLink: link.Link, Status: ledger.StatusPending}, nil
}

// WithdrawInput captures the data needed to start a bank payout.
type WithdrawInput struct {
	WalletID      string
	Amount        int64
	BankCode      string
	AccountNumber string
}

// WithdrawResult acknowledges an accepted payout request. The debit is
// applied when the gateway confirms the transfer.
type WithdrawResult struct {
	Reference   string
	AccountName string
	Status      string
}

// Withdraw verifies the destination account, opens a PENDING withdrawal
// and hands the transfer to the gateway. The balance is not debited here;
// the settlement applies the debit so a failed transfer never moves money.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (WithdrawResult, error) {
	if input.Amount <= 0 {
		return WithdrawResult{}, fmt.Errorf("amount must be positive")
	}
	if input.BankCode == "" || input.AccountNumber == "" {
		return WithdrawResult{}, fmt.Errorf("bank code and account number are required")
	}

	w, err := s.store.Wallet(ctx, input.WalletID)
	if err != nil {
		return WithdrawResult{}, err
	}
	if w.Balance < input.Amount {
		return WithdrawResult{}, ledger.ErrInsufficientFunds
	}

	vctx, cancel := context.WithTimeout(ctx, s.vendorTimeout)
	defer cancel()

	account, err := s.gateway.VerifyBankAccount(vctx, input.BankCode, input.AccountNumber)
	if err != nil {
		// No transaction exists yet, so nothing to settle.
		return WithdrawResult{}, err
	}

	reference := uuid.NewString()
	now := time.Now().UTC()
	if err := s.store.BeginPending(ctx, ledger.Transaction{
		ID:        uuid.NewString(),
		Reference: reference,
		WalletID:  w.ID,
		UserID:    w.UserID,
		Type:      ledger.TypeWithdraw,
		Amount:    input.Amount,
		CreatedAt: now,
	}); err != nil {
		return WithdrawResult{}, err
	}

	receipt, err := s.gateway.InitiateTransfer(vctx, gateway.TransferRequest{
		Reference:     reference,
		UserID:        w.UserID,
		Amount:        input.Amount,
		Currency:      w.Currency,
		BankCode:      input.BankCode,
		AccountNumber: input.AccountNumber,
	})
	if err != nil {
		res, ferr := s.vendorCallFailed(ctx, reference, err)
		return WithdrawResult{Reference: res.Reference, Status: res.Status}, ferr
	}
	if receipt.VendorTransferID != "" {
		if err := s.store.SetVendorRequestID(ctx, reference, receipt.VendorTransferID); err != nil {
			s.logger.Warn("record vendor transfer id", "reference", reference, "error", err)
		}
	}

	return WithdrawResult{Reference: reference, AccountName: account.AccountName, Status: ledger.StatusPending}, nil
}

// Banks lists the supported payout banks.
func (s *Service) Banks(ctx context.Context) ([]gateway.Bank, error) {
	vctx, cancel := context.WithTimeout(ctx, s.vendorTimeout)
	defer cancel()
	return s.gateway.Banks(vctx)
}

// Unlock force-releases a wallet lock. Operator action for transactions
// whose vendor verdict never arrived.
func (s *Service) Unlock(ctx context.Context, walletID string) error {
	s.logger.Warn("wallet lock force-released", "wallet_id", walletID)
	return s.store.ReleaseLock(ctx, walletID)
}

// StuckLocks lists PENDING transactions whose wallet lock has been held
// longer than the configured threshold.
func (s *Service) StuckLocks(ctx context.Context) ([]ledger.Transaction, error) {
	return s.store.StuckLocks(ctx, time.Now().UTC().Add(-s.stuckAfter))
}

// vendorCallFailed decides what a failed vendor call means for the open
// transaction. A timeout is not a verdict: the vendor may have accepted
// the request, so the transaction stays PENDING with the lock held. A
// definite rejection settles the transaction FAILED and releases the lock.
func (s *Service) vendorCallFailed(ctx context.Context, reference string, cause error) (FundResult, error) {
	if errors.Is(cause, context.DeadlineExceeded) {
		s.logger.Warn("vendor call timed out, transaction left pending", "reference", reference, "error", cause)
		return FundResult{Reference: reference, Status: ledger.StatusPending}, fmt.Errorf("%w: %s", ErrAwaitingVendor, reference)
	}

	res, err := s.store.Settle(ctx, reference, ledger.StatusFailed, 0)
	if err != nil {
		s.logger.Error("settle after vendor rejection failed", "reference", reference, "error", err)
		return FundResult{Reference: reference, Status: ledger.StatusFailed}, cause
	}
	envelope := notify.Envelope{
		Room: reference,
		Payload: notify.Payload{
			Status:    res.Transaction.Status,
			Message:   "vendor rejected the request",
			Reference: reference,
			Amount:    res.Transaction.Amount,
			Currency:  res.Wallet.Currency,
			UpdatedAt: time.Now().UTC(),
		},
	}
	if err := s.bus.Publish(ctx, envelope); err != nil {
		s.logger.Warn("notification publish failed", "room", reference, "error", err)
	}
	return FundResult{Reference: reference, Status: ledger.StatusFailed}, cause
}
