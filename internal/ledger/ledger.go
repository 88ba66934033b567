package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrWalletNotFound indicates the requested wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletExists indicates the user already owns a wallet; wallets are 1:1 per user.
	ErrWalletExists = errors.New("wallet already exists for user")

	// ErrWalletLocked occurs when a balance-affecting operation is requested
	// while another operation holds the wallet lock. Callers must reject the
	// new operation, not queue it.
	ErrWalletLocked = errors.New("wallet is locked by an in-flight operation")

	// ErrWalletInactive indicates the wallet has been deactivated.
	ErrWalletInactive = errors.New("wallet is not active")

	// ErrInsufficientFunds occurs when applying a debit would take the
	// balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransactionNotFound indicates no transaction exists for the reference.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAlreadySettled indicates a transition was attempted on a transaction
	// that already left PENDING. Treated as duplicate suppression, not a fault.
	ErrAlreadySettled = errors.New("transaction already settled")
)

// Transaction types.
const (
	TypeFund     = "fund"
	TypeWithdraw = "withdraw"
	TypeAirtime  = "airtime"
)

// Transaction statuses. PENDING transitions exactly once to SUCCESS or
// FAILED; terminal states never transition again.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Wallet is a stored-value account. Balance is in minor units and never
// negative. IsLocked is the persisted mutual-exclusion flag: true while
// exactly one balance-affecting operation is in flight.
type Wallet struct {
	ID        string
	UserID    string
	Balance   int64
	Currency  string
	IsActive  bool
	IsLocked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is one wallet mutation correlated to a vendor by Reference.
// VendorRequestID is empty until the vendor assigns its own correlation key.
type Transaction struct {
	ID              string
	Reference       string
	WalletID        string
	UserID          string
	Type            string
	Amount          int64
	Status          string
	VendorRequestID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SettleResult carries the post-transition state of a settled transaction
// and its wallet.
type SettleResult struct {
	Transaction Transaction
	Wallet      Wallet
}

// Store is the durable record of wallets and transactions. Implementations
/// must provide atomic multi-record updates: BeginPending and Settle are
// each all-or-nothing units.
type Store interface {
	CreateWallet(ctx context.Context, w Wallet) error
	Wallet(ctx context.Context, id string) (Wallet, error)
	WalletByUser(ctx context.Context, userID string) (Wallet, error)
	SetWalletActive(ctx context.Context, walletID string, active bool) (Wallet, error)

	// BeginPending atomically acquires the wallet lock and writes the
	// PENDING transaction. Returns ErrWalletLocked when another operation
	// holds the lock; on any failure the lock is not left acquired.
	BeginPending(ctx context.Context, tx Transaction) error

	// SetVendorRequestID records the vendor's correlation key once assigned.
	SetVendorRequestID(ctx context.Context, reference, vendorRequestID string) error

	Transaction(ctx context.Context, reference string) (Transaction, error)

	// Settle is the single atomic transition unit: it flips the status from
	// PENDING to the given terminal status, applies delta to the wallet
	// balance (guarding balance >= 0), and releases the wallet lock. A
	// transaction already away from PENDING yields ErrAlreadySettled with
	// no side effects; when two callers race, the first conditional update
	// wins and the loser observes ErrAlreadySettled.
	Settle(ctx context.Context, reference, status string, delta int64) (SettleResult, error)

	// ReleaseLock unconditionally clears the wallet lock. Idempotent.
	// This is the administrative reconciliation path for stuck locks.
	ReleaseLock(ctx context.Context, walletID string) error

	// StuckLocks lists PENDING transactions on locked wallets created
	// before the cutoff. These indicate operations that lost their vendor
	// callback and need manual resolution.
	StuckLocks(ctx context.Context, cutoff time.Time) ([]Transaction, error)
}
