package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const walletColumns = `id, user_id, balance, currency, is_active, is_locked, created_at, updated_at`

const transactionColumns = `id, reference, wallet_id, user_id, type, amount, status, COALESCE(vendor_request_id, ''), created_at, updated_at`

// PostgresStore persists wallets and transactions in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet inserts a wallet record. The unique index on user_id
// enforces the one-wallet-per-user invariant.
func (s *PostgresStore) CreateWallet(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(w.UserID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, user_id, balance, currency, is_active, is_locked, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		walletID, userID, w.Balance, w.Currency, w.IsActive, w.IsLocked, w.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrWalletExists
	}
	return err
}

// Wallet fetches a wallet by identifier.
func (s *PostgresStore) Wallet(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID)
	return scanWallet(row)
}

// WalletByUser fetches the wallet owned by the given user.
func (s *PostgresStore) WalletByUser(ctx context.Context, userID string) (Wallet, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, uid)
	return scanWallet(row)
}

// SetWalletActive toggles the wallet's active flag.
func (s *PostgresStore) SetWalletActive(ctx context.Context, walletID string, active bool) (Wallet, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `UPDATE wallets SET is_active = $2, updated_at = now()
        WHERE id = $1 RETURNING `+walletColumns, id, active)
	return scanWallet(row)
}

// BeginPending acquires the wallet lock and writes the PENDING transaction
// as one database transaction. The lock acquisition is a conditional
// update on is_locked so two concurrent operations cannot both pass.
func (s *PostgresStore) BeginPending(ctx context.Context, t Transaction) error {
	walletID, err := uuid.Parse(t.WalletID)
	if err != nil {
		return ErrWalletNotFound
	}

	dbTx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer dbTx.Rollback(ctx) // nolint:errcheck

	tag, err := dbTx.Exec(ctx, `UPDATE wallets SET is_locked = TRUE, updated_at = now()
        WHERE id = $1 AND is_active AND NOT is_locked`, walletID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var isActive, isLocked bool
		err := dbTx.QueryRow(ctx, `SELECT is_active, is_locked FROM wallets WHERE id = $1`, walletID).Scan(&isActive, &isLocked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWalletNotFound
		}
		if err != nil {
			return err
		}
		if !isActive {
			return ErrWalletInactive
		}
		return ErrWalletLocked
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	txID, err := uuid.Parse(t.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(t.UserID)
	if err != nil {
		return err
	}
	var vendorRequestID any
	if t.VendorRequestID != "" {
		vendorRequestID = t.VendorRequestID
	}
	if _, err := dbTx.Exec(ctx, `INSERT INTO transactions (id, reference, wallet_id, user_id, type, amount, status, vendor_request_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		txID, t.Reference, walletID, userID, t.Type, t.Amount, StatusPending, vendorRequestID, t.CreatedAt.UTC()); err != nil {
		return err
	}

	return dbTx.Commit(ctx)
}

// SetVendorRequestID records the external correlation key on the transaction.
func (s *PostgresStore) SetVendorRequestID(ctx context.Context, reference, vendorRequestID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE transactions SET vendor_request_id = $2, updated_at = now()
        WHERE reference = $1`, reference, vendorRequestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// Transaction fetches a transaction by its reference.
func (s *PostgresStore) Transaction(ctx context.Context, reference string) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
	return scanTransaction(row)
}

// Settle applies a terminal transition in one database transaction: the
// conditional status flip from PENDING, the balance delta, and the lock
// release all commit together or not at all.
func (s *PostgresStore) Settle(ctx context.Context, reference, status string, delta int64) (SettleResult, error) {
	if status != StatusSuccess && status != StatusFailed {
		return SettleResult{}, fmt.Errorf("settle status must be terminal, got %q", status)
	}

	dbTx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return SettleResult{}, err
	}
	defer dbTx.Rollback(ctx) // nolint:errcheck

	row := dbTx.QueryRow(ctx, `UPDATE transactions SET status = $2, updated_at = now()
        WHERE reference = $1 AND status = $3 RETURNING `+transactionColumns,
		reference, status, StatusPending)
	txRecord, err := scanTransaction(row)
	if errors.Is(err, ErrTransactionNotFound) {
		// Distinguish a missing transaction from a lost conditional update.
		var existing string
		scanErr := dbTx.QueryRow(ctx, `SELECT status FROM transactions WHERE reference = $1`, reference).Scan(&existing)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return SettleResult{}, ErrTransactionNotFound
		}
		if scanErr != nil {
			return SettleResult{}, scanErr
		}
		return SettleResult{}, ErrAlreadySettled
	}
	if err != nil {
		return SettleResult{}, err
	}

	walletID, err := uuid.Parse(txRecord.WalletID)
	if err != nil {
		return SettleResult{}, err
	}
	walletRow := dbTx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $2, is_locked = FALSE, updated_at = now()
        WHERE id = $1 AND balance + $2 >= 0 RETURNING `+walletColumns, walletID, delta)
	walletRecord, err := scanWallet(walletRow)
	if errors.Is(err, ErrWalletNotFound) {
		// The wallet row exists (FK), so the guard rejected a negative balance.
		return SettleResult{}, ErrInsufficientFunds
	}
	if err != nil {
		return SettleResult{}, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return SettleResult{}, err
	}

	return SettleResult{Transaction: txRecord, Wallet: walletRecord}, nil
}

// ReleaseLock unconditionally clears the lock bit. Safe to repeat.
func (s *PostgresStore) ReleaseLock(ctx context.Context, walletID string) error {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return ErrWalletNotFound
	}
	tag, err := s.db.Exec(ctx, `UPDATE wallets SET is_locked = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// StuckLocks returns PENDING transactions on locked wallets older than cutoff.
func (s *PostgresStore) StuckLocks(ctx context.Context, cutoff time.Time) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT t.id, t.reference, t.wallet_id, t.user_id, t.type, t.amount, t.status, COALESCE(t.vendor_request_id, ''), t.created_at, t.updated_at
        FROM transactions t
        INNER JOIN wallets w ON w.id = t.wallet_id
        WHERE w.is_locked AND t.status = $1 AND t.created_at < $2
        ORDER BY t.created_at`, StatusPending, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	var id, userID uuid.UUID
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &userID, &w.Balance, &w.Currency, &w.IsActive, &w.IsLocked, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.UserID = userID.String()
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var id, walletID, userID uuid.UUID
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &t.Reference, &walletID, &userID, &t.Type, &t.Amount, &t.Status, &t.VendorRequestID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	t.ID = id.String()
	t.WalletID = walletID.String()
	t.UserID = userID.String()
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
