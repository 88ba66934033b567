package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryStore struct {
	mu           sync.RWMutex
	wallets      map[string]Wallet
	byUser       map[string]string
	transactions map[string]Transaction
}

// NewInMemory creates a concurrency-safe in-memory store that mirrors the
// Postgres semantics. Useful for unit tests.
func NewInMemory() Store {
	return &inMemoryStore{
		wallets:      make(map[string]Wallet),
		byUser:       make(map[string]string),
		transactions: make(map[string]Transaction),
	}
}

func (s *inMemoryStore) CreateWallet(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUser[w.UserID]; exists {
		return ErrWalletExists
	}
	s.wallets[w.ID] = w
	s.byUser[w.UserID] = w.ID
	return nil
}

func (s *inMemoryStore) Wallet(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (s *inMemoryStore) WalletByUser(_ context.Context, userID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUser[userID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return s.wallets[id], nil
}

func (s *inMemoryStore) SetWalletActive(_ context.Context, walletID string, active bool) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	w.IsActive = active
	w.UpdatedAt = time.Now().UTC()
	s.wallets[walletID] = w
	return w, nil
}

func (s *inMemoryStore) BeginPending(_ context.Context, t Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[t.WalletID]
	if !ok {
		return ErrWalletNotFound
	}
	if !w.IsActive {
		return ErrWalletInactive
	}
	if w.IsLocked {
		return ErrWalletLocked
	}

	w.IsLocked = true
	w.UpdatedAt = time.Now().UTC()
	s.wallets[t.WalletID] = w

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = StatusPending
	t.UpdatedAt = t.CreatedAt
	s.transactions[t.Reference] = t
	return nil
}

func (s *inMemoryStore) SetVendorRequestID(_ context.Context, reference, vendorRequestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[reference]
	if !ok {
		return ErrTransactionNotFound
	}
	t.VendorRequestID = vendorRequestID
	t.UpdatedAt = time.Now().UTC()
	s.transactions[reference] = t
	return nil
}

func (s *inMemoryStore) Transaction(_ context.Context, reference string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[reference]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, nil
}

func (s *inMemoryStore) Settle(_ context.Context, reference, status string, delta int64) (SettleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[reference]
	if !ok {
		return SettleResult{}, ErrTransactionNotFound
	}
	if t.Status != StatusPending {
		return SettleResult{}, ErrAlreadySettled
	}

	w, ok := s.wallets[t.WalletID]
	if !ok {
		return SettleResult{}, ErrWalletNotFound
	}
	if w.Balance+delta < 0 {
		return SettleResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	t.Status = status
	t.UpdatedAt = now
	s.transactions[reference] = t

	w.Balance += delta
	w.IsLocked = false
	w.UpdatedAt = now
	s.wallets[t.WalletID] = w

	return SettleResult{Transaction: t, Wallet: w}, nil
}

func (s *inMemoryStore) ReleaseLock(_ context.Context, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	w.IsLocked = false
	w.UpdatedAt = time.Now().UTC()
	s.wallets[walletID] = w
	return nil
}

func (s *inMemoryStore) StuckLocks(_ context.Context, cutoff time.Time) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transaction
	for _, t := range s.transactions {
		if t.Status != StatusPending || !t.CreatedAt.Before(cutoff) {
			continue
		}
		if w, ok := s.wallets[t.WalletID]; ok && w.IsLocked {
			out = append(out, t)
		}
	}
	return out, nil
}
