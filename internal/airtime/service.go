package airtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/padi-pay/padi_pay/internal/ledger"
	"github.com/padi-pay/padi_pay/internal/notify"
	"github.com/padi-pay/padi_pay/internal/vendors"
)

// Notifier is the publish side of the notification bus.
type Notifier interface {
	Publish(ctx context.Context, envelope notify.Envelope) error
}

// Service sells airtime against wallet balances. Unlike gateway flows the
// biller often answers synchronously, so a delivered purchase settles
// inline; only a processing verdict or a timeout goes through the requery
// poller and the completion worker.
type Service struct {
	store         ledger.Store
	client        Client
	requery       *Requery
	bus           Notifier
	vendorTimeout time.Duration
	logger        *slog.Logger
}

// NewService constructs the airtime service.
func NewService(store ledger.Store, client Client, requery *Requery, bus Notifier, vendorTimeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:         store,
		client:        client,
		requery:       requery,
		bus:           bus,
		vendorTimeout: vendorTimeout,
		logger:        logger,
	}
}

// Services lists the purchasable airtime products.
func (s *Service) Services(ctx context.Context) ([]Product, error) {
	vctx, cancel := context.WithTimeout(ctx, s.vendorTimeout)
	defer cancel()
	return s.client.Services(vctx)
}

// PurchaseInput captures the data needed to buy airtime from a wallet.
type PurchaseInput struct {
	WalletID  string
	ServiceID string
	Phone     string
	Amount    int64
}

// PurchaseOutcome is the synchronous answer to a purchase. A pending
// status means delivery is still being confirmed; the final verdict
// arrives over the notification channel for the reference.
type PurchaseOutcome struct {
	Reference string
	Status    string
	Message   string
	Balance   int64
}

// Purchase opens a PENDING airtime transaction and submits it to the
// biller. The debit applies only on a delivered verdict, inline here or
// later through the worker.
func (s *Service) Purchase(ctx context.Context, input PurchaseInput) (PurchaseOutcome, error) {
	if input.Amount <= 0 {
		return PurchaseOutcome{}, fmt.Errorf("amount must be positive")
	}
	if input.ServiceID == "" || input.Phone == "" {
		return PurchaseOutcome{}, fmt.Errorf("service id and phone are required")
	}

	w, err := s.store.Wallet(ctx, input.WalletID)
	if err != nil {
		return PurchaseOutcome{}, err
	}
	if w.Balance < input.Amount {
		return PurchaseOutcome{}, ledger.ErrInsufficientFunds
	}

	reference := uuid.NewString()
	now := time.Now().UTC()
	if err := s.store.BeginPending(ctx, ledger.Transaction{
		ID:        uuid.NewString(),
		Reference: reference,
		WalletID:  w.ID,
		UserID:    w.UserID,
		Type:      ledger.TypeAirtime,
		Amount:    input.Amount,
		CreatedAt: now,
	}); err != nil {
		return PurchaseOutcome{}, err
	}

	vctx, cancel := context.WithTimeout(ctx, s.vendorTimeout)
	defer cancel()

	result, err := s.client.Purchase(vctx, PurchaseRequest{
		RequestID: reference,
		ServiceID: input.ServiceID,
		Phone:     input.Phone,
		Amount:    input.Amount,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// The biller may have delivered anyway; requery decides.
			s.logger.Warn("purchase timed out, scheduling requery", "reference", reference)
			s.requery.Schedule(reference, reference, input.Amount)
			return PurchaseOutcome{Reference: reference, Status: ledger.StatusPending, Message: "delivery confirmation pending"}, nil
		}
		res, serr := s.store.Settle(ctx, reference, ledger.StatusFailed, 0)
		if serr != nil {
			s.logger.Error("settle after biller rejection failed", "reference", reference, "error", serr)
		} else {
			s.notify(ctx, res, input.Amount, "airtime purchase failed")
		}
		return PurchaseOutcome{Reference: reference, Status: ledger.StatusFailed}, err
	}

	switch result.Status {
	case vendors.StatusSuccess:
		res, err := s.store.Settle(ctx, reference, ledger.StatusSuccess, -input.Amount)
		if err != nil {
			return PurchaseOutcome{}, fmt.Errorf("settle delivered purchase %s: %w", reference, err)
		}
		s.notify(ctx, res, input.Amount, result.Message)
		return PurchaseOutcome{Reference: reference, Status: ledger.StatusSuccess, Message: result.Message, Balance: res.Wallet.Balance}, nil
	case vendors.StatusFailed:
		res, err := s.store.Settle(ctx, reference, ledger.StatusFailed, 0)
		if err != nil {
			return PurchaseOutcome{}, fmt.Errorf("settle rejected purchase %s: %w", reference, err)
		}
		s.notify(ctx, res, input.Amount, result.Message)
		return PurchaseOutcome{Reference: reference, Status: ledger.StatusFailed, Message: result.Message, Balance: res.Wallet.Balance}, nil
	default:
		s.requery.Schedule(reference, reference, input.Amount)
		return PurchaseOutcome{Reference: reference, Status: ledger.StatusPending, Message: result.Message}, nil
	}
}

func (s *Service) notify(ctx context.Context, res ledger.SettleResult, amount int64, message string) {
	envelope := notify.Envelope{
		Room: res.Transaction.Reference,
		Payload: notify.Payload{
			Status:    res.Transaction.Status,
			Message:   message,
			Reference: res.Transaction.Reference,
			Amount:    amount,
			Currency:  res.Wallet.Currency,
			UpdatedAt: time.Now().UTC(),
		},
	}
	if err := s.bus.Publish(ctx, envelope); err != nil {
		s.logger.Warn("notification publish failed", "room", envelope.Room, "error", err)
	}
}
