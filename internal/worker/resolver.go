package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/padi-pay/padi_pay/internal/gateway"
	"github.com/padi-pay/padi_pay/internal/ledger"
	"github.com/padi-pay/padi_pay/internal/notify"
	"github.com/padi-pay/padi_pay/internal/vendors"
)

// Notifier is the publish side of the notification bus.
type Notifier interface {
	Publish(ctx context.Context, envelope notify.Envelope) error
}

// Resolver drives transaction state transitions from normalized vendor
// outcomes. It is the single writer of terminal statuses on the async
// path; the conditional update inside Settle serializes it against any
// racing caller.
type Resolver struct {
	store   ledger.Store
	gateway gateway.Client
	bus     Notifier
	logger  *slog.Logger
}

// NewResolver constructs a resolver.
func NewResolver(store ledger.Store, gw gateway.Client, bus Notifier, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, gateway: gw, bus: bus, logger: logger}
}

// Resolve applies the outcome to the referenced transaction. A PENDING
// outcome is a no-op: it is not a verdict. ErrAlreadySettled from the
// store is duplicate suppression, logged and swallowed. Any other error
// is returned for redelivery.
func (r *Resolver) Resolve(ctx context.Context, outcome vendors.Outcome) error {
	if !outcome.Status.Terminal() {
		r.logger.Info("non-terminal outcome ignored", "reference", outcome.Reference, "status", string(outcome.Status))
		return nil
	}

	tx, err := r.store.Transaction(ctx, outcome.Reference)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", outcome.Reference, err)
	}
	if tx.Status != ledger.StatusPending {
		r.logger.Info("duplicate transition suppressed", "reference", outcome.Reference, "status", tx.Status)
		return nil
	}

	if outcome.VendorRequestID != "" && tx.VendorRequestID == "" {
		if err := r.store.SetVendorRequestID(ctx, tx.Reference, outcome.VendorRequestID); err != nil {
			r.logger.Warn("record vendor request id", "reference", tx.Reference, "error", err)
		}
	}

	status, delta, amount, err := r.plan(ctx, tx, outcome)
	if err != nil {
		return err
	}

	res, err := r.store.Settle(ctx, tx.Reference, status, delta)
	if errors.Is(err, ledger.ErrAlreadySettled) {
		r.logger.Info("duplicate transition suppressed", "reference", tx.Reference)
		return nil
	}
	if err != nil {
		return fmt.Errorf("settle %s: %w", tx.Reference, err)
	}

	r.notify(ctx, res, amount, outcome.Message)
	return nil
}

// plan maps (transaction type, outcome status) to the terminal status and
// balance delta. Funding success is re-verified against the gateway's own
// record before any credit; the verified amount wins over the webhook's.
func (r *Resolver) plan(ctx context.Context, tx ledger.Transaction, outcome vendors.Outcome) (status string, delta, amount int64, err error) {
	if outcome.Status == vendors.StatusFailed {
		return ledger.StatusFailed, 0, tx.Amount, nil
	}

	switch tx.Type {
	case ledger.TypeFund:
		verification, err := r.gateway.Verify(ctx, tx.Reference)
		if err != nil {
			return "", 0, 0, fmt.Errorf("verify %s: %w", tx.Reference, err)
		}
		if verification.Status != vendors.StatusSuccess || verification.Amount < tx.Amount {
			return "", 0, 0, fmt.Errorf("verification mismatch for %s: status=%s amount=%d want>=%d",
				tx.Reference, verification.Status, verification.Amount, tx.Amount)
		}
		return ledger.StatusSuccess, verification.Amount, verification.Amount, nil
	case ledger.TypeWithdraw, ledger.TypeAirtime:
		return ledger.StatusSuccess, -tx.Amount, tx.Amount, nil
	default:
		return "", 0, 0, fmt.Errorf("unknown transaction type %q for %s", tx.Type, tx.Reference)
	}
}

func (r *Resolver) notify(ctx context.Context, res ledger.SettleResult, amount int64, message string) {
	if message == "" {
		message = transitionMessage(res.Transaction)
	}
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
	if err := r.bus.Publish(ctx, envelope); err != nil {
		// Best effort: a missed notification never blocks settlement.
		r.logger.Warn("notification publish failed", "room", envelope.Room, "error", err)
	}
}

func transitionMessage(tx ledger.Transaction) string {
	switch {
	case tx.Type == ledger.TypeFund && tx.Status == ledger.StatusSuccess:
		return "Wallet funded successfully."
	case tx.Type == ledger.TypeFund:
		return "Payment failed or cancelled."
	case tx.Type == ledger.TypeWithdraw && tx.Status == ledger.StatusSuccess:
		return "Transfer successful."
	case tx.Type == ledger.TypeWithdraw:
		return "Transfer failed or cancelled."
	case tx.Type == ledger.TypeAirtime && tx.Status == ledger.StatusSuccess:
		return "Airtime delivered."
	default:
		return "Airtime purchase failed."
	}
}
