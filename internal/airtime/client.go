package airtime

import (
	"context"

	"github.com/padi-pay/padi_pay/internal/vendors"
)

// Product is one purchasable airtime service.
type Product struct {
	ServiceID string `json:"service_id"`
	Name      string `json:"name"`
	MinAmount int64  `json:"min_amount"`
	MaxAmount int64  `json:"max_amount"`
}

// PurchaseRequest captures the data the biller needs to deliver airtime.
type PurchaseRequest struct {
	RequestID string
	ServiceID string
	Phone     string
	Amount    int64
}

// PurchaseResult is the biller's answer to a purchase or requery. A
// pending status means the biller has not concluded delivery yet and the
// request must be requeried.
type PurchaseResult struct {
	RequestID string
	Status    vendors.Status
	Message   string
}

// Client is the airtime biller connector.
type Client interface {
	Services(ctx context.Context) ([]Product, error)
	Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
	Requery(ctx context.Context, requestID string) (PurchaseResult, error)
}

// Static simulates a biller with a fixed verdict. Used in tests and local
// development without vendor credentials.
type Static struct {
	// Verdict is returned from Purchase; success when empty.
	Verdict vendors.Status
	// RequeryVerdict is returned from Requery; success when empty.
	RequeryVerdict vendors.Status
}

func (s Static) Services(context.Context) ([]Product, error) {
	return []Product{
		{ServiceID: "mtn", Name: "MTN Airtime VTU", MinAmount: 5_000, MaxAmount: 10_000_000},
		{ServiceID: "glo", Name: "GLO Airtime VTU", MinAmount: 5_000, MaxAmount: 10_000_000},
		{ServiceID: "airtel", Name: "Airtel Airtime VTU", MinAmount: 5_000, MaxAmount: 10_000_000},
		{ServiceID: "etisalat", Name: "9mobile Airtime VTU", MinAmount: 5_000, MaxAmount: 10_000_000},
	}, nil
}

func (s Static) Purchase(_ context.Context, req PurchaseRequest) (PurchaseResult, error) {
	status := s.Verdict
	if status == "" {
		status = vendors.StatusSuccess
	}
	return PurchaseResult{RequestID: req.RequestID, Status: status, Message: "simulated"}, nil
}

func (s Static) Requery(_ context.Context, requestID string) (PurchaseResult, error) {
	status := s.RequeryVerdict
	if status == "" {
		status = vendors.StatusSuccess
	}
	return PurchaseResult{RequestID: requestID, Status: status, Message: "simulated"}, nil
}
