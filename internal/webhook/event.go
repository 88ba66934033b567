package webhook

import (
	"encoding/json"

	"github.com/padi-pay/padi_pay/internal/vendors"
)

// Event is the queue message carrying a normalized vendor outcome from
// the webhook boundary to the completion worker. RawPayload preserves the
// vendor's original body for dead-letter inspection.
type Event struct {
	EventID         string          `json:"event_id"`
	Vendor          string          `json:"vendor"`
	Reference       string          `json:"reference"`
	VendorRequestID string          `json:"vendor_request_id,omitempty"`
	Status          vendors.Status   `json:"status"`
	Amount          int64           `json:"amount"`
	Message         string          `json:"message,omitempty"`
	RawPayload      json.RawMessage `json:"raw_payload,omitempty"`
}

// FromOutcome builds an Event from a normalized outcome and its
// delivery-unique event id.
func FromOutcome(o vendors.Outcome, eventID string, raw []byte) Event {
	return Event{
		EventID:         eventID,
		Vendor:          o.Vendor,
		Reference:       o.Reference,
		VendorRequestID: o.VendorRequestID,
		Status:          o.Status,
		Amount:          o.Amount,
		Message:         o.Message,
		RawPayload:      raw,
	}
}

// Outcome converts the event back to the normalized vendor outcome shape.
func (e Event) Outcome() vendors.Outcome {
	return vendors.Outcome{
		Vendor:          e.Vendor,
		Reference:       e.Reference,
		VendorRequestID: e.VendorRequestID,
		Status:          e.Status,
		Amount:          e.Amount,
		Message:         e.Message,
	}
}
