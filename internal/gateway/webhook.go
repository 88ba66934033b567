package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/padi-pay/padi_pay/internal/vendors"
)

// The gateway delivers two webhook families: charge events for inbound
// payments (funding) and transfer events for outbound payouts
// (withdrawals). Both are flattened here into a vendors.Outcome; nothing
// past this function sees the gateway's wire shapes.

type chargeEvent struct {
	EventType string `json:"event.type"`
	ID        int64  `json:"id"`
	TxRef     string `json:"txRef"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

type transferEvent struct {
	EventType string `json:"event.type"`
	Data      struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Message   string `json:"complete_message"`
	} `json:"data"`
}

// ParseWebhook normalizes a raw gateway webhook payload. The returned
// event id is the vendor's delivery-unique identifier used for
// deduplication.
func ParseWebhook(raw []byte) (outcome vendors.Outcome, eventID string, err error) {
	var probe struct {
		EventType string `json:"event.type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return vendors.Outcome{}, "", fmt.Errorf("decode webhook: %w", err)
	}

	switch {
	case probe.EventType == "Transfer":
		var ev transferEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return vendors.Outcome{}, "", fmt.Errorf("decode transfer event: %w", err)
		}
		if ev.Data.Reference == "" || ev.Data.ID == 0 {
			return vendors.Outcome{}, "", fmt.Errorf("transfer event missing reference or id")
		}
		return vendors.Outcome{
			Vendor:          vendors.Gateway,
			Reference:       ev.Data.Reference,
			VendorRequestID: fmt.Sprintf("%d", ev.Data.ID),
			Status:          normalizeStatus(ev.Data.Status),
			Amount:          ev.Data.Amount,
			Message:         ev.Data.Message,
		}, fmt.Sprintf("transfer-%d", ev.Data.ID), nil

	case strings.HasSuffix(probe.EventType, "_TRANSACTION"):
		var ev chargeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return vendors.Outcome{}, "", fmt.Errorf("decode charge event: %w", err)
		}
		if ev.TxRef == "" || ev.ID == 0 {
			return vendors.Outcome{}, "", fmt.Errorf("charge event missing txRef or id")
		}
		return vendors.Outcome{
			Vendor:          vendors.Gateway,
			Reference:       ev.TxRef,
			VendorRequestID: fmt.Sprintf("%d", ev.ID),
			Status:          normalizeStatus(ev.Status),
			Amount:          ev.Amount,
		}, fmt.Sprintf("charge-%d", ev.ID), nil

	default:
		return vendors.Outcome{}, "", fmt.Errorf("unsupported event type %q", probe.EventType)
	}
}
