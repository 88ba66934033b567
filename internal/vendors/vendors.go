// Package vendors defines the normalized shape of external payment and
// airtime vendor results. Vendor clients translate their wire formats
// into these types at the boundary so the rest of the system never sees
// a raw vendor payload.
package vendors

import "fmt"

// Status is the normalized verdict a vendor reports for a transaction.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusPending means the vendor has not reached a verdict yet. It is
	// never applied to the ledger; the transaction stays PENDING until a
	// later callback or requery resolves it.
	StatusPending Status = "pending"
)

// Valid reports whether s is one of the recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusPending:
		return true
	}
	return false
}

// Terminal reports whether s ends a transaction's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Vendor identifiers used for dispatching outcomes to the right resolver.
const (
	Gateway = "gateway"
	Airtime = "airtime"
)

// Outcome is a normalized vendor result correlated to a transaction
// reference. Amount is in minor units and reflects what the vendor
// reports, which for funding may differ from the requested amount.
type Outcome struct {
	Vendor          string
	Reference       string
	VendorRequestID string
	Status          Status
	Amount          int64
	Message         string
}

// Error represents a normalized failure returned by a vendor call.
type Error struct {
	Vendor  string
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Vendor, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Vendor, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
