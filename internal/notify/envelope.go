package notify

import "time"

// Payload is the observer-facing body of a status update.
type Payload struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Reference string    `json:"tx_ref"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Envelope is one state-change notification in transit. Room is the
// transaction reference whose observers should receive the payload.
// Envelopes are ephemeral: never persisted, never replayed.
type Envelope struct {
	Room    string  `json:"room"`
	Payload Payload `json:"payload"`
}
