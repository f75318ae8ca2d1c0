package model

import "time"

type TxnStatus string

const (
	TxnStatusPending TxnStatus = "pending" // order persisted; awaiting gateway outcome
	TxnStatusPaid    TxnStatus = "paid"    // entitlement granted; terminal
	TxnStatusFailed  TxnStatus = "failed"  // gateway reported terminal failure; terminal
)

// Terminal reports whether the status may never change again.
func (s TxnStatus) Terminal() bool {
	return s == TxnStatusPaid || s == TxnStatusFailed
}

// Transaction records one payment attempt. The pair (Provider, ClientTxnID)
// is the idempotency key for the whole subsystem: every duplicate or racing
// operation is deduplicated against it.
type Transaction struct {
	Provider     string // e.g. "zalopay"
	ClientTxnID  string // our generated id, date-prefixed
	GatewayTxnID *string
	UserID       string // UUID of the owning account
	Plan         PlanID
	Amount       int64 // VND; must equal the plan price at creation
	Status       TxnStatus
	// Captured payloads for audit/debug; write-once per stage.
	RawOrderPayload []byte
	CallbackPayload []byte
	Message         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
