package repository

import (
	"context"
	"time"

	"quiz-payment-engine/internal/domain/model"
)

// StatusEntry is the cached projection of a transaction's last known state.
type StatusEntry struct {
	Status       model.TxnStatus `json:"status"`
	Plan         model.PlanID    `json:"plan"`
	Amount       int64           `json:"amount"`
	GatewayTxnID *string         `json:"gateway_txn_id,omitempty"`
	Message      string          `json:"message,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// StatusCache is a disposable read-through projection of the ledger. It is
// never consulted for correctness decisions; any entry must be re-derivable
// from the ledger.
type StatusCache interface {
	// Get returns the cached entry or ErrNotFound on miss.
	Get(ctx context.Context, provider, clientTxnID string) (*StatusEntry, error)
	// Put overwrites the entry; errors are best-effort for callers.
	Put(ctx context.Context, provider, clientTxnID string, e *StatusEntry) error
}
