package repository

import (
	"context"
	"time"

	"quiz-payment-engine/internal/domain/model"
)

// TransactionRepository is the ledger: one durable record per
// (provider, client transaction id), the single source of truth for
// payment status.
type TransactionRepository interface {
	// Create inserts a new transaction. It reports false without error when
	// a record with the same (provider, clientTxnID) already exists, so
	// concurrent recovery inserts collapse into one row.
	Create(ctx context.Context, tx Tx, t *model.Transaction) (bool, error)

	// Find returns the transaction for the idempotency key, or ErrNotFound.
	// Inside a database transaction the row is locked FOR UPDATE.
	Find(ctx context.Context, tx Tx, provider, clientTxnID string) (*model.Transaction, error)

	// MarkPaidIfPending atomically transitions pending -> paid. It reports
	// whether this caller won the transition; a false result means the
	// record was no longer pending (already paid or failed).
	MarkPaidIfPending(ctx context.Context, tx Tx, provider, clientTxnID string, gatewayTxnID *string, callbackPayload []byte, message string) (bool, error)

	// MarkFailedIfPending atomically transitions pending -> failed.
	MarkFailedIfPending(ctx context.Context, tx Tx, provider, clientTxnID, message string) (bool, error)

	// ListPendingOlderThan returns stale pending transactions for the
	// reconciliation sweep.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)

	// SumPaidByPeriod totals paid amounts since the start of the given
	// period ("week", "month", "year").
	SumPaidByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}
