package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const txnColumns = `provider, client_txn_id, gateway_txn_id, user_id, plan, amount, status, raw_order_payload, callback_payload, message, created_at, updated_at`

func (r *transactionRepo) Create(ctx context.Context, tx repository.Tx, t *model.Transaction) (bool, error) {
	const q = `
INSERT INTO transactions (` + txnColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (provider, client_txn_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		t.Provider, t.ClientTxnID, t.GatewayTxnID, t.UserID, t.Plan, t.Amount, t.Status,
		t.RawOrderPayload, t.CallbackPayload, t.Message, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *transactionRepo) Find(ctx context.Context, tx repository.Tx, provider, clientTxnID string) (*model.Transaction, error) {
	q := `SELECT ` + txnColumns + ` FROM transactions WHERE provider=$1 AND client_txn_id=$2`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, provider, clientTxnID)
	if err != nil {
		return nil, err
	}

	t := &model.Transaction{}
	if err := row.Scan(&t.Provider, &t.ClientTxnID, &t.GatewayTxnID, &t.UserID, &t.Plan, &t.Amount, &t.Status,
		&t.RawOrderPayload, &t.CallbackPayload, &t.Message, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

// MarkPaidIfPending is the single-winner compare-and-set: the WHERE clause
// arbitrates concurrent settlers at the storage layer, across processes.
// callback_payload is write-once; a later winner never overwrites it.
func (r *transactionRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, provider, clientTxnID string, gatewayTxnID *string, callbackPayload []byte, message string) (bool, error) {
	const q = `
UPDATE transactions
   SET status = 'paid',
       gateway_txn_id = COALESCE($3, gateway_txn_id),
       callback_payload = COALESCE(callback_payload, $4),
       message = $5,
       updated_at = NOW()
 WHERE provider = $1
   AND client_txn_id = $2
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, provider, clientTxnID, gatewayTxnID, callbackPayload, message)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, provider, clientTxnID, message string) (bool, error) {
	const q = `
UPDATE transactions
   SET status = 'failed',
       message = $3,
       updated_at = NOW()
 WHERE provider = $1
   AND client_txn_id = $2
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, provider, clientTxnID, message)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + txnColumns + ` FROM transactions WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t := new(model.Transaction)
		if err := rows.Scan(&t.Provider, &t.ClientTxnID, &t.GatewayTxnID, &t.UserID, &t.Plan, &t.Amount, &t.Status,
			&t.RawOrderPayload, &t.CallbackPayload, &t.Message, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *transactionRepo) SumPaidByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM transactions WHERE status='paid' AND updated_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}

	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
