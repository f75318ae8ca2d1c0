package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager provides a thin abstraction to execute a function within
// a database transaction, passing the underlying transaction handle via `tx`.
//
// Keeps use-case interfaces clean (no driver types leaking out) while letting
// repository methods that accept a Tx detect a live transaction and run
// SELECT ... FOR UPDATE / tx-bound Exec as needed. Repositories MUST
// gracefully accept a nil Tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
