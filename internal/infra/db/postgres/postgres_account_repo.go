package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const acctColumns = `id, email, display_name, remaining_attempts, total_purchased_attempts, membership_level, membership_expires_at, total_purchased_ms, created_at, updated_at`

func (r *accountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (` + acctColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  email=$2, display_name=$3, remaining_attempts=$4, total_purchased_attempts=$5,
  membership_level=$6, membership_expires_at=$7, total_purchased_ms=$8, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.Email, a.DisplayName, a.RemainingAttempts, a.TotalPurchasedAttempts,
		a.MembershipLevel, a.MembershipExpiresAt, a.TotalPurchasedMs, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	q := `SELECT ` + acctColumns + ` FROM accounts WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	a := &model.Account{}
	if err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.RemainingAttempts, &a.TotalPurchasedAttempts,
		&a.MembershipLevel, &a.MembershipExpiresAt, &a.TotalPurchasedMs, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}
