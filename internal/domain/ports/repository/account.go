package repository

import (
	"context"

	"quiz-payment-engine/internal/domain/model"
)

// AccountRepository stores user accounts and their entitlement fields.
// Entitlement mutation happens only through the grant use case.
type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
}
