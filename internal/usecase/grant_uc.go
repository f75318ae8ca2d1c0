package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/domain/ports/adapter"
	"quiz-payment-engine/internal/domain/ports/repository"
	"quiz-payment-engine/internal/infra/metrics"
)

// Compile-time check
var _ GrantUseCase = (*grantUC)(nil)

// GrantResult reports the transaction after the grant attempt and whether
// this call was the one that applied the credit.
type GrantResult struct {
	Txn     *model.Transaction
	Granted bool
}

// GrantUseCase is the single authoritative pending -> paid transition. Every
// path that settles a payment (gateway callback, reconciliation sweep,
// simulation) funnels through Grant.
type GrantUseCase interface {
	Grant(ctx context.Context, provider, clientTxnID string, gatewayTxnID *string, callbackPayload []byte, message string) (*GrantResult, error)
}

type grantUC struct {
	txns     repository.TransactionRepository
	accounts repository.AccountRepository
	cache    repository.StatusCache
	notifier adapter.Notifier
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewGrantUseCase(
	txns repository.TransactionRepository,
	accounts repository.AccountRepository,
	cache repository.StatusCache,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *grantUC {
	l := logger.With().Str("component", "GrantUC").Logger()
	return &grantUC{txns: txns, accounts: accounts, cache: cache, notifier: notifier, tm: tm, log: &l}
}

// Grant settles one transaction exactly once. The status check and the write
// to paid are a single conditional UPDATE; the entitlement write commits in
// the same database transaction, so a paid record always implies an applied
// credit. Losing the conditional update is not an error: the winner already
// credited the account and the loser reports success without re-crediting.
func (u *grantUC) Grant(ctx context.Context, provider, clientTxnID string, gatewayTxnID *string, callbackPayload []byte, message string) (*GrantResult, error) {
	var out GrantResult
	var acct *model.Account
	var plan model.Plan

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		t, err := u.txns.Find(ctx, tx, provider, clientTxnID)
		if err != nil {
			return err
		}
		out.Txn = t
		if t.Status.Terminal() {
			return nil // already processed
		}

		won, err := u.txns.MarkPaidIfPending(ctx, tx, provider, clientTxnID, gatewayTxnID, callbackPayload, message)
		if err != nil {
			return err
		}
		if !won {
			return nil // lost the race to a concurrent settler
		}

		plan, err = model.PlanByID(t.Plan)
		if err != nil {
			return err
		}
		acct, err = u.accounts.FindByID(ctx, tx, t.UserID)
		if err != nil {
			return err
		}
		now := time.Now()
		acct.ApplyGrant(plan, now)
		if err := u.accounts.Save(ctx, tx, acct); err != nil {
			return err
		}

		t.Status = model.TxnStatusPaid
		t.GatewayTxnID = gatewayTxnID
		t.CallbackPayload = callbackPayload
		t.Message = message
		t.UpdatedAt = now
		out.Granted = true
		return nil
	})
	if err != nil {
		metrics.IncGrant("error")
		return nil, err
	}

	_ = u.cache.Put(ctx, provider, clientTxnID, &repository.StatusEntry{
		Status:       out.Txn.Status,
		Plan:         out.Txn.Plan,
		Amount:       out.Txn.Amount,
		GatewayTxnID: out.Txn.GatewayTxnID,
		Message:      out.Txn.Message,
		UpdatedAt:    out.Txn.UpdatedAt,
	})

	if !out.Granted {
		metrics.IncGrant("duplicate")
		u.log.Debug().Str("client_txn_id", clientTxnID).Str("status", string(out.Txn.Status)).Msg("grant skipped; already settled")
		return &out, nil
	}

	metrics.IncGrant("granted")
	u.log.Info().
		Str("client_txn_id", clientTxnID).
		Str("plan", string(plan.ID)).
		Int("attempts", plan.Attempts).
		Str("user_id", acct.ID).
		Msg("entitlement granted")

	// Best-effort receipt; a delivery failure must never surface to the payer
	// flow or unwind the grant.
	if err := u.notifier.Send(ctx, acct.Email, adapter.NotifyPaymentReceipt, map[string]string{
		"client_txn_id": clientTxnID,
		"plan":          string(plan.ID),
		"amount":        formatAmount(out.Txn.Amount),
	}); err != nil {
		u.log.Warn().Err(err).Str("client_txn_id", clientTxnID).Msg("receipt notification failed")
	}
	return &out, nil
}

func formatAmount(v int64) string { return strconv.FormatInt(v, 10) }
