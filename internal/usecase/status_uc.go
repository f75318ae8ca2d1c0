package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/domain/ports/repository"
	"quiz-payment-engine/internal/infra/metrics"
)

// Compile-time check
var _ StatusUseCase = (*statusUC)(nil)

type StatusView struct {
	Status       model.TxnStatus
	Plan         model.PlanID
	Amount       int64
	GatewayTxnID *string
	Message      string
	UpdatedAt    time.Time
}

// StatusUseCase serves client polling. The cache is a pure read
// optimization; the ledger is authoritative on any discrepancy.
type StatusUseCase interface {
	Query(ctx context.Context, provider, clientTxnID string) (*StatusView, error)
}

type statusUC struct {
	txns  repository.TransactionRepository
	cache repository.StatusCache
	log   *zerolog.Logger
}

func NewStatusUseCase(txns repository.TransactionRepository, cache repository.StatusCache, logger *zerolog.Logger) *statusUC {
	l := logger.With().Str("component", "StatusUC").Logger()
	return &statusUC{txns: txns, cache: cache, log: &l}
}

func (u *statusUC) Query(ctx context.Context, provider, clientTxnID string) (*StatusView, error) {
	if provider == "" || clientTxnID == "" {
		return nil, domain.ErrInvalidArgument
	}

	// Terminal cached entries can never change, so they are served directly.
	// A cached pending entry may be stale relative to the ledger and is
	// re-read.
	if e, err := u.cache.Get(ctx, provider, clientTxnID); err == nil && e.Status.Terminal() {
		metrics.IncCacheRequest("txn_status", "hit")
		return viewFromEntry(e), nil
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Err(err).Msg("status cache read failed; falling back to ledger")
	}
	metrics.IncCacheRequest("txn_status", "miss")

	t, err := u.txns.Find(ctx, nil, provider, clientTxnID)
	if err != nil {
		return nil, err
	}
	entry := &repository.StatusEntry{
		Status:       t.Status,
		Plan:         t.Plan,
		Amount:       t.Amount,
		GatewayTxnID: t.GatewayTxnID,
		Message:      t.Message,
		UpdatedAt:    t.UpdatedAt,
	}
	_ = u.cache.Put(ctx, provider, clientTxnID, entry)
	return viewFromEntry(entry), nil
}

func viewFromEntry(e *repository.StatusEntry) *StatusView {
	return &StatusView{
		Status:       e.Status,
		Plan:         e.Plan,
		Amount:       e.Amount,
		GatewayTxnID: e.GatewayTxnID,
		Message:      e.Message,
		UpdatedAt:    e.UpdatedAt,
	}
}
