package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain/ports/adapter"
	"quiz-payment-engine/internal/domain/ports/repository"
	"quiz-payment-engine/internal/infra/metrics"
	"quiz-payment-engine/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending transactions and
// asks the gateway for their outcome. Anything the gateway reports as paid is
// settled through the same grant path the callback uses, which covers lost
// callbacks and crashes between the entitlement write and its commit.
type PaymentReconciler struct {
	grant      usecase.GrantUseCase
	txns       repository.TransactionRepository
	gateway    adapter.PaymentGateway
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending transaction must be to retry
	log        *zerolog.Logger
}

func NewPaymentReconciler(
	grant usecase.GrantUseCase,
	txns repository.TransactionRepository,
	gateway adapter.PaymentGateway,
	interval, staleAfter time.Duration,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{grant: grant, txns: txns, gateway: gateway, interval: interval, staleAfter: staleAfter, log: &l}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("starting payment reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping payment reconciler")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.txns.ListPendingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending failed")
		return
	}
	for _, t := range pending {
		q, err := w.gateway.QueryOrder(ctx, t.ClientTxnID)
		if err != nil {
			w.log.Warn().Err(err).Str("client_txn_id", t.ClientTxnID).Msg("gateway query failed")
			continue
		}
		switch {
		case q.Paid:
			var gwID *string
			if q.GatewayTxnID != "" {
				gwID = &q.GatewayTxnID
			}
			if _, err := w.grant.Grant(ctx, t.Provider, t.ClientTxnID, gwID, nil, "settled by reconciliation sweep"); err != nil {
				w.log.Error().Err(err).Str("client_txn_id", t.ClientTxnID).Msg("reconcile grant failed")
				continue
			}
			metrics.IncReconciled("paid")
			w.log.Info().Str("client_txn_id", t.ClientTxnID).Msg("reconciled as paid")
		case q.Failed:
			if _, err := w.txns.MarkFailedIfPending(ctx, nil, t.Provider, t.ClientTxnID, q.Message); err != nil {
				w.log.Error().Err(err).Str("client_txn_id", t.ClientTxnID).Msg("reconcile fail-mark failed")
				continue
			}
			metrics.IncReconciled("failed")
			w.log.Info().Str("client_txn_id", t.ClientTxnID).Str("reason", q.Message).Msg("reconciled as failed")
		default:
			metrics.IncReconciled("skipped")
		}
	}
}
