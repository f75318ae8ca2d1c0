package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	// Revenue returns paid totals for the current week, month and year.
	Revenue(ctx context.Context) (week, month, year int64, err error)
}

type statsUC struct {
	txns repository.TransactionRepository
	log  *zerolog.Logger
}

func NewStatsUseCase(txns repository.TransactionRepository, logger *zerolog.Logger) *statsUC {
	l := logger.With().Str("component", "StatsUC").Logger()
	return &statsUC{txns: txns, log: &l}
}

func (u *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	week, err := u.txns.SumPaidByPeriod(ctx, nil, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	month, err := u.txns.SumPaidByPeriod(ctx, nil, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	year, err := u.txns.SumPaidByPeriod(ctx, nil, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return week, month, year, nil
}
