package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain/ports/adapter"
	"quiz-payment-engine/internal/infra/worker"
)

var _ adapter.Notifier = (*Async)(nil)

// Async decouples notification dispatch from the caller: Send enqueues the
// delivery on the worker pool and returns immediately, so a slow or failing
// mail channel can never block or fail the payment flow.
type Async struct {
	pool  *worker.Pool
	inner adapter.Notifier
	log   *zerolog.Logger
}

func NewAsync(pool *worker.Pool, inner adapter.Notifier, logger *zerolog.Logger) *Async {
	l := logger.With().Str("component", "AsyncNotifier").Logger()
	return &Async{pool: pool, inner: inner, log: &l}
}

func (a *Async) Send(_ context.Context, email string, kind adapter.NotificationKind, data map[string]string) error {
	err := a.pool.Submit(func(ctx context.Context) error {
		// Detach from the request context; the caller has already returned.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return a.inner.Send(sendCtx, email, kind, data)
	})
	if err != nil {
		a.log.Warn().Err(err).Str("email", email).Msg("notification dropped")
	}
	// Dispatch failures are log-only.
	return nil
}
