package notify

import (
	"context"

	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier records deliveries instead of sending them. Used in dev and as
// the fallback when no delivery channel is configured.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "LogNotifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) Send(ctx context.Context, email string, kind adapter.NotificationKind, data map[string]string) error {
	n.log.Info().Str("email", email).Str("kind", string(kind)).Fields(map[string]interface{}{"data": data}).Msg("notification (log only)")
	return nil
}
