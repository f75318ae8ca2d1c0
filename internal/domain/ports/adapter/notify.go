package adapter

import "context"

type NotificationKind string

const (
	NotifyPaymentReceipt NotificationKind = "payment_receipt"
)

// Notifier is the fire-and-forget outbound notification collaborator.
// Implementations must never let a delivery failure affect payment flow;
// callers treat errors as log-only.
type Notifier interface {
	Send(ctx context.Context, email string, kind NotificationKind, data map[string]string) error
}
