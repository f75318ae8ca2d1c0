package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"quiz-payment-engine/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts notifications to the platform's mail service, which
// owns rendering and delivery.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

func (n *WebhookNotifier) Send(ctx context.Context, email string, kind adapter.NotificationKind, data map[string]string) error {
	body, err := json.Marshal(map[string]interface{}{
		"email": email,
		"kind":  kind,
		"data":  data,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify http %d", resp.StatusCode)
	}
	return nil
}
