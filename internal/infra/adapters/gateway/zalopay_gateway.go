package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/ports/adapter"
	"quiz-payment-engine/internal/infra/metrics"
	"quiz-payment-engine/internal/infra/signing"
)

var _ adapter.PaymentGateway = (*ZaloPayGateway)(nil)

// ZaloPayGateway implements adapter.PaymentGateway against the ZaloPay v2
// REST endpoints. The canonical order string is signed with the order secret
// (key1); callback verification uses a separate signer and is not this
// adapter's concern.
type ZaloPayGateway struct {
	appID       string
	signer      *signing.Signer // order secret (key1)
	endpoint    string
	callbackURL string
	redirectURL string
	client      *http.Client
}

func NewZaloPayGateway(appID string, orderSigner *signing.Signer, endpoint, callbackURL, redirectURL string, timeout time.Duration) (*ZaloPayGateway, error) {
	if appID == "" {
		return nil, errors.New("app id empty")
	}
	if orderSigner == nil {
		return nil, errors.New("order signer required")
	}
	if _, err := url.Parse(callbackURL); err != nil {
		return nil, fmt.Errorf("invalid callback url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ZaloPayGateway{
		appID:       appID,
		signer:      orderSigner,
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		callbackURL: callbackURL,
		redirectURL: redirectURL,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (z *ZaloPayGateway) Name() string { return "zalopay" }

// CreateOrder registers the order via /v2/create and returns the redirect
// URL and QR payload. The MAC covers the canonical field order the provider
// dictates: app_id|app_trans_id|app_user|amount|app_time|embed_data|item.
func (z *ZaloPayGateway) CreateOrder(ctx context.Context, ord adapter.OrderRequest) (adapter.CreateOrderResult, error) {
	canonical := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s",
		z.appID, ord.ClientTxnID, ord.UserID, ord.Amount, ord.AppTimeMs, ord.EmbedData, ord.Item)
	mac := z.signer.Sign([]byte(canonical))

	form := url.Values{}
	form.Set("app_id", z.appID)
	form.Set("app_trans_id", ord.ClientTxnID)
	form.Set("app_user", ord.UserID)
	form.Set("app_time", fmt.Sprintf("%d", ord.AppTimeMs))
	form.Set("amount", fmt.Sprintf("%d", ord.Amount))
	form.Set("item", ord.Item)
	form.Set("embed_data", ord.EmbedData)
	form.Set("description", ord.Description)
	form.Set("callback_url", z.callbackURL)
	if z.redirectURL != "" {
		form.Set("redirect_url", z.redirectURL)
	}
	form.Set("mac", mac)

	var out struct {
		ReturnCode    int    `json:"return_code"`
		ReturnMessage string `json:"return_message"`
		OrderURL      string `json:"order_url"`
		QRCode        string `json:"qr_code"`
		ZpTransToken  string `json:"zp_trans_token"`
	}
	if err := z.postForm(ctx, "/v2/create", form, &out); err != nil {
		return adapter.CreateOrderResult{}, err
	}
	if out.ReturnCode != 1 {
		return adapter.CreateOrderResult{}, fmt.Errorf("%w: create order code=%d msg=%s", domain.ErrGatewayUnavailable, out.ReturnCode, out.ReturnMessage)
	}
	return adapter.CreateOrderResult{
		OrderURL:     out.OrderURL,
		QRCode:       out.QRCode,
		GatewayToken: out.ZpTransToken,
	}, nil
}

// QueryOrder asks /v2/query for the current outcome of an order.
// MAC = HMAC(key1, app_id|app_trans_id|key1) per the provider contract; the
// signer owns the key and appends the trailing component itself.
func (z *ZaloPayGateway) QueryOrder(ctx context.Context, clientTxnID string) (adapter.OrderQueryResult, error) {
	canonical := fmt.Sprintf("%s|%s", z.appID, clientTxnID)
	mac := z.signer.SignWithKeySuffix([]byte(canonical))

	form := url.Values{}
	form.Set("app_id", z.appID)
	form.Set("app_trans_id", clientTxnID)
	form.Set("mac", mac)

	var out struct {
		ReturnCode    int    `json:"return_code"`
		ReturnMessage string `json:"return_message"`
		IsProcessing  bool   `json:"is_processing"`
		Amount        int64  `json:"amount"`
		ZpTransID     int64  `json:"zp_trans_id"`
	}
	if err := z.postForm(ctx, "/v2/query", form, &out); err != nil {
		return adapter.OrderQueryResult{}, err
	}
	// return_code: 1 paid, 2 failed, 3 still processing.
	res := adapter.OrderQueryResult{
		Paid:    out.ReturnCode == 1 && !out.IsProcessing,
		Failed:  out.ReturnCode == 2,
		Amount:  out.Amount,
		Message: out.ReturnMessage,
	}
	if out.ZpTransID != 0 {
		res.GatewayTxnID = fmt.Sprintf("%d", out.ZpTransID)
	}
	return res, nil
}

// postForm sends one urlencoded POST with bounded retry on transport errors.
// HTTP-level failures are retried; a decoded provider response is final.
func (z *ZaloPayGateway) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	op := strings.TrimPrefix(path, "/v2/")
	start := time.Now()

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.endpoint+path, strings.NewReader(form.Encode()))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := z.client.Do(req)
		if err != nil {
			return err // retryable transport failure
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("gateway http %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("gateway http %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode gateway response: %w", err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	err := backoff.Retry(attempt, bo)
	metrics.ObserveGatewayCall(op, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	return nil
}
