//go:build !integration

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/infra/web"
	"quiz-payment-engine/internal/usecase"
)

type serverOpts struct {
	order    *mockOrderUC
	callback *mockCallbackUC
	status   *mockStatusUC
	stats    *mockStatsUC
	apiKey   string
	dev      bool
}

func newTestServer(o serverOpts) http.Handler {
	if o.order == nil {
		o.order = &mockOrderUC{}
	}
	if o.callback == nil {
		o.callback = &mockCallbackUC{}
	}
	if o.status == nil {
		o.status = &mockStatusUC{}
	}
	if o.stats == nil {
		o.stats = &mockStatsUC{}
	}
	s := web.NewServer(o.order, o.callback, o.status, o.stats, o.apiKey, o.dev, newTestLogger())
	return s.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateOrder(t *testing.T) {
	t.Run("should return 201 with the order payload", func(t *testing.T) {
		h := newTestServer(serverOpts{})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/payment/orders",
			map[string]string{"user_id": "user-1", "plan": "plus"}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			OrderURL    string `json:"order_url"`
			ClientTxnID string `json:"client_txn_id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.OrderURL == "" || resp.ClientTxnID == "" {
			t.Errorf("incomplete response: %+v", resp)
		}
	})

	t.Run("should map domain errors to status codes", func(t *testing.T) {
		cases := []struct {
			err  error
			want int
		}{
			{domain.ErrPlanUnknown, http.StatusBadRequest},
			{domain.ErrNotFound, http.StatusNotFound},
			{fmt.Errorf("%w: connect refused", domain.ErrGatewayUnavailable), http.StatusBadGateway},
			{domain.ErrOperationFailed, http.StatusInternalServerError},
		}
		for _, tc := range cases {
			order := &mockOrderUC{
				InitiateFunc: func(ctx context.Context, userID string, planID model.PlanID) (*usecase.InitiateResult, error) {
					return nil, tc.err
				},
			}
			h := newTestServer(serverOpts{order: order})
			rec := doJSON(t, h, http.MethodPost, "/api/v1/payment/orders",
				map[string]string{"user_id": "user-1", "plan": "basic"}, nil)
			if rec.Code != tc.want {
				t.Errorf("error %v: expected %d, got %d", tc.err, tc.want, rec.Code)
			}
		}
	})

	t.Run("should reject a missing user or plan", func(t *testing.T) {
		h := newTestServer(serverOpts{})
		rec := doJSON(t, h, http.MethodPost, "/api/v1/payment/orders", map[string]string{"plan": "basic"}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleCallback(t *testing.T) {
	t.Run("should always answer 200 with a well-formed ack", func(t *testing.T) {
		acks := []usecase.CallbackAck{
			{ReturnCode: usecase.AckCodeSuccess, ReturnMessage: "success"},
			{ReturnCode: usecase.AckCodeTransient, ReturnMessage: "internal error"},
			{ReturnCode: usecase.AckCodeRejected, ReturnMessage: "mac not equal"},
		}
		for _, want := range acks {
			cb := &mockCallbackUC{
				ProcessFunc: func(ctx context.Context, rawBody []byte) usecase.CallbackAck { return want },
			}
			h := newTestServer(serverOpts{callback: cb})

			rec := doJSON(t, h, http.MethodPost, "/api/v1/payment/callback/zalopay",
				map[string]string{"data": "x", "mac": "y"}, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("gateway ack must be HTTP 200, got %d", rec.Code)
			}
			var got usecase.CallbackAck
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("ack is not valid JSON: %v", err)
			}
			if got != want {
				t.Errorf("ack mismatch: got %+v want %+v", got, want)
			}
		}
	})

	t.Run("should pass the raw body through unmodified", func(t *testing.T) {
		var seen []byte
		cb := &mockCallbackUC{
			ProcessFunc: func(ctx context.Context, rawBody []byte) usecase.CallbackAck {
				seen = rawBody
				return usecase.CallbackAck{ReturnCode: usecase.AckCodeSuccess, ReturnMessage: "success"}
			},
		}
		h := newTestServer(serverOpts{callback: cb})

		raw := []byte(`{"data":"{\"a\":1}","mac":"abc","type":1}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/callback/zalopay", bytes.NewReader(raw))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if !bytes.Equal(seen, raw) {
			t.Errorf("body altered in transit: got %s", seen)
		}
	})
}

func TestHandleStatus(t *testing.T) {
	t.Run("should return the transaction view", func(t *testing.T) {
		gwID := "220004"
		status := &mockStatusUC{
			QueryFunc: func(ctx context.Context, provider, clientTxnID string) (*usecase.StatusView, error) {
				if provider != "zalopay" || clientTxnID != "250901_X" {
					t.Errorf("unexpected lookup: %s/%s", provider, clientTxnID)
				}
				return &usecase.StatusView{Status: model.TxnStatusPaid, Plan: model.PlanPro, Amount: 1390000, GatewayTxnID: &gwID}, nil
			},
		}
		h := newTestServer(serverOpts{status: status})

		rec := doJSON(t, h, http.MethodGet, "/api/v1/payment/status/zalopay/250901_X", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp struct {
			Status string `json:"status"`
			Amount int64  `json:"amount"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Status != "paid" || resp.Amount != 1390000 {
			t.Errorf("unexpected view: %+v", resp)
		}
	})

	t.Run("should return 404 for an unknown transaction", func(t *testing.T) {
		status := &mockStatusUC{
			QueryFunc: func(ctx context.Context, provider, clientTxnID string) (*usecase.StatusView, error) {
				return nil, domain.ErrNotFound
			},
		}
		h := newTestServer(serverOpts{status: status})

		rec := doJSON(t, h, http.MethodGet, "/api/v1/payment/status/zalopay/absent", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestHandleSimulate(t *testing.T) {
	auth := http.Header{"Authorization": []string{"Bearer test-key"}}

	t.Run("should not be routed outside development", func(t *testing.T) {
		h := newTestServer(serverOpts{apiKey: "test-key", dev: false})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/payment/simulate",
			map[string]string{"user_id": "user-1", "client_txn_id": "250901_X"}, auth)
		if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("simulate must be absent in production, got %d", rec.Code)
		}
	})

	t.Run("should require the API key in development", func(t *testing.T) {
		h := newTestServer(serverOpts{apiKey: "test-key", dev: true})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/payment/simulate",
			map[string]string{"user_id": "user-1", "client_txn_id": "250901_X"}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 without a token, got %d", rec.Code)
		}

		rec = doJSON(t, h, http.MethodPost, "/api/v1/payment/simulate",
			map[string]string{"user_id": "user-1", "client_txn_id": "250901_X"}, auth)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 with a valid token, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("should map ownership refusal to 403", func(t *testing.T) {
		cb := &mockCallbackUC{
			SimulateFunc: func(ctx context.Context, userID, clientTxnID string) error {
				return domain.ErrNotOwner
			},
		}
		h := newTestServer(serverOpts{callback: cb, apiKey: "test-key", dev: true})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/payment/simulate",
			map[string]string{"user_id": "user-2", "client_txn_id": "250901_X"}, auth)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})
}

func TestHandleRevenue(t *testing.T) {
	auth := http.Header{"Authorization": []string{"Bearer admin-key"}}

	t.Run("should require authentication", func(t *testing.T) {
		h := newTestServer(serverOpts{apiKey: "admin-key"})
		rec := doJSON(t, h, http.MethodGet, "/api/v1/admin/revenue", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}

		bad := http.Header{"Authorization": []string{"Bearer wrong"}}
		rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/revenue", nil, bad)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403 for a wrong key, got %d", rec.Code)
		}
	})

	t.Run("should return the revenue totals", func(t *testing.T) {
		stats := &mockStatsUC{
			RevenueFunc: func(ctx context.Context) (int64, int64, int64, error) {
				return 29000, 178000, 1568000, nil
			},
		}
		h := newTestServer(serverOpts{stats: stats, apiKey: "admin-key"})

		rec := doJSON(t, h, http.MethodGet, "/api/v1/admin/revenue", nil, auth)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp struct {
			Week  int64 `json:"week"`
			Month int64 `json:"month"`
			Year  int64 `json:"year"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Week != 29000 || resp.Month != 178000 || resp.Year != 1568000 {
			t.Errorf("unexpected totals: %+v", resp)
		}
	})
}

func TestHealth(t *testing.T) {
	h := newTestServer(serverOpts{})
	rec := doJSON(t, h, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
