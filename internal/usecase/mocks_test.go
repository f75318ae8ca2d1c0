//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/domain/ports/adapter"
	"quiz-payment-engine/internal/domain/ports/repository"
)

var errUnavailable = errors.New("backend unavailable")

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func txnKey(provider, clientTxnID string) string { return provider + "|" + clientTxnID }

// memTxnRepo is a small in-memory ledger used by unit tests. The mutex makes
// MarkPaidIfPending a genuine compare-and-set so concurrency tests exercise
// the single-winner property.
type memTxnRepo struct {
	mu    sync.Mutex
	store map[string]*model.Transaction

	CreateErr   error
	FindErr     error
	MarkPaidErr error
}

func newMemTxnRepo() *memTxnRepo {
	return &memTxnRepo{store: make(map[string]*model.Transaction)}
}

func (m *memTxnRepo) Create(ctx context.Context, tx repository.Tx, t *model.Transaction) (bool, error) {
	if m.CreateErr != nil {
		return false, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := txnKey(t.Provider, t.ClientTxnID)
	if _, ok := m.store[k]; ok {
		return false, nil
	}
	cp := *t
	m.store[k] = &cp
	return true, nil
}

func (m *memTxnRepo) Find(ctx context.Context, tx repository.Tx, provider, clientTxnID string) (*model.Transaction, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[txnKey(provider, clientTxnID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTxnRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, provider, clientTxnID string, gatewayTxnID *string, callbackPayload []byte, message string) (bool, error) {
	if m.MarkPaidErr != nil {
		return false, m.MarkPaidErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[txnKey(provider, clientTxnID)]
	if !ok || t.Status != model.TxnStatusPending {
		return false, nil
	}
	t.Status = model.TxnStatusPaid
	if gatewayTxnID != nil {
		t.GatewayTxnID = gatewayTxnID
	}
	if t.CallbackPayload == nil {
		t.CallbackPayload = callbackPayload
	}
	t.Message = message
	t.UpdatedAt = time.Now()
	return true, nil
}

func (m *memTxnRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, provider, clientTxnID, message string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[txnKey(provider, clientTxnID)]
	if !ok || t.Status != model.TxnStatusPending {
		return false, nil
	}
	t.Status = model.TxnStatusFailed
	t.Message = message
	t.UpdatedAt = time.Now()
	return true, nil
}

func (m *memTxnRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for _, t := range m.store {
		if t.Status == model.TxnStatusPending && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memTxnRepo) SumPaidByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, t := range m.store {
		if t.Status == model.TxnStatusPaid {
			sum += t.Amount
		}
	}
	return sum, nil
}

// get returns the stored record without copying; test-assertion helper.
func (m *memTxnRepo) get(provider, clientTxnID string) *model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[txnKey(provider, clientTxnID)]
}

// memAccountRepo is an in-memory account store.
type memAccountRepo struct {
	mu    sync.Mutex
	store map[string]*model.Account

	SaveErr error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{store: make(map[string]*model.Account)}
}

func (m *memAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// memStatusCache counts hits so tests can distinguish warm and cold reads.
type memStatusCache struct {
	mu    sync.Mutex
	store map[string]*repository.StatusEntry

	GetErr error
	gets   int
	hits   int
	puts   int
}

func newMemStatusCache() *memStatusCache {
	return &memStatusCache{store: make(map[string]*repository.StatusEntry)}
}

func (m *memStatusCache) Get(ctx context.Context, provider, clientTxnID string) (*repository.StatusEntry, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	e, ok := m.store[txnKey(provider, clientTxnID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	m.hits++
	cp := *e
	return &cp, nil
}

func (m *memStatusCache) Put(ctx context.Context, provider, clientTxnID string, e *repository.StatusEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	cp := *e
	m.store[txnKey(provider, clientTxnID)] = &cp
	return nil
}

// mockTxManager runs the callback inline without a database transaction.
type mockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// mockGateway is a function-field gateway double.
type mockGateway struct {
	CreateOrderFunc func(ctx context.Context, ord adapter.OrderRequest) (adapter.CreateOrderResult, error)
	QueryOrderFunc  func(ctx context.Context, clientTxnID string) (adapter.OrderQueryResult, error)
}

func (m *mockGateway) Name() string { return "zalopay" }

func (m *mockGateway) CreateOrder(ctx context.Context, ord adapter.OrderRequest) (adapter.CreateOrderResult, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, ord)
	}
	return adapter.CreateOrderResult{OrderURL: "https://gateway.example/pay/" + ord.ClientTxnID, QRCode: "qr-data"}, nil
}

func (m *mockGateway) QueryOrder(ctx context.Context, clientTxnID string) (adapter.OrderQueryResult, error) {
	if m.QueryOrderFunc != nil {
		return m.QueryOrderFunc(ctx, clientTxnID)
	}
	return adapter.OrderQueryResult{}, nil
}

// mockNotifier records deliveries.
type mockNotifier struct {
	mu    sync.Mutex
	sends []string


	SendErr error
}

func (m *mockNotifier) Send(ctx context.Context, email string, kind adapter.NotificationKind, data map[string]string) error {
	m.mu.Lock()
	m.sends = append(m.sends, email)
	m.mu.Unlock()
	return m.SendErr
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}
