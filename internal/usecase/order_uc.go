package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/domain/ports/adapter"
	"quiz-payment-engine/internal/domain/ports/repository"
	"quiz-payment-engine/internal/infra/metrics"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

type InitiateResult struct {
	OrderURL    string
	QRCode      string
	ClientTxnID string
}

type OrderUseCase interface {
	// Initiate persists a pending transaction, registers the order with the
	// gateway, and returns the redirect/QR payload.
	Initiate(ctx context.Context, userID string, planID model.PlanID) (*InitiateResult, error)
	// Plans lists the purchasable catalog.
	Plans() []model.Plan
}

type orderUC struct {
	txns     repository.TransactionRepository
	accounts repository.AccountRepository
	cache    repository.StatusCache
	gateway  adapter.PaymentGateway
	log      *zerolog.Logger
}

func NewOrderUseCase(
	txns repository.TransactionRepository,
	accounts repository.AccountRepository,
	cache repository.StatusCache,
	gateway adapter.PaymentGateway,
	logger *zerolog.Logger,
) *orderUC {
	l := logger.With().Str("component", "OrderUC").Logger()
	return &orderUC{txns: txns, accounts: accounts, cache: cache, gateway: gateway, log: &l}
}

// NewClientTxnID generates a fresh client transaction id. The date prefix is
// required by the gateway contract; the ULID suffix makes collisions
// overwhelmingly improbable.
func NewClientTxnID(now time.Time) string {
	return now.Format("060102") + "_" + ulid.Make().String()
}

type embedData struct {
	UserID string       `json:"user_id"`
	Plan   model.PlanID `json:"plan"`
}

func (u *orderUC) Plans() []model.Plan { return model.AllPlans() }

func (u *orderUC) Initiate(ctx context.Context, userID string, planID model.PlanID) (*InitiateResult, error) {
	plan, err := model.PlanByID(planID)
	if err != nil {
		return nil, err
	}
	acct, err := u.accounts.FindByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	clientTxnID := NewClientTxnID(now)

	embed, _ := json.Marshal(embedData{UserID: acct.ID, Plan: plan.ID})
	item, _ := json.Marshal([]map[string]any{{"plan": plan.ID, "name": plan.Name, "price": plan.PriceVND}})
	ord := adapter.OrderRequest{
		ClientTxnID: clientTxnID,
		UserID:      acct.ID,
		Amount:      plan.PriceVND,
		AppTimeMs:   now.UnixMilli(),
		Item:        string(item),
		EmbedData:   string(embed),
		Description: fmt.Sprintf("Quiz plan %s for %s", plan.Name, acct.Email),
	}
	rawOrder, _ := json.Marshal(ord)

	t := &model.Transaction{
		Provider:        u.gateway.Name(),
		ClientTxnID:     clientTxnID,
		UserID:          acct.ID,
		Plan:            plan.ID,
		Amount:          plan.PriceVND,
		Status:          model.TxnStatusPending,
		RawOrderPayload: rawOrder,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	// Persist before the outbound call: a crash after the gateway accepted the
	// order must not lose the pending record the callback path resolves against.
	created, err := u.txns.Create(ctx, nil, t)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, domain.ErrAlreadyExists
	}

	res, err := u.gateway.CreateOrder(ctx, ord)
	if err != nil {
		// The transaction stays pending: the gateway side-effect may still be
		// in flight and the callback or the reconciler will resolve it.
		u.log.Warn().Err(err).Str("client_txn_id", clientTxnID).Msg("gateway order creation failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	_ = u.cache.Put(ctx, t.Provider, clientTxnID, &repository.StatusEntry{
		Status: t.Status, Plan: t.Plan, Amount: t.Amount, UpdatedAt: t.UpdatedAt,
	})
	metrics.IncOrderInitiated(string(plan.ID))

	u.log.Info().Str("client_txn_id", clientTxnID).Str("plan", string(plan.ID)).Int64("amount", plan.PriceVND).Msg("order initiated")
	return &InitiateResult{OrderURL: res.OrderURL, QRCode: res.QRCode, ClientTxnID: clientTxnID}, nil
}
