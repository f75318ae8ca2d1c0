//go:build !integration

package web_test

import (
	"context"

	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type mockOrderUC struct {
	InitiateFunc func(ctx context.Context, userID string, planID model.PlanID) (*usecase.InitiateResult, error)
}

func (m *mockOrderUC) Initiate(ctx context.Context, userID string, planID model.PlanID) (*usecase.InitiateResult, error) {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, userID, planID)
	}
	return &usecase.InitiateResult{OrderURL: "https://gateway.example/pay/x", ClientTxnID: "250901_X"}, nil
}

func (m *mockOrderUC) Plans() []model.Plan { return model.AllPlans() }

type mockCallbackUC struct {
	ProcessFunc  func(ctx context.Context, rawBody []byte) usecase.CallbackAck
	SimulateFunc func(ctx context.Context, userID, clientTxnID string) error
}

func (m *mockCallbackUC) Process(ctx context.Context, rawBody []byte) usecase.CallbackAck {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, rawBody)
	}
	return usecase.CallbackAck{ReturnCode: usecase.AckCodeSuccess, ReturnMessage: "success"}
}

func (m *mockCallbackUC) Simulate(ctx context.Context, userID, clientTxnID string) error {
	if m.SimulateFunc != nil {
		return m.SimulateFunc(ctx, userID, clientTxnID)
	}
	return nil
}

type mockStatusUC struct {
	QueryFunc func(ctx context.Context, provider, clientTxnID string) (*usecase.StatusView, error)
}

func (m *mockStatusUC) Query(ctx context.Context, provider, clientTxnID string) (*usecase.StatusView, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, provider, clientTxnID)
	}
	return &usecase.StatusView{Status: model.TxnStatusPending, Plan: model.PlanBasic, Amount: 29000}, nil
}

type mockStatsUC struct {
	RevenueFunc func(ctx context.Context) (int64, int64, int64, error)
}

func (m *mockStatsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	if m.RevenueFunc != nil {
		return m.RevenueFunc(ctx)
	}
	return 0, 0, 0, nil
}
