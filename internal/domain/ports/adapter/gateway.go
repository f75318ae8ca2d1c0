package adapter

import "context"

// OrderRequest carries the canonical order fields in the shape the gateway
// expects. EmbedData is an opaque JSON blob echoed back on the callback.
type OrderRequest struct {
	ClientTxnID string
	UserID      string
	Amount      int64
	AppTimeMs   int64
	Item        string
	EmbedData   string
	Description string
}

// CreateOrderResult is the redirect/QR payload returned to the client.
type CreateOrderResult struct {
	OrderURL     string
	QRCode       string
	GatewayToken string
}

// OrderQueryResult is the gateway's view of an order, used by the
// reconciliation sweep.
type OrderQueryResult struct {
	Paid         bool // terminal success
	Failed       bool // terminal failure; false with Paid=false means still processing
	GatewayTxnID string
	Amount       int64
	Message      string
}

// PaymentGateway is the hex port for the external payment provider.
type PaymentGateway interface {
	Name() string

	// CreateOrder registers a payment order with the provider and returns a
	// redirect URL / QR payload for the client.
	CreateOrder(ctx context.Context, ord OrderRequest) (CreateOrderResult, error)

	// QueryOrder asks the provider for the current outcome of an order.
	QueryOrder(ctx context.Context, clientTxnID string) (OrderQueryResult, error)
}
