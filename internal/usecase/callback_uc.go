package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/domain/ports/repository"
	"quiz-payment-engine/internal/infra/metrics"
)

// Compile-time check
var _ CallbackUseCase = (*callbackUC)(nil)

// Ack codes are dictated by the gateway contract and must be preserved
// bit-for-bit: 1 accepted, 0 transient (redeliver), -1 rejected.
const (
	AckCodeSuccess   = 1
	AckCodeTransient = 0
	AckCodeRejected  = -1
)

// CallbackAck is the structured acknowledgement returned to the gateway.
type CallbackAck struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
}

// CodeVerifier authenticates an inbound payload against its supplied code.
type CodeVerifier interface {
	Verify(payload []byte, code string) bool
}

type CallbackUseCase interface {
	// Process handles one untrusted, at-least-once gateway notification and
	// always produces a well-formed acknowledgement.
	Process(ctx context.Context, rawBody []byte) CallbackAck
	// Simulate settles a pending transaction owned by userID through the
	// same grant path the real callback uses. Development only.
	Simulate(ctx context.Context, userID, clientTxnID string) error
}

type callbackUC struct {
	verifier CodeVerifier
	txns     repository.TransactionRepository
	grant    GrantUseCase
	provider string
	allowSim bool
	log      *zerolog.Logger
}

func NewCallbackUseCase(
	verifier CodeVerifier,
	txns repository.TransactionRepository,
	grant GrantUseCase,
	provider string,
	allowSimulation bool,
	logger *zerolog.Logger,
) *callbackUC {
	l := logger.With().Str("component", "CallbackUC").Logger()
	return &callbackUC{verifier: verifier, txns: txns, grant: grant, provider: provider, allowSim: allowSimulation, log: &l}
}

// callbackEnvelope is the outer gateway notification: an opaque data blob
// plus the code computed over it with the callback secret.
type callbackEnvelope struct {
	Data string `json:"data"`
	Mac  string `json:"mac"`
	Type int    `json:"type"`
}

type callbackData struct {
	AppTransID string `json:"app_trans_id"`
	ZpTransID  int64  `json:"zp_trans_id"`
	AppUser    string `json:"app_user"`
	Amount     int64  `json:"amount"`
	EmbedData  string `json:"embed_data"`
	ServerTime int64  `json:"server_time"`
}

func (u *callbackUC) Process(ctx context.Context, rawBody []byte) CallbackAck {
	var env callbackEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		metrics.IncCallback("malformed")
		return CallbackAck{ReturnCode: AckCodeRejected, ReturnMessage: "malformed body"}
	}

	// Authenticate before touching any state.
	if !u.verifier.Verify([]byte(env.Data), env.Mac) {
		metrics.IncCallback("invalid_mac")
		u.log.Warn().Msg("callback rejected: mac mismatch")
		return CallbackAck{ReturnCode: AckCodeRejected, ReturnMessage: "mac not equal"}
	}

	var data callbackData
	if err := json.Unmarshal([]byte(env.Data), &data); err != nil {
		metrics.IncCallback("malformed")
		return CallbackAck{ReturnCode: AckCodeRejected, ReturnMessage: "malformed data"}
	}
	var embed embedData
	if err := json.Unmarshal([]byte(data.EmbedData), &embed); err != nil {
		metrics.IncCallback("malformed")
		return CallbackAck{ReturnCode: AckCodeRejected, ReturnMessage: "malformed embed_data"}
	}
	if data.AppTransID == "" || embed.UserID == "" {
		metrics.IncCallback("malformed")
		return CallbackAck{ReturnCode: AckCodeRejected, ReturnMessage: "missing transaction id"}
	}

	if _, err := u.txns.Find(ctx, nil, u.provider, data.AppTransID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			metrics.IncCallback("error")
			u.log.Error().Err(err).Str("client_txn_id", data.AppTransID).Msg("ledger lookup failed")
			return CallbackAck{ReturnCode: AckCodeTransient, ReturnMessage: "ledger unavailable"}
		}
		// Out-of-order delivery: the order record never made it to the
		// ledger but the gateway accepted payment. Self-heal with a recovery
		// record and settle it through the normal grant path. A concurrent
		// duplicate insert collapses on the unique key.
		if err := u.createRecovery(ctx, data, embed, rawBody); err != nil {
			metrics.IncCallback("error")
			u.log.Error().Err(err).Str("client_txn_id", data.AppTransID).Msg("recovery record creation failed")
			return CallbackAck{ReturnCode: AckCodeTransient, ReturnMessage: "ledger unavailable"}
		}
		metrics.IncCallback("recovered")
		u.log.Warn().Str("client_txn_id", data.AppTransID).Msg("created recovery transaction for unknown callback")
	}

	gatewayID := formatAmount(data.ZpTransID)
	res, err := u.grant.Grant(ctx, u.provider, data.AppTransID, &gatewayID, rawBody, "settled by gateway callback")
	if err != nil {
		metrics.IncCallback("error")
		u.log.Error().Err(err).Str("client_txn_id", data.AppTransID).Msg("grant failed")
		return CallbackAck{ReturnCode: AckCodeTransient, ReturnMessage: "internal error"}
	}

	metrics.IncCallback("success")
	if !res.Granted {
		return CallbackAck{ReturnCode: AckCodeSuccess, ReturnMessage: "already processed"}
	}
	return CallbackAck{ReturnCode: AckCodeSuccess, ReturnMessage: "success"}
}

func (u *callbackUC) createRecovery(ctx context.Context, data callbackData, embed embedData, rawBody []byte) error {
	if _, err := model.PlanByID(embed.Plan); err != nil {
		return err
	}
	now := time.Now()
	t := &model.Transaction{
		Provider:        u.provider,
		ClientTxnID:     data.AppTransID,
		UserID:          embed.UserID,
		Plan:            embed.Plan,
		Amount:          data.Amount,
		Status:          model.TxnStatusPending,
		RawOrderPayload: rawBody,
		Message:         "recovered from callback",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err := u.txns.Create(ctx, nil, t)
	return err
}

func (u *callbackUC) Simulate(ctx context.Context, userID, clientTxnID string) error {
	if !u.allowSim {
		return domain.ErrNotFound
	}
	t, err := u.txns.Find(ctx, nil, u.provider, clientTxnID)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return domain.ErrNotOwner
	}

	synthetic := "sim_" + ulid.Make().String()
	_, err = u.grant.Grant(ctx, u.provider, clientTxnID, &synthetic, nil, "settled by simulation")
	if err == nil {
		u.log.Info().Str("client_txn_id", clientTxnID).Str("user_id", userID).Msg("simulated settlement")
	}
	return err
}
