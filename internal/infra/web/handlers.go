package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/model"
	"quiz-payment-engine/internal/usecase"
)

const maxCallbackBody = 1 << 20 // gateway notifications are small

type orderCreateRequest struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

type orderCreateResponse struct {
	OrderURL    string `json:"order_url"`
	QRCode      string `json:"qr_code,omitempty"`
	ClientTxnID string `json:"client_txn_id"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req orderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Plan == "" {
		http.Error(w, "user_id and plan are required", http.StatusBadRequest)
		return
	}

	res, err := s.orderUC.Initiate(ctx, req.UserID, model.PlanID(req.Plan))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPlanUnknown):
			http.Error(w, "Unknown plan", http.StatusBadRequest)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Unknown user", http.StatusNotFound)
		case errors.Is(err, domain.ErrGatewayUnavailable):
			// Internal detail stays in logs; the caller may retry.
			http.Error(w, "Payment provider unavailable", http.StatusBadGateway)
		default:
			s.log.Error().Err(err).Msg("order initiation failed")
			http.Error(w, "Failed to create order", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, orderCreateResponse{
		OrderURL:    res.OrderURL,
		QRCode:      res.QRCode,
		ClientTxnID: res.ClientTxnID,
	})
}

// handleCallback always answers the gateway with a well-formed ack, even on
// internal failure; redelivery is expected and safe.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		writeJSON(w, http.StatusOK, usecase.CallbackAck{ReturnCode: usecase.AckCodeTransient, ReturnMessage: "read error"})
		return
	}
	ack := s.callbackUC.Process(r.Context(), body)
	writeJSON(w, http.StatusOK, ack)
}

type statusResponse struct {
	Status       string     `json:"status"`
	Plan         string     `json:"plan"`
	Amount       int64      `json:"amount"`
	GatewayTxnID *string    `json:"gateway_txn_id,omitempty"`
	Message      string     `json:"message,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	clientTxnID := chi.URLParam(r, "clientTxnID")

	v, err := s.statusUC.Query(r.Context(), provider, clientTxnID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Transaction not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Invalid request", http.StatusBadRequest)
		default:
			s.log.Error().Err(err).Msg("status query failed")
			http.Error(w, "Failed to query status", http.StatusInternalServerError)
		}
		return
	}

	resp := statusResponse{
		Status:       string(v.Status),
		Plan:         string(v.Plan),
		Amount:       v.Amount,
		GatewayTxnID: v.GatewayTxnID,
		Message:      v.Message,
	}
	if !v.UpdatedAt.IsZero() {
		t := v.UpdatedAt
		resp.UpdatedAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

type simulateRequest struct {
	UserID      string `json:"user_id"`
	ClientTxnID string `json:"client_txn_id"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.callbackUC.Simulate(r.Context(), req.UserID, req.ClientTxnID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Transaction not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrNotOwner):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			s.log.Error().Err(err).Msg("simulation failed")
			http.Error(w, "Simulation failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handlePlans(w http.ResponseWriter, _ *http.Request) {
	type planView struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		PriceVND       int64  `json:"price_vnd"`
		Attempts       int    `json:"attempts"`
		MembershipDays int    `json:"membership_days"`
	}
	var out []planView
	for _, p := range s.orderUC.Plans() {
		out = append(out, planView{
			ID: string(p.ID), Name: p.Name, PriceVND: p.PriceVND,
			Attempts: p.Attempts, MembershipDays: p.MembershipDays,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	week, month, year, err := s.statsUC.Revenue(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("revenue query failed")
		http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Week  int64 `json:"week"`
		Month int64 `json:"month"`
		Year  int64 `json:"year"`
	}{Week: week, Month: month, Year: year})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
