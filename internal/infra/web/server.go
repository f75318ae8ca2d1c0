package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"quiz-payment-engine/internal/infra/logging"
	"quiz-payment-engine/internal/usecase"
)

type Server struct {
	orderUC    usecase.OrderUseCase
	callbackUC usecase.CallbackUseCase
	statusUC   usecase.StatusUseCase
	statsUC    usecase.StatsUseCase
	apiKey     string
	dev        bool
	log        *zerolog.Logger
}

func NewServer(
	orderUC usecase.OrderUseCase,
	callbackUC usecase.CallbackUseCase,
	statusUC usecase.StatusUseCase,
	statsUC usecase.StatsUseCase,
	apiKey string,
	dev bool,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		orderUC:    orderUC,
		callbackUC: callbackUC,
		statusUC:   statusUC,
		statsUC:    statsUC,
		apiKey:     apiKey,
		dev:        dev,
		log:        &l,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/payment", func(r chi.Router) {
		r.Get("/plans", s.handlePlans)
		r.Post("/orders", s.handleCreateOrder)
		r.Post("/callback/zalopay", s.handleCallback)
		r.Get("/status/{provider}/{clientTxnID}", s.handleStatus)
		if s.dev {
			// Simulation is a development trigger only; it is never routed in
			// production deployments.
			r.With(s.authMiddleware).Post("/simulate", s.handleSimulate)
		}
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/revenue", s.handleRevenue)
	})

	return r
}

// traceMiddleware stamps each request with a trace id carried through the
// logging context.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
