// Package api exposes campaigns and the ledger over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"crowdfundr/contract"
	"crowdfundr/sdk"
)

// Depositor mints ledger funds, only the dev faucet uses it.
type Depositor interface {
	Deposit(addr sdk.Address, amount *uint256.Int) error
}

type Options struct {
	// Faucet mounts POST /v1/accounts/{address}/deposits. The ledger must implement Depositor.
	Faucet bool
	// Health backs /healthz, usually the store ping.
	Health func(ctx context.Context) error
}

type Server struct {
	reg      *contract.Registry
	ledger   sdk.Ledger
	hub      *Hub
	log      *zap.Logger
	validate *validator.Validate
	opts     Options
}

func NewServer(reg *contract.Registry, ledger sdk.Ledger, hub *Hub, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(log)
	}
	return &Server{reg: reg, ledger: ledger, hub: hub, log: log, validate: newValidator(), opts: opts}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID(s.log))
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.createCampaign)
			r.Get("/", s.listCampaigns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getCampaign)
				r.Post("/contributions", s.contribute)
				r.Post("/cancel", s.cancel)
				r.Post("/withdrawals", s.withdraw)
				r.Post("/refund", s.refund)
				r.Post("/badges", s.claimBadge)
				r.Get("/badges/{badgeID}", s.badgeOwner)
				r.Post("/badges/{badgeID}/transfer", s.transferBadge)
				r.Get("/contributors/{address}", s.contributor)
				r.Get("/records", s.records)
			})
		})
		r.Get("/records/stream", s.hub.ServeWS)
		r.Route("/accounts/{address}", func(r chi.Router) {
			r.Get("/", s.account)
			r.Post("/transfers", s.transfer)
			if s.opts.Faucet {
				r.Post("/deposits", s.deposit)
			}
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			loggerFrom(r.Context(), s.log).Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
