package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"crowdfundr/contract"
	"crowdfundr/sdk"
)

// ---- campaigns ----

// createCampaign opens a campaign owned by the caller.
// Example payload: {"goal":"100","name":"Garden","symbol":"GRDN"}
func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	goal, err := parseAmount(req.Goal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, caller := callContext(r)
	c, rec, err := s.reg.Create(ctx, caller, goal, req.Name, req.Symbol)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := c.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Campaign: toCampaignResponse(snap), Record: rec})
}

func (s *Server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.reg.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]campaignResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, toCampaignResponse(snap))
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": out})
}

func (s *Server) getCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaign(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := c.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignResponse(snap))
}

// contribute pulls amount from the caller's ledger account.
// Example payload: {"amount":"0.3"}
func (s *Server) contribute(w http.ResponseWriter, r *http.Request) {
	s.withAmount(w, r, func(c *contract.Campaign, r *http.Request, amount *uint256.Int) (contract.Record, error) {
		ctx, caller := callContext(r)
		return c.Contribute(ctx, caller, amount)
	})
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(c *contract.Campaign, r *http.Request) (contract.Record, error) {
		ctx, caller := callContext(r)
		return c.Cancel(ctx, caller)
	})
}

// Example payload: {"amount":"2.5"}
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	s.withAmount(w, r, func(c *contract.Campaign, r *http.Request, amount *uint256.Int) (contract.Record, error) {
		ctx, caller := callContext(r)
		return c.Withdraw(ctx, caller, amount)
	})
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(c *contract.Campaign, r *http.Request) (contract.Record, error) {
		ctx, caller := callContext(r)
		return c.Refund(ctx, caller)
	})
}

func (s *Server) records(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaign(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	var from uint64
	if raw := q.Get("from"); raw != "" {
		if from, err = strconv.ParseUint(raw, 10, 64); err != nil {
			s.writeError(w, r, badRequest("INVALID_ARGUMENT", "from must be a sequence number", err))
			return
		}
	}
	limit := 100
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			s.writeError(w, r, badRequest("INVALID_ARGUMENT", "limit must be a positive number", err))
			return
		}
	}
	recs, err := c.Records(r.Context(), from, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

// ---- badges ----

func (s *Server) claimBadge(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusCreated, func(c *contract.Campaign, r *http.Request) (contract.Record, error) {
		ctx, caller := callContext(r)
		return c.ClaimBadge(ctx, caller)
	})
}

func (s *Server) badgeOwner(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaign(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := badgeID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	owner, err := c.BadgeOwner(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, badgeResponse{BadgeID: id, Owner: owner.String()})
}

// Example payload: {"to":"hive:charlie"}
func (s *Server) transferBadge(w http.ResponseWriter, r *http.Request) {
	var req badgeTransferRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := badgeID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, http.StatusOK, func(c *contract.Campaign, r *http.Request) (contract.Record, error) {
		ctx, caller := callContext(r)
		return c.TransferBadge(ctx, caller, sdk.Address(req.To), id)
	})
}

func (s *Server) contributor(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaign(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	who, err := pathAddress(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := c.Contributor(r.Context(), who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributorResponse(view))
}

// ---- ledger accounts ----

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	who, err := pathAddress(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bal, err := s.ledger.BalanceOf(r.Context(), who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{Address: who.String(), Balance: sdk.FormatAmount(bal)})
}

// transfer moves funds between ledger accounts. Campaign handles refuse it.
// Example payload: {"to":"hive:bob","amount":"1"}
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	from, err := pathAddress(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, caller := callContext(r)
	if caller.Normalize() != from {
		s.writeError(w, r, errCallerMismatch)
		return
	}
	var req ledgerTransferRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parsePositive(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to := sdk.Address(req.To).Normalize()
	if err := s.ledger.Transfer(ctx, from, to, amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeBalance(w, r, from)
}

// deposit is the dev faucet.
// Example payload: {"amount":"50"}
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	dep, ok := s.ledger.(Depositor)
	if !ok {
		s.writeError(w, r, errors.New("ledger does not support deposits"))
		return
	}
	who, err := pathAddress(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req amountRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parsePositive(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := dep.Deposit(who, amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeBalance(w, r, who)
}

func (s *Server) writeBalance(w http.ResponseWriter, r *http.Request, who sdk.Address) {
	bal, err := s.ledger.BalanceOf(r.Context(), who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{Address: who.String(), Balance: sdk.FormatAmount(bal)})
}

// ---- helpers ----

type mutation func(c *contract.Campaign, r *http.Request) (contract.Record, error)

// mutate resolves the campaign, runs fn and answers with the record it produced.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, status int, fn mutation) {
	c, err := s.campaign(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := fn(c, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, recordResponse{Record: rec})
}

func (s *Server) withAmount(w http.ResponseWriter, r *http.Request, fn func(*contract.Campaign, *http.Request, *uint256.Int) (contract.Record, error)) {
	var req amountRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, http.StatusOK, func(c *contract.Campaign, r *http.Request) (contract.Record, error) {
		return fn(c, r, amount)
	})
}

func (s *Server) campaign(r *http.Request) (*contract.Campaign, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return nil, contract.ErrCampaignNotFound
	}
	return s.reg.Campaign(r.Context(), id)
}

func badgeID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "badgeID"), 10, 64)
	if err != nil || id == 0 {
		return 0, contract.ErrUnknownBadge
	}
	return id, nil
}

func pathAddress(r *http.Request) (sdk.Address, error) {
	a := sdk.Address(chi.URLParam(r, "address")).Normalize()
	if !a.IsValid() {
		return "", contract.ErrInvalidAddress
	}
	return a, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := sdk.ParseAmount(s)
	if err != nil {
		return nil, badRequest(string(contract.CodeInvalidAmount), "invalid amount", err)
	}
	return v, nil
}

func parsePositive(s string) (*uint256.Int, error) {
	v, err := parseAmount(s)
	if err != nil {
		return nil, err
	}
	if v.IsZero() {
		return nil, badRequest(string(contract.CodeInvalidAmount), "amount must be positive", nil)
	}
	return v, nil
}
