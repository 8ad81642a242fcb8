package api

import (
	"time"

	"crowdfundr/contract"
	"crowdfundr/sdk"
)

// amounts travel as unit strings ("1.5"), never floats

type createCampaignRequest struct {
	Goal   string `json:"goal" validate:"required,amount"`
	Name   string `json:"name" validate:"required,max=128"`
	Symbol string `json:"symbol" validate:"required,max=16"`
}

type amountRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
}

type badgeTransferRequest struct {
	To string `json:"to" validate:"required,address"`
}

type ledgerTransferRequest struct {
	To     string `json:"to" validate:"required,address"`
	Amount string `json:"amount" validate:"required,amount"`
}

type campaignResponse struct {
	ID               uint64    `json:"id"`
	Handle           string    `json:"handle"`
	Owner            string    `json:"owner"`
	Name             string    `json:"name"`
	Symbol           string    `json:"symbol"`
	Goal             string    `json:"goal"`
	CreatedAt        time.Time `json:"createdAt"`
	Deadline         time.Time `json:"deadline"`
	Status           string    `json:"status"`
	Cancelled        bool      `json:"cancelled"`
	TotalContributed string    `json:"totalContributed"`
	TotalWithdrawn   string    `json:"totalWithdrawn"`
	TotalRefunded    string    `json:"totalRefunded"`
	Balance          string    `json:"balance"`
	BadgesIssued     uint64    `json:"badgesIssued"`
	Records          uint64    `json:"records"`
}

func toCampaignResponse(s contract.Snapshot) campaignResponse {
	return campaignResponse{
		ID:               s.ID,
		Handle:           s.Handle.String(),
		Owner:            s.Owner.String(),
		Name:             s.Name,
		Symbol:           s.Symbol,
		Goal:             sdk.FormatAmount(s.Goal),
		CreatedAt:        s.CreatedAt.UTC(),
		Deadline:         s.Deadline.UTC(),
		Status:           s.Status.String(),
		Cancelled:        s.Cancelled,
		TotalContributed: sdk.FormatAmount(s.TotalContributed),
		TotalWithdrawn:   sdk.FormatAmount(s.TotalWithdrawn),
		TotalRefunded:    sdk.FormatAmount(s.TotalRefunded),
		Balance:          sdk.FormatAmount(s.Balance),
		BadgesIssued:     s.BadgesIssued,
		Records:          s.Records,
	}
}

type contributorResponse struct {
	Address      string `json:"address"`
	Cumulative   string `json:"cumulative"`
	Refundable   string `json:"refundable"`
	Claimed      uint64 `json:"badgesClaimed"`
	BadgeBalance uint64 `json:"badgeBalance"`
	Claimable    uint64 `json:"badgesClaimable"`
}

func toContributorResponse(v contract.ContributorView) contributorResponse {
	return contributorResponse{
		Address:      v.Address.String(),
		Cumulative:   sdk.FormatAmount(v.Cumulative),
		Refundable:   sdk.FormatAmount(v.Refundable),
		Claimed:      v.Claimed,
		BadgeBalance: v.BadgeBalance,
		Claimable:    v.Claimable,
	}
}

type recordResponse struct {
	Record contract.Record `json:"record"`
}

type createdResponse struct {
	Campaign campaignResponse `json:"campaign"`
	Record   contract.Record  `json:"record"`
}

type badgeResponse struct {
	BadgeID uint64 `json:"badgeId"`
	Owner   string `json:"owner"`
}

type accountResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}
