package contract

import (
	"time"

	"github.com/holiman/uint256"

	"crowdfundr/sdk"
)

// Status is the lifecycle phase of a campaign. It is never stored, see deriveStatus.
type Status uint8

const (
	StatusActive Status = iota
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// CampaignMeta holds everything fixed at creation.
type CampaignMeta struct {
	ID        uint64
	Owner     sdk.Address
	Goal      *uint256.Int
	CreatedAt int64 // unix nanos
	Name      string
	Symbol    string
}

// Handle is the campaign's ledger address.
func (m CampaignMeta) Handle() sdk.Address {
	return campaignHandle(m.ID)
}

// Deadline is createdAt plus the funding window.
func (m CampaignMeta) Deadline() time.Time {
	return time.Unix(0, m.CreatedAt).UTC().Add(FundingWindow)
}

// CampaignFinance tracks the monotonic counters of a campaign.
type CampaignFinance struct {
	TotalContributed *uint256.Int
	TotalWithdrawn   *uint256.Int
	TotalRefunded    *uint256.Int
	Cancelled        bool
	BadgeCount       uint64
	RecordCount      uint64
}

func newFinance() CampaignFinance {
	return CampaignFinance{
		TotalContributed: sdk.Zero(),
		TotalWithdrawn:   sdk.Zero(),
		TotalRefunded:    sdk.Zero(),
	}
}

// Balance is what the campaign still holds by its own books.
func (f CampaignFinance) Balance() *uint256.Int {
	out := new(uint256.Int).Sub(f.TotalContributed, f.TotalWithdrawn)
	return out.Sub(out, f.TotalRefunded)
}

// deriveStatus: success wins if the goal was reached, otherwise the deadline or a cancel
// fails the campaign.
func deriveStatus(meta CampaignMeta, fin CampaignFinance, now time.Time) Status {
	if !fin.TotalContributed.Lt(meta.Goal) {
		return StatusSuccess
	}
	if fin.Cancelled || !now.Before(meta.Deadline()) {
		return StatusFailure
	}
	return StatusActive
}

// Contribution is the per-contributor entry of the contribution ledger.
type Contribution struct {
	Cumulative *uint256.Int
	Refunded   bool
}

// Refundable is what a refund would pay right now.
func (c Contribution) Refundable() *uint256.Int {
	if c.Refunded {
		return sdk.Zero()
	}
	return c.Cumulative.Clone()
}

// Snapshot is the read model of a campaign at a point in time.
type Snapshot struct {
	ID               uint64
	Handle           sdk.Address
	Owner            sdk.Address
	Name             string
	Symbol           string
	Goal             *uint256.Int
	CreatedAt        time.Time
	Deadline         time.Time
	Status           Status
	Cancelled        bool
	TotalContributed *uint256.Int
	TotalWithdrawn   *uint256.Int
	TotalRefunded    *uint256.Int
	Balance          *uint256.Int
	BadgesIssued     uint64
	Records          uint64
}

// ContributorView summarizes one address on one campaign.
type ContributorView struct {
	Address      sdk.Address
	Cumulative   *uint256.Int
	Refundable   *uint256.Int
	Claimed      uint64
	BadgeBalance uint64
	Claimable    uint64
}
