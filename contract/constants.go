package contract

import (
	"time"

	"crowdfundr/sdk"
)

// -----------------------------------------------------------------------------
// Funding Rules
// -----------------------------------------------------------------------------

// FundingWindow is how long a campaign accepts contributions after creation.
const FundingWindow = 30 * 24 * time.Hour

var (
	// MinContribution is the smallest accepted contribution and the smallest allowed goal.
	MinContribution = sdk.MustParseAmount("0.01")
	// BadgeUnit is the cumulative contribution that earns one badge.
	BadgeUnit = sdk.Units(1)
)

// -----------------------------------------------------------------------------
// Validation Limits
// -----------------------------------------------------------------------------

const (
	// MaxNameLength limits the badge series name.
	MaxNameLength = 128
	// MaxSymbolLength limits the badge series symbol.
	MaxSymbolLength = 16
	// MaxRecordPage caps a single Records read.
	MaxRecordPage = 500
)

// DefaultLockWait bounds how long a call re-entered through a ledger hook waits for
// another campaign's lock before failing with ErrCampaignBusy.
const DefaultLockWait = 2 * time.Second

// handlePrefix is prepended to the campaign id to form its ledger address.
const handlePrefix = "contract:campaign-"
