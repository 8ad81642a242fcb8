package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdfundr/sdk"
)

// =============================================================================
// Lifecycle scenarios
// =============================================================================

// TestOvershootingContributionClosesRound: goal 1, gifts 0.3 + 0.3 + 0.5.
func TestOvershootingContributionClosesRound(t *testing.T) {
	h := newHarness(t)
	c := h.create("1")

	h.contribute(c, alice, "0.3")
	h.contribute(c, bob, "0.3")
	assert.Equal(t, StatusActive, h.status(c))
	h.contribute(c, charlie, "0.5")
	assert.Equal(t, StatusSuccess, h.status(c))

	snap, err := c.Snapshot(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.1", sdk.FormatAmount(snap.TotalContributed))
	assert.Equal(t, "1.1", h.balance(c.Handle()))

	_, err = c.Contribute(h.ctx, dan, amt("0.5"))
	assert.ErrorIs(t, err, ErrInactiveCampaign)
}

// TestCancelThenCancelAgainAfterDeadline: owner cancels at day 29, second cancel after day 30 fails.
func TestCancelThenCancelAgainAfterDeadline(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, alice, "5")

	h.advance(29 * day)
	rec, err := c.Cancel(h.ctx, ownerAddress)
	require.NoError(t, err)
	assert.Equal(t, RecordCancelled, rec.Kind)
	assert.Equal(t, "5", sdk.FormatAmount(rec.Amount))
	assert.Equal(t, StatusFailure, h.status(c))

	h.advance(2 * day)
	_, err = c.Cancel(h.ctx, ownerAddress)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, StatusFailure, h.status(c))
}

// TestRefundsAfterDeadlinePayExactShares: two 25 unit gifts toward 100, both refund after expiry.
func TestRefundsAfterDeadlinePayExactShares(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, alice, "25")
	h.contribute(c, bob, "25")
	assert.Equal(t, "175", h.balance(alice))

	h.advance(30 * day)
	assert.Equal(t, StatusFailure, h.status(c))

	for _, who := range []sdk.Address{alice, bob} {
		rec, err := c.Refund(h.ctx, who)
		require.NoError(t, err)
		assert.Equal(t, RecordRefunded, rec.Kind)
		assert.Equal(t, who, rec.Contributor)
		assert.Equal(t, "25", sdk.FormatAmount(rec.Amount))
		assert.Equal(t, "200", h.balance(who))
	}
	assert.Equal(t, "0", h.balance(c.Handle()))

	snap, err := c.Snapshot(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.TotalContributed, snap.TotalRefunded)
	assert.True(t, snap.Balance.IsZero())

	_, err = c.Refund(h.ctx, alice)
	assert.ErrorIs(t, err, ErrNoContribution)
}

// =============================================================================
// Status
// =============================================================================

func TestDeriveStatus(t *testing.T) {
	created := defaultTimestamp
	meta := CampaignMeta{Goal: sdk.Units(10), CreatedAt: created.UnixNano()}
	fin := func(contributed string, cancelled bool) CampaignFinance {
		f := newFinance()
		f.TotalContributed = amt(contributed)
		f.Cancelled = cancelled
		return f
	}

	cases := []struct {
		name string
		fin  CampaignFinance
		at   time.Time
		want Status
	}{
		{"fresh", fin("0", false), created, StatusActive},
		{"one second before deadline", fin("9.99", false), created.Add(FundingWindow - time.Second), StatusActive},
		{"exactly at deadline", fin("9.99", false), created.Add(FundingWindow), StatusFailure},
		{"goal met", fin("10", false), created.Add(time.Hour), StatusSuccess},
		{"goal met stays success after deadline", fin("10", false), created.Add(90 * day), StatusSuccess},
		{"cancelled", fin("1", true), created.Add(time.Hour), StatusFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveStatus(meta, tc.fin, tc.at))
		})
	}
}

func TestStatusNeverLeavesTerminalState(t *testing.T) {
	h := newHarness(t)
	won := h.create("1")
	lost := h.create("1")
	h.contribute(won, alice, "1")

	for i := 0; i < 5; i++ {
		assert.Equal(t, StatusSuccess, h.status(won))
		h.advance(10 * day)
	}
	assert.Equal(t, StatusFailure, h.status(lost))
	_, err := lost.Contribute(h.ctx, alice, amt("5"))
	assert.ErrorIs(t, err, ErrInactiveCampaign)
	assert.Equal(t, StatusFailure, h.status(lost))
}

func TestHostTimestampOverridesClock(t *testing.T) {
	h := newHarness(t)
	c := h.create("1")
	late := sdk.WithEnv(h.ctx, sdk.Env{TxID: "tx-late", Timestamp: defaultTimestamp.Add(31 * day)})
	_, err := c.Contribute(late, alice, amt("0.5"))
	assert.ErrorIs(t, err, ErrInactiveCampaign)
	assert.Equal(t, StatusActive, h.status(c))
}

// =============================================================================
// Contribute
// =============================================================================

func TestContributeMinimumIsInclusive(t *testing.T) {
	h := newHarness(t)
	c := h.create("1")

	_, err := c.Contribute(h.ctx, alice, amt("0.009999999999999999"))
	assert.ErrorIs(t, err, ErrBelowMinimumContribution)

	rec, err := c.Contribute(h.ctx, alice, amt("0.01"))
	require.NoError(t, err)
	assert.Equal(t, RecordContributed, rec.Kind)
	assert.Equal(t, alice, rec.Contributor)
}

func TestContributeRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	c := h.create("1")

	_, err := c.Contribute(h.ctx, "nobody", amt("1"))
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = c.Contribute(h.ctx, sdk.ZeroAddress, amt("1"))
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = c.Contribute(h.ctx, c.Handle(), amt("1"))
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = c.Contribute(h.ctx, alice, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestContributeWithoutFundsLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	c := h.create("1000")
	before := h.state.Dump()

	_, err := c.Contribute(h.ctx, alice, amt("500"))
	assert.ErrorIs(t, err, sdk.ErrInsufficientFunds)
	assert.Equal(t, before, h.state.Dump())
	assert.Equal(t, "200", h.balance(alice))
	assert.Len(t, h.sink.all(), 1) // only the creation record
}

func TestContributionsAccumulatePerContributor(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")
	h.contribute(c, alice, "0.4")
	h.contribute(c, alice, "0.6")
	h.contribute(c, bob, "2")

	view, err := c.Contributor(h.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "1", sdk.FormatAmount(view.Cumulative))
	assert.Equal(t, "1", sdk.FormatAmount(view.Refundable))
	assert.Equal(t, uint64(1), view.Claimable)

	view, err = c.Contributor(h.ctx, dan)
	require.NoError(t, err)
	assert.True(t, view.Cumulative.IsZero())
}

// =============================================================================
// Cancel
// =============================================================================

func TestCancelOnlyByOwner(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")
	_, err := c.Cancel(h.ctx, alice)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, StatusActive, h.status(c))
}

func TestCancelAfterSuccessFails(t *testing.T) {
	h := newHarness(t)
	c := h.create("1")
	h.contribute(c, alice, "1")
	_, err := c.Cancel(h.ctx, ownerAddress)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestCancelledCampaignRefusesContributions(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")
	h.contribute(c, alice, "3")
	_, err := c.Cancel(h.ctx, ownerAddress)
	require.NoError(t, err)

	_, err = c.Contribute(h.ctx, bob, amt("1"))
	assert.ErrorIs(t, err, ErrInactiveCampaign)
	_, err = c.Withdraw(h.ctx, ownerAddress, amt("1"))
	assert.ErrorIs(t, err, ErrNotSuccessful)

	_, err = c.Refund(h.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "200", h.balance(alice))
}

// =============================================================================
// Withdraw
// =============================================================================

func TestWithdrawPartialUntilExhausted(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")
	h.contribute(c, alice, "6")
	h.contribute(c, bob, "6")

	_, err := c.Withdraw(h.ctx, ownerAddress, amt("5"))
	require.NoError(t, err)
	_, err = c.Withdraw(h.ctx, ownerAddress, amt("7"))
	require.NoError(t, err)
	assert.Equal(t, "212", h.balance(ownerAddress))

	_, err = c.Withdraw(h.ctx, ownerAddress, amt("0.000000000000000001"))
	assert.ErrorIs(t, err, ErrExceedsAvailableBalance)

	snap, err := c.Snapshot(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.TotalContributed, snap.TotalWithdrawn)
}

func TestWithdrawGuards(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")
	h.contribute(c, alice, "5")

	_, err := c.Withdraw(h.ctx, ownerAddress, amt("1"))
	assert.ErrorIs(t, err, ErrNotSuccessful)

	h.contribute(c, alice, "5")
	_, err = c.Withdraw(h.ctx, alice, amt("1"))
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = c.Withdraw(h.ctx, ownerAddress, amt("10.5"))
	assert.ErrorIs(t, err, ErrExceedsAvailableBalance)
	_, err = c.Withdraw(h.ctx, ownerAddress, amt("0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	rec, err := c.Withdraw(h.ctx, ownerAddress, amt("10"))
	require.NoError(t, err)
	assert.Equal(t, RecordWithdrawn, rec.Kind)
	assert.Equal(t, "10", sdk.FormatAmount(rec.Amount))
}

// =============================================================================
// Refund
// =============================================================================

func TestRefundGuards(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")
	h.contribute(c, alice, "2")

	_, err := c.Refund(h.ctx, alice)
	assert.ErrorIs(t, err, ErrNotFailed)

	h.advance(30 * day)
	_, err = c.Refund(h.ctx, dan)
	assert.ErrorIs(t, err, ErrNoContribution)

	_, err = c.Refund(h.ctx, alice)
	require.NoError(t, err)
	_, err = c.Refund(h.ctx, alice)
	assert.ErrorIs(t, err, ErrNoContribution)
}

func TestRefundNotAvailableOnSuccess(t *testing.T) {
	h := newHarness(t)
	c := h.create("1")
	h.contribute(c, alice, "1")
	h.advance(40 * day)
	_, err := c.Refund(h.ctx, alice)
	assert.ErrorIs(t, err, ErrNotFailed)
}

// =============================================================================
// Records and rollback
// =============================================================================

func TestOneRecordPerSuccessfulCall(t *testing.T) {
	h := newHarness(t)
	c := h.create("2")
	ctx := sdk.WithEnv(h.ctx, sdk.Env{TxID: "tx-42"})

	_, err := c.Contribute(ctx, alice, amt("1"))
	require.NoError(t, err)
	_, err = c.Contribute(ctx, alice, amt("0.001"))
	require.Error(t, err)
	_, err = c.ClaimBadge(ctx, alice)
	require.NoError(t, err)
	_, err = c.ClaimBadge(ctx, alice)
	require.Error(t, err)
	_, err = c.TransferBadge(ctx, alice, bob, 1)
	require.NoError(t, err)
	_, err = c.Contribute(ctx, bob, amt("1"))
	require.NoError(t, err)
	_, err = c.Withdraw(ctx, ownerAddress, amt("2"))
	require.NoError(t, err)

	recs, err := c.Records(h.ctx, 0, 0)
	require.NoError(t, err)
	kinds := make([]RecordKind, 0, len(recs))
	for i, r := range recs {
		kinds = append(kinds, r.Kind)
		assert.Equal(t, uint64(i+1), r.Seq)
		assert.Equal(t, c.ID(), r.Campaign)
	}
	assert.Equal(t, []RecordKind{
		RecordCreated, RecordContributed, RecordBadgeIssued, RecordBadgeTransferred, RecordContributed, RecordWithdrawn,
	}, kinds)
	assert.Equal(t, "tx-42", recs[1].TxID)
	assert.Equal(t, recs, h.sink.all())

	page, err := c.Records(h.ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, RecordBadgeIssued, page[0].Kind)
	assert.Equal(t, sdk.ZeroAddress, page[0].From)
}

func TestFailedCallsLeaveStateByteIdentical(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")
	h.contribute(c, alice, "0.5")
	before := h.state.Dump()
	published := len(h.sink.all())

	failures := []func() error{
		func() error { _, err := c.Contribute(h.ctx, bob, amt("0.001")); return err },
		func() error { _, err := c.Cancel(h.ctx, bob); return err },
		func() error { _, err := c.Withdraw(h.ctx, ownerAddress, amt("1")); return err },
		func() error { _, err := c.Refund(h.ctx, alice); return err },
		func() error { _, err := c.ClaimBadge(h.ctx, alice); return err },
		func() error { _, err := c.TransferBadge(h.ctx, alice, bob, 1); return err },
	}
	for i, f := range failures {
		require.Error(t, f(), "call %d", i)
		assert.Equal(t, before, h.state.Dump(), "call %d changed state", i)
	}
	assert.Len(t, h.sink.all(), published)
}

func TestDirectTransferIntoCampaignIsRefused(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")
	before := h.state.Dump()

	err := h.ledger.Transfer(h.ctx, alice, c.Handle(), sdk.Units(3))
	assert.ErrorIs(t, err, ErrUnrecognizedDirectTransfer)
	assert.Equal(t, "200", h.balance(alice))
	assert.Equal(t, "0", h.balance(c.Handle()))
	assert.Equal(t, before, h.state.Dump())

	assert.ErrorIs(t, c.Receive(h.ctx, alice, sdk.Units(1)), ErrUnrecognizedDirectTransfer)
}
