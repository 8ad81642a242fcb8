package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdfundr/sdk"
)

// TestBadgeNeedsWholeUnit: 0.999 is not enough, topping up to 1.009 is.
func TestBadgeNeedsWholeUnit(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, bob, "0.999")

	_, err := c.ClaimBadge(h.ctx, bob)
	assert.ErrorIs(t, err, ErrInsufficientContribution)

	// a 0.001 top-up is under the contribution floor, the smallest one that works is 0.01
	_, err = c.Contribute(h.ctx, bob, amt("0.001"))
	assert.ErrorIs(t, err, ErrBelowMinimumContribution)
	h.contribute(c, bob, "0.01")
	rec, err := c.ClaimBadge(h.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, RecordBadgeIssued, rec.Kind)
	assert.Equal(t, uint64(1), rec.BadgeID)
	assert.Equal(t, sdk.ZeroAddress, rec.From)
	assert.Equal(t, bob, rec.To)

	owner, err := c.BadgeOwner(h.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
}

func TestBadgeExactlyAtThreshold(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, bob, "0.99")
	h.contribute(c, bob, "0.01")
	_, err := c.ClaimBadge(h.ctx, bob)
	require.NoError(t, err)
}

func TestOneBadgePerWholeUnit(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, bob, "1.5")

	_, err := c.ClaimBadge(h.ctx, bob)
	require.NoError(t, err)
	_, err = c.ClaimBadge(h.ctx, bob)
	assert.ErrorIs(t, err, ErrInsufficientContribution)

	h.contribute(c, bob, "1.5")
	for i := 0; i < 2; i++ {
		_, err = c.ClaimBadge(h.ctx, bob)
		require.NoError(t, err)
	}
	_, err = c.ClaimBadge(h.ctx, bob)
	assert.ErrorIs(t, err, ErrInsufficientContribution)

	n, err := c.BadgeBalance(h.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestBadgeIdsAreSequentialAcrossContributors(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, alice, "2")
	h.contribute(c, bob, "1")

	var ids []uint64
	for _, who := range []sdk.Address{alice, bob, alice} {
		rec, err := c.ClaimBadge(h.ctx, who)
		require.NoError(t, err)
		ids = append(ids, rec.BadgeID)
	}
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}

// TestTransferredBadgesDoNotReopenClaims: giving a badge away does not let the giver claim it again.
func TestTransferredBadgesDoNotReopenClaims(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, bob, "1")
	_, err := c.ClaimBadge(h.ctx, bob)
	require.NoError(t, err)
	_, err = c.TransferBadge(h.ctx, bob, charlie, 1)
	require.NoError(t, err)

	_, err = c.ClaimBadge(h.ctx, bob)
	assert.ErrorIs(t, err, ErrInsufficientContribution)

	view, err := c.Contributor(h.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), view.Claimed)
	assert.Equal(t, uint64(0), view.BadgeBalance)
	assert.Equal(t, uint64(0), view.Claimable)
}

// TestBadgeTradeAfterFailure: bob holds three badges, the campaign fails, bob trades one to charlie.
func TestBadgeTradeAfterFailure(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, bob, "3")
	for i := 0; i < 3; i++ {
		_, err := c.ClaimBadge(h.ctx, bob)
		require.NoError(t, err)
	}
	h.advance(30 * day)
	require.Equal(t, StatusFailure, h.status(c))

	rec, err := c.TransferBadge(h.ctx, bob, charlie, 1)
	require.NoError(t, err)
	assert.Equal(t, RecordBadgeTransferred, rec.Kind)
	assert.Equal(t, bob, rec.From)
	assert.Equal(t, charlie, rec.To)

	owner, err := c.BadgeOwner(h.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, charlie, owner)
	for who, want := range map[sdk.Address]uint64{bob: 2, charlie: 1} {
		n, err := c.BadgeBalance(h.ctx, who)
		require.NoError(t, err)
		assert.Equal(t, want, n, who)
	}
}

// TestBadgesSurviveRefund: refunds do not erase the participation record.
func TestBadgesSurviveRefund(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, bob, "2")
	_, err := c.ClaimBadge(h.ctx, bob)
	require.NoError(t, err)
	h.advance(30 * day)

	_, err = c.Refund(h.ctx, bob)
	require.NoError(t, err)
	rec, err := c.ClaimBadge(h.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rec.BadgeID)
}

func TestTransferBadgeGuards(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	h.contribute(c, bob, "1")
	_, err := c.ClaimBadge(h.ctx, bob)
	require.NoError(t, err)

	_, err = c.TransferBadge(h.ctx, bob, charlie, 2)
	assert.ErrorIs(t, err, ErrUnknownBadge)
	_, err = c.TransferBadge(h.ctx, alice, charlie, 1)
	assert.ErrorIs(t, err, ErrNotBadgeHolder)
	_, err = c.TransferBadge(h.ctx, bob, sdk.ZeroAddress, 1)
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = c.TransferBadge(h.ctx, bob, "not-an-address", 1)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = c.BadgeOwner(h.ctx, 9)
	assert.ErrorIs(t, err, ErrUnknownBadge)

	// self transfer is a no-op on balances but still one record
	rec, err := c.TransferBadge(h.ctx, bob, bob, 1)
	require.NoError(t, err)
	assert.Equal(t, RecordBadgeTransferred, rec.Kind)
	n, err := c.BadgeBalance(h.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestEVMBadgeHolderIsNormalized(t *testing.T) {
	h := newHarness(t)
	c := h.create("100")
	lower := sdk.Address("0x52908400098527886e0f7030069857d2e4169ee7")
	require.NoError(t, h.ledger.Deposit(lower.Normalize(), sdk.Units(5)))

	h.contribute(c, lower, "1")
	_, err := c.ClaimBadge(h.ctx, "0x52908400098527886E0F7030069857D2E4169EE7")
	require.NoError(t, err)
	owner, err := c.BadgeOwner(h.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, lower.Normalize(), owner)
}
