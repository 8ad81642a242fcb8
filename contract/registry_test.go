package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdfundr/sdk"
)

func TestCreateCampaign(t *testing.T) {
	h := newHarness(t)
	ctx := sdk.WithEnv(h.ctx, sdk.Env{TxID: "tx-create"})

	c, rec, err := h.reg.Create(ctx, ownerAddress, amt("0.01"), "  Garden  ", "GRDN")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.ID())
	assert.Equal(t, sdk.Address("contract:campaign-1"), c.Handle())
	assert.Equal(t, ownerAddress, c.Owner())
	assert.Equal(t, "Garden", c.Meta().Name)
	assert.Equal(t, defaultTimestamp.Add(FundingWindow), c.Meta().Deadline())

	assert.Equal(t, RecordCreated, rec.Kind)
	assert.Equal(t, c.Handle(), rec.Handle)
	assert.Equal(t, ownerAddress, rec.Owner)
	assert.Equal(t, "0.01", sdk.FormatAmount(rec.Amount))
	assert.Equal(t, "tx-create", rec.TxID)
	assert.Equal(t, []Record{rec}, h.sink.all())

	c2, _, err := h.reg.Create(ctx, alice, sdk.Units(5), "Second", "SEC")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c2.ID())
	assert.Equal(t, StatusActive, h.status(c2))
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.reg.Create(h.ctx, ownerAddress, amt("0.009999999999999999"), "x", "X")
	assert.ErrorIs(t, err, ErrGoalTooLow)
	_, _, err = h.reg.Create(h.ctx, ownerAddress, nil, "x", "X")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = h.reg.Create(h.ctx, "someone", sdk.Units(1), "x", "X")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, _, err = h.reg.Create(h.ctx, ownerAddress, sdk.Units(1), " ", "X")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = h.reg.Create(h.ctx, ownerAddress, sdk.Units(1), "x", "WAYTOOLONGSYMBOL1")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	n, err := h.reg.Count(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, h.state.Dump())
}

func TestRegistryLookup(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")

	got, err := h.reg.Campaign(h.ctx, c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	got, err = h.reg.CampaignByHandle(h.ctx, "contract:campaign-1")
	require.NoError(t, err)
	assert.Same(t, c, got)

	for _, bad := range []sdk.Address{"contract:campaign-2", "contract:campaign-01", "contract:other-1", "hive:alice"} {
		_, err = h.reg.CampaignByHandle(h.ctx, bad)
		assert.ErrorIs(t, err, ErrCampaignNotFound, bad)
	}
	_, err = h.reg.Campaign(h.ctx, 99)
	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

// TestRegistryReloadsFromState: a second registry over the same store sees every campaign
// and re-arms the direct transfer guard.
func TestRegistryReloadsFromState(t *testing.T) {
	h := newHarness(t)
	c := h.create("10")
	h.contribute(c, alice, "4")
	_, err := c.Cancel(h.ctx, ownerAddress)
	require.NoError(t, err)

	ledger := sdk.NewMemoryLedger()
	require.NoError(t, ledger.Deposit(bob, sdk.Units(1)))
	reg := NewRegistry(h.state, ledger, WithClock(h.clock))
	require.NoError(t, reg.Load(h.ctx))

	list, err := reg.List(h.ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	snap := list[0]
	assert.Equal(t, ownerAddress, snap.Owner)
	assert.Equal(t, StatusFailure, snap.Status)
	assert.True(t, snap.Cancelled)
	assert.Equal(t, "4", sdk.FormatAmount(snap.TotalContributed))
	assert.Equal(t, uint64(3), snap.Records)

	err = ledger.Transfer(h.ctx, bob, c.Handle(), sdk.Units(1))
	assert.ErrorIs(t, err, ErrUnrecognizedDirectTransfer)
}
