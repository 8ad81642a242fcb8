package contract

import (
	"context"
	"strconv"

	"crowdfundr/sdk"
)

// badgeRegistry issues sequential badge ids per campaign and tracks who holds them.
// The id counter itself lives in CampaignFinance.BadgeCount.
type badgeRegistry struct {
	tx       *sdk.Tx
	campaign uint64
}

// issue hands the next id to `to`. last is the highest id issued so far.
func (b badgeRegistry) issue(ctx context.Context, to sdk.Address, last uint64) (uint64, error) {
	id := last + 1
	b.tx.Set(badgeOwnerKey(b.campaign, id), to.String())
	if err := b.bump(ctx, badgeBalanceKey(b.campaign, to), 1); err != nil {
		return 0, err
	}
	if err := b.bump(ctx, badgeClaimedKey(b.campaign, to), 1); err != nil {
		return 0, err
	}
	return id, nil
}

// ownerOf returns the current holder, ok is false for ids never issued.
func (b badgeRegistry) ownerOf(ctx context.Context, id uint64) (sdk.Address, bool, error) {
	v, ok, err := b.tx.Get(ctx, badgeOwnerKey(b.campaign, id))
	if err != nil || !ok {
		return "", false, err
	}
	return sdk.Address(v), true, nil
}

// transfer moves id from `from` to `to`. Callers check from == ownerOf(id) first.
func (b badgeRegistry) transfer(ctx context.Context, from, to sdk.Address, id uint64) error {
	b.tx.Set(badgeOwnerKey(b.campaign, id), to.String())
	if from == to {
		return nil
	}
	if err := b.bump(ctx, badgeBalanceKey(b.campaign, from), -1); err != nil {
		return err
	}
	return b.bump(ctx, badgeBalanceKey(b.campaign, to), 1)
}

func (b badgeRegistry) balanceOf(ctx context.Context, who sdk.Address) (uint64, error) {
	return getCount(ctx, b.tx, badgeBalanceKey(b.campaign, who))
}

// claimedBy counts ids ever issued to who, transfers away do not lower it.
func (b badgeRegistry) claimedBy(ctx context.Context, who sdk.Address) (uint64, error) {
	return getCount(ctx, b.tx, badgeClaimedKey(b.campaign, who))
}

// bump adjusts a decimal counter. Counters that hit zero are removed from state.
func (b badgeRegistry) bump(ctx context.Context, key string, delta int) error {
	n, err := getCount(ctx, b.tx, key)
	if err != nil {
		return err
	}
	if delta < 0 {
		if n == 0 {
			return withCause(ErrInvalidArgument, strconv.ErrRange)
		}
		n--
	} else {
		n++
	}
	if n == 0 {
		b.tx.Delete(key)
		return nil
	}
	setCount(b.tx, key, n)
	return nil
}
