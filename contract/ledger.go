package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"crowdfundr/sdk"
)

// contributionLedger is the per-campaign contributor -> cumulative amount map. It only
// does bookkeeping against the call's tx, no value moves here.
type contributionLedger struct {
	tx       *sdk.Tx
	campaign uint64
}

func (l contributionLedger) entry(ctx context.Context, who sdk.Address) (Contribution, error) {
	v, ok, err := l.tx.Get(ctx, contributionKey(l.campaign, who))
	if err != nil {
		return Contribution{}, err
	}
	if !ok {
		return Contribution{Cumulative: sdk.Zero()}, nil
	}
	c, err := decodeContribution(v)
	if err != nil {
		return Contribution{}, fmt.Errorf("decode contribution %d/%s: %w", l.campaign, who, err)
	}
	return c, nil
}

// cumulativeOf returns everything who ever gave, refunds do not lower it.
func (l contributionLedger) cumulativeOf(ctx context.Context, who sdk.Address) (*uint256.Int, error) {
	c, err := l.entry(ctx, who)
	if err != nil {
		return nil, err
	}
	return c.Cumulative, nil
}

// record adds amount to who's cumulative total and returns the new total.
func (l contributionLedger) record(ctx context.Context, who sdk.Address, amount *uint256.Int) (*uint256.Int, error) {
	c, err := l.entry(ctx, who)
	if err != nil {
		return nil, err
	}
	next, err := sdk.Add(c.Cumulative, amount)
	if err != nil {
		return nil, overflowErr(err)
	}
	c.Cumulative = next
	l.tx.Set(contributionKey(l.campaign, who), encodeContribution(c))
	return next, nil
}

// consumeForRefund reads the refundable amount and marks it paid in one step, so a second
// read inside the same call chain sees zero.
func (l contributionLedger) consumeForRefund(ctx context.Context, who sdk.Address) (*uint256.Int, error) {
	c, err := l.entry(ctx, who)
	if err != nil {
		return nil, err
	}
	amount := c.Refundable()
	if amount.IsZero() {
		return amount, nil
	}
	c.Refunded = true
	l.tx.Set(contributionKey(l.campaign, who), encodeContribution(c))
	return amount, nil
}

func overflowErr(err error) error {
	if errors.Is(err, sdk.ErrAmountOverflow) {
		return withCause(ErrAmountOverflow, err)
	}
	return err
}
