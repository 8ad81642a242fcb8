package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"crowdfundr/sdk"
)

// callChain spans an outermost mutating call plus every call re-entered through ledger
// hooks while its value transfers run. It is scoped to one goroutine.
type callChain struct {
	held    []*Campaign
	undo    []undoEntry
	pending []Record
}

// undoEntry is one committed batch of the chain. revert undoes in-process effects of the
// commit, such as a campaign installed by Create.
type undoEntry struct {
	muts   []sdk.Mutation
	revert func()
}

type chainKey struct{}

var errLockBusy = errors.New("lock busy")

// enterChain returns the chain on ctx, creating it when this is the outermost call.
func enterChain(ctx context.Context) (context.Context, *callChain, bool) {
	if ch, ok := chainFrom(ctx); ok {
		return ctx, ch, false
	}
	ch := &callChain{}
	return context.WithValue(ctx, chainKey{}, ch), ch, true
}

func chainFrom(ctx context.Context) (*callChain, bool) {
	ch, ok := ctx.Value(chainKey{}).(*callChain)
	return ch, ok
}

func (ch *callChain) holds(c *Campaign) bool {
	for _, h := range ch.held {
		if h == c {
			return true
		}
	}
	return false
}

// acquire locks c unless the chain already holds it. Locks stay held until release.
// The outermost call blocks. A nested call already holds other locks, so it only waits up
// to the registry's lock wait and then gives up with ErrCampaignBusy.
func (ch *callChain) acquire(ctx context.Context, c *Campaign) error {
	if ch.holds(c) {
		return nil
	}
	if len(ch.held) == 0 {
		c.mu.Lock()
	} else if err := waitLock(ctx, c.mu.TryLock, c.reg.lockWait); err != nil {
		return err
	}
	ch.held = append(ch.held, c)
	return nil
}

func (ch *callChain) release() {
	for i := len(ch.held) - 1; i >= 0; i-- {
		ch.held[i].mu.Unlock()
	}
	ch.held = nil
}

// mark remembers how far the chain got, for rollback.
type chainMark struct {
	undo    int
	pending int
}

func (ch *callChain) mark() chainMark {
	return chainMark{undo: len(ch.undo), pending: len(ch.pending)}
}

// rollback restores every key written since m, newest commit first, and drops the records
// those commits produced.
func (ch *callChain) rollback(ctx context.Context, state sdk.State, m chainMark) error {
	var errs []error
	for i := len(ch.undo) - 1; i >= m.undo; i-- {
		if err := state.Apply(ctx, ch.undo[i].muts); err != nil {
			errs = append(errs, fmt.Errorf("undo batch %d: %w", i, err))
		}
		if ch.undo[i].revert != nil {
			ch.undo[i].revert()
		}
	}
	ch.undo = ch.undo[:m.undo]
	ch.pending = ch.pending[:m.pending]
	return errors.Join(errs...)
}

// readLock makes a view wait for an in-flight mutation of c, so nobody reads bookkeeping
// that a failed transfer is about to undo. A hook re-entering a campaign its own chain
// holds reads without locking.
func (c *Campaign) readLock(ctx context.Context) (func(), error) {
	ch, ok := chainFrom(ctx)
	switch {
	case !ok || len(ch.held) == 0:
		c.mu.RLock()
	case ch.holds(c):
		return func() {}, nil
	default:
		if err := waitLock(ctx, c.mu.TryRLock, c.reg.lockWait); err != nil {
			return nil, err
		}
	}
	return c.mu.RUnlock, nil
}

// waitLock polls try with backoff until it succeeds, ctx ends or wait runs out.
func waitLock(ctx context.Context, try func() bool, wait time.Duration) error {
	if try() {
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 20 * time.Millisecond
	b.MaxElapsedTime = wait
	err := backoff.Retry(func() error {
		if try() {
			return nil
		}
		return errLockBusy
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return withCause(ErrCampaignBusy, err)
	}
	return nil
}
