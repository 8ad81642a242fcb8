package contract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"crowdfundr/sdk"
)

// Campaign is one fundraising state machine. All mutating calls are serialized on mu and
// run through run(), which commits bookkeeping before any value moves. Views share mu for
// reading.
type Campaign struct {
	mu      sync.RWMutex
	meta    CampaignMeta
	reg     *Registry
	dropped atomic.Bool // creation was rolled back
}

func campaignHandle(id uint64) sdk.Address {
	return sdk.Address(handlePrefix + UInt64ToString(id))
}

func (c *Campaign) ID() uint64          { return c.meta.ID }
func (c *Campaign) Handle() sdk.Address { return c.meta.Handle() }
func (c *Campaign) Owner() sdk.Address  { return c.meta.Owner }

// Meta returns a copy of the immutable creation data.
func (c *Campaign) Meta() CampaignMeta {
	m := c.meta
	m.Goal = c.meta.Goal.Clone()
	return m
}

// ---------------------------------------------------------------------------
// call plumbing
// ---------------------------------------------------------------------------

// call is one mutating operation in flight.
type call struct {
	ctx           context.Context
	tx            *sdk.Tx
	meta          CampaignMeta
	fin           CampaignFinance
	now           time.Time
	status        Status
	contributions contributionLedger
	badges        badgeRegistry
	record        *Record
	effect        func(ctx context.Context) error
}

func (cl *call) emit(rec Record) { cl.record = &rec }

// after queues the outbound value movement. It runs once the bookkeeping is committed.
func (cl *call) after(fn func(ctx context.Context) error) { cl.effect = fn }

// seal stamps the record and writes it together with the finance blob.
func (cl *call) seal() Record {
	cl.fin.RecordCount++
	rec := *cl.record
	rec.Campaign = cl.meta.ID
	rec.Seq = cl.fin.RecordCount
	rec.TxID = sdk.GetEnv(cl.ctx).TxID
	rec.At = cl.now.UnixNano()
	cl.tx.Set(recordKey(cl.meta.ID, rec.Seq), encodeRecord(rec))
	cl.tx.Set(campaignFinanceKey(cl.meta.ID), encodeCampaignFinance(cl.fin))
	return rec
}

func (c *Campaign) begin(ctx context.Context) (*call, error) {
	if c.dropped.Load() {
		return nil, ErrCampaignNotFound
	}
	tx := sdk.NewTx(c.reg.state)
	fin, err := loadFinance(ctx, tx, c.meta.ID)
	if err != nil {
		return nil, err
	}
	now := c.reg.clock(ctx)
	return &call{
		ctx:           ctx,
		tx:            tx,
		meta:          c.meta,
		fin:           fin,
		now:           now,
		status:        deriveStatus(c.meta, fin, now),
		contributions: contributionLedger{tx: tx, campaign: c.meta.ID},
		badges:        badgeRegistry{tx: tx, campaign: c.meta.ID},
	}, nil
}

// run executes fn as one atomic call:
//
//  1. fn validates and mutates a fresh tx and picks the record
//  2. the tx is committed, the undo batch goes onto the call chain
//  3. the queued value movement runs last
//  4. if it fails, everything committed since step 2 (nested calls included) is undone
//
// Records are published only when the outermost call of the chain returns cleanly.
func (c *Campaign) run(ctx context.Context, op string, fn func(*call) error) (Record, error) {
	ctx, ch, root := enterChain(ctx)
	if root {
		defer ch.release()
	}
	log := c.reg.log.With(zap.Uint64("campaign", c.meta.ID), zap.String("op", op))
	if err := ch.acquire(ctx, c); err != nil {
		log.Warn("campaign lock not acquired", zap.Error(err))
		return Record{}, err
	}
	m := ch.mark()

	cl, err := c.begin(ctx)
	if err != nil {
		return Record{}, err
	}
	if err := fn(cl); err != nil {
		log.Debug("call rejected", zap.Error(err))
		return Record{}, err
	}
	if cl.record == nil {
		return Record{}, fmt.Errorf("%s produced no record", op)
	}
	rec := cl.seal()

	undo, err := cl.tx.Commit(ctx)
	if err != nil {
		log.Error("commit failed", zap.Error(err))
		return Record{}, fmt.Errorf("commit %s: %w", op, err)
	}
	ch.undo = append(ch.undo, undoEntry{muts: undo})
	ch.pending = append(ch.pending, rec)

	if cl.effect != nil {
		if err := cl.effect(ctx); err != nil {
			if rerr := ch.rollback(ctx, c.reg.state, m); rerr != nil {
				log.Error("rollback failed", zap.Error(rerr))
				err = errors.Join(err, rerr)
			}
			log.Debug("value transfer rejected, call rolled back", zap.Error(err))
			return Record{}, err
		}
	}

	if root {
		for _, r := range ch.pending {
			emitRecord(c.reg.log, c.reg.sink, r)
		}
	}
	return rec, nil
}

// normalizeCaller canonicalizes an address argument and rejects garbage or the zero address.
func normalizeCaller(a sdk.Address) (sdk.Address, error) {
	n := a.Normalize()
	if !n.IsValid() || n.IsZero() {
		return "", withCause(ErrInvalidAddress, fmt.Errorf("%q", a))
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// mutating calls
// ---------------------------------------------------------------------------

// Contribute books amount for caller and then pulls it from the caller's ledger account.
// The final contribution may overshoot the goal.
// Example payload: c.Contribute(ctx, "hive:alice", sdk.MustParseAmount("0.3"))
func (c *Campaign) Contribute(ctx context.Context, caller sdk.Address, amount *uint256.Int) (Record, error) {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return Record{}, err
	}
	if caller == c.Handle() {
		return Record{}, withCause(ErrInvalidAddress, errors.New("campaign cannot fund itself"))
	}
	if amount == nil {
		return Record{}, ErrInvalidAmount
	}
	amount = amount.Clone()
	return c.run(ctx, "contribute", func(cl *call) error {
		if cl.status != StatusActive {
			return ErrInactiveCampaign
		}
		if amount.Lt(MinContribution) {
			return ErrBelowMinimumContribution
		}
		if _, err := cl.contributions.record(cl.ctx, caller, amount); err != nil {
			return err
		}
		total, err := sdk.Add(cl.fin.TotalContributed, amount)
		if err != nil {
			return overflowErr(err)
		}
		cl.fin.TotalContributed = total
		cl.emit(contributedRecord(caller, amount))
		cl.after(func(ctx context.Context) error {
			return c.reg.ledger.Draw(ctx, caller, c.Handle(), amount)
		})
		return nil
	})
}

// Cancel lets the owner give up on an active campaign. Contributors can refund afterwards.
func (c *Campaign) Cancel(ctx context.Context, caller sdk.Address) (Record, error) {
	caller = caller.Normalize()
	return c.run(ctx, "cancel", func(cl *call) error {
		if caller != cl.meta.Owner {
			return ErrNotOwner
		}
		if cl.status != StatusActive {
			return ErrNotActive
		}
		cl.fin.Cancelled = true
		cl.emit(cancelledRecord(cl.fin.Balance()))
		return nil
	})
}

// Withdraw pays the owner out of a successful campaign. Partial withdrawals are fine.
// Example payload: c.Withdraw(ctx, owner, sdk.Units(1))
func (c *Campaign) Withdraw(ctx context.Context, caller sdk.Address, amount *uint256.Int) (Record, error) {
	caller = caller.Normalize()
	return c.run(ctx, "withdraw", func(cl *call) error {
		if caller != cl.meta.Owner {
			return ErrNotOwner
		}
		if cl.status != StatusSuccess {
			return ErrNotSuccessful
		}
		if amount == nil || amount.IsZero() {
			return ErrInvalidAmount
		}
		amount := amount.Clone()
		available, err := sdk.Sub(cl.fin.TotalContributed, cl.fin.TotalWithdrawn)
		if err != nil {
			return overflowErr(err)
		}
		if available.Lt(amount) {
			return ErrExceedsAvailableBalance
		}
		cl.fin.TotalWithdrawn = new(uint256.Int).Add(cl.fin.TotalWithdrawn, amount)
		cl.emit(withdrawnRecord(amount))
		owner := cl.meta.Owner
		cl.after(func(ctx context.Context) error {
			return c.reg.ledger.Transfer(ctx, c.Handle(), owner, amount)
		})
		return nil
	})
}

// Refund returns the caller's whole contribution from a failed campaign. It pays once.
func (c *Campaign) Refund(ctx context.Context, caller sdk.Address) (Record, error) {
	caller = caller.Normalize()
	return c.run(ctx, "refund", func(cl *call) error {
		if cl.status != StatusFailure {
			return ErrNotFailed
		}
		amount, err := cl.contributions.consumeForRefund(cl.ctx, caller)
		if err != nil {
			return err
		}
		if amount.IsZero() {
			return ErrNoContribution
		}
		refunded, err := sdk.Add(cl.fin.TotalRefunded, amount)
		if err != nil {
			return overflowErr(err)
		}
		cl.fin.TotalRefunded = refunded
		cl.emit(refundedRecord(caller, amount))
		cl.after(func(ctx context.Context) error {
			return c.reg.ledger.Transfer(ctx, c.Handle(), caller, amount)
		})
		return nil
	})
}

// ClaimBadge issues the next badge id to caller if floor(cumulative / 1 unit) still covers
// one more. Works in every status. The new id is in the returned record.
func (c *Campaign) ClaimBadge(ctx context.Context, caller sdk.Address) (Record, error) {
	caller = caller.Normalize()
	return c.run(ctx, "claim_badge", func(cl *call) error {
		cumulative, err := cl.contributions.cumulativeOf(cl.ctx, caller)
		if err != nil {
			return err
		}
		claimed, err := cl.badges.claimedBy(cl.ctx, caller)
		if err != nil {
			return err
		}
		entitled := new(uint256.Int).Div(cumulative, BadgeUnit)
		if entitled.Lt(uint256.NewInt(claimed + 1)) {
			return ErrInsufficientContribution
		}
		id, err := cl.badges.issue(cl.ctx, caller, cl.fin.BadgeCount)
		if err != nil {
			return err
		}
		cl.fin.BadgeCount = id
		cl.emit(badgeIssuedRecord(caller, id))
		return nil
	})
}

// TransferBadge hands badge id from its holder (the caller) to `to`, in any status.
// Example payload: c.TransferBadge(ctx, "hive:bob", "hive:charlie", 1)
func (c *Campaign) TransferBadge(ctx context.Context, caller, to sdk.Address, id uint64) (Record, error) {
	caller = caller.Normalize()
	to, err := normalizeCaller(to)
	if err != nil {
		return Record{}, err
	}
	return c.run(ctx, "transfer_badge", func(cl *call) error {
		holder, ok, err := cl.badges.ownerOf(cl.ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownBadge
		}
		if holder != caller {
			return ErrNotBadgeHolder
		}
		if err := cl.badges.transfer(cl.ctx, holder, to, id); err != nil {
			return err
		}
		cl.emit(badgeTransferredRecord(holder, to, id))
		return nil
	})
}

// Receive is the ledger hook of the campaign handle. Value only enters through Contribute,
// so anything pushed here is refused and the ledger rolls it back.
func (c *Campaign) Receive(_ context.Context, from sdk.Address, amount *uint256.Int) error {
	c.reg.log.Warn("direct transfer refused",
		zap.Uint64("campaign", c.meta.ID),
		zap.String("from", from.String()),
		zap.String("amount", sdk.FormatAmount(amount)))
	return ErrUnrecognizedDirectTransfer
}

// ---------------------------------------------------------------------------
// views
// ---------------------------------------------------------------------------

// view opens a read-only tx under the read lock. It never commits. The caller must run
// the returned unlock once done reading.
func (c *Campaign) view(ctx context.Context) (*call, func(), error) {
	unlock, err := c.readLock(ctx)
	if err != nil {
		return nil, nil, err
	}
	v, err := c.begin(ctx)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return v, unlock, nil
}

// Status recomputes the lifecycle phase from the stored facts and the clock.
func (c *Campaign) Status(ctx context.Context) (Status, error) {
	v, unlock, err := c.view(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return v.status, nil
}

// Snapshot returns the full read model.
func (c *Campaign) Snapshot(ctx context.Context) (Snapshot, error) {
	v, unlock, err := c.view(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	defer unlock()
	return Snapshot{
		ID:               c.meta.ID,
		Handle:           c.Handle(),
		Owner:            c.meta.Owner,
		Name:             c.meta.Name,
		Symbol:           c.meta.Symbol,
		Goal:             c.meta.Goal.Clone(),
		CreatedAt:        time.Unix(0, c.meta.CreatedAt).UTC(),
		Deadline:         c.meta.Deadline().UTC(),
		Status:           v.status,
		Cancelled:        v.fin.Cancelled,
		TotalContributed: v.fin.TotalContributed,
		TotalWithdrawn:   v.fin.TotalWithdrawn,
		TotalRefunded:    v.fin.TotalRefunded,
		Balance:          v.fin.Balance(),
		BadgesIssued:     v.fin.BadgeCount,
		Records:          v.fin.RecordCount,
	}, nil
}

// Contributor summarizes who's position: given, refundable, badges claimed and held.
func (c *Campaign) Contributor(ctx context.Context, who sdk.Address) (ContributorView, error) {
	who = who.Normalize()
	v, unlock, err := c.view(ctx)
	if err != nil {
		return ContributorView{}, err
	}
	defer unlock()
	entry, err := v.contributions.entry(ctx, who)
	if err != nil {
		return ContributorView{}, err
	}
	claimed, err := v.badges.claimedBy(ctx, who)
	if err != nil {
		return ContributorView{}, err
	}
	held, err := v.badges.balanceOf(ctx, who)
	if err != nil {
		return ContributorView{}, err
	}
	entitled := new(uint256.Int).Div(entry.Cumulative, BadgeUnit)
	var claimable uint64
	if entitled.IsUint64() && entitled.Uint64() > claimed {
		claimable = entitled.Uint64() - claimed
	}
	return ContributorView{
		Address:      who,
		Cumulative:   entry.Cumulative,
		Refundable:   entry.Refundable(),
		Claimed:      claimed,
		BadgeBalance: held,
		Claimable:    claimable,
	}, nil
}

// BadgeOwner is ownerOf(id).
func (c *Campaign) BadgeOwner(ctx context.Context, id uint64) (sdk.Address, error) {
	v, unlock, err := c.view(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()
	owner, ok, err := v.badges.ownerOf(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnknownBadge
	}
	return owner, nil
}

// BadgeBalance is balanceOf(who): badges currently held.
func (c *Campaign) BadgeBalance(ctx context.Context, who sdk.Address) (uint64, error) {
	v, unlock, err := c.view(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return v.badges.balanceOf(ctx, who.Normalize())
}

// Records pages through the record log starting at sequence from (1-based).
func (c *Campaign) Records(ctx context.Context, from uint64, limit int) ([]Record, error) {
	v, unlock, err := c.view(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if from == 0 {
		from = 1
	}
	if limit <= 0 || limit > MaxRecordPage {
		limit = MaxRecordPage
	}
	out := make([]Record, 0, min(limit, int(v.fin.RecordCount)))
	for seq := from; seq <= v.fin.RecordCount && len(out) < limit; seq++ {
		raw, ok, err := v.tx.Get(ctx, recordKey(c.meta.ID, seq))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("record %d/%d missing", c.meta.ID, seq)
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("decode record %d/%d: %w", c.meta.ID, seq, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func loadFinance(ctx context.Context, r kvReader, id uint64) (CampaignFinance, error) {
	raw, ok, err := r.Get(ctx, campaignFinanceKey(id))
	if err != nil {
		return CampaignFinance{}, err
	}
	if !ok {
		return CampaignFinance{}, ErrCampaignNotFound
	}
	fin, err := decodeCampaignFinance(raw)
	if err != nil {
		return CampaignFinance{}, fmt.Errorf("decode finance %d: %w", id, err)
	}
	return fin, nil
}

func loadMeta(ctx context.Context, r kvReader, id uint64) (CampaignMeta, error) {
	raw, ok, err := r.Get(ctx, campaignMetaKey(id))
	if err != nil {
		return CampaignMeta{}, err
	}
	if !ok {
		return CampaignMeta{}, ErrCampaignNotFound
	}
	meta, err := decodeCampaignMeta(raw)
	if err != nil {
		return CampaignMeta{}, fmt.Errorf("decode meta %d: %w", id, err)
	}
	return meta, nil
}
