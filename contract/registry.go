package contract

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"crowdfundr/sdk"
)

// Registry creates campaigns, hands out their handles and keeps the live instances.
type Registry struct {
	state  sdk.State
	ledger sdk.Ledger
	sink   RecordSink
	log    *zap.Logger
	now    func() time.Time

	lockWait time.Duration

	mu        sync.Mutex
	campaigns map[uint64]*Campaign
}

type Option func(*Registry)

// WithClock swaps the wall clock, tests use it to travel past deadlines.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithLockWait bounds how long a re-entered call waits for another campaign's lock.
func WithLockWait(d time.Duration) Option {
	return func(r *Registry) { r.lockWait = d }
}

// WithSink publishes every committed record to sink.
func WithSink(sink RecordSink) Option {
	return func(r *Registry) { r.sink = sink }
}

func NewRegistry(state sdk.State, ledger sdk.Ledger, opts ...Option) *Registry {
	r := &Registry{
		state:     state,
		ledger:    ledger,
		log:       zap.NewNop(),
		now:       time.Now,
		lockWait:  DefaultLockWait,
		campaigns: make(map[uint64]*Campaign),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// clock prefers the host-provided call timestamp and falls back to the registry clock.
func (r *Registry) clock(ctx context.Context) time.Time {
	if ts := sdk.GetEnv(ctx).Timestamp; !ts.IsZero() {
		return ts
	}
	return r.now()
}

// Create opens a new campaign owned by caller with the 30 day window starting now.
// Example payload: r.Create(ctx, "hive:alice", sdk.Units(100), "Garden", "GRDN")
func (r *Registry) Create(ctx context.Context, caller sdk.Address, goal *uint256.Int, name, symbol string) (*Campaign, Record, error) {
	owner, err := normalizeCaller(caller)
	if err != nil {
		return nil, Record{}, err
	}
	if goal == nil {
		return nil, Record{}, ErrInvalidAmount
	}
	if goal.Lt(MinContribution) {
		return nil, Record{}, ErrGoalTooLow
	}
	name, symbol = strings.TrimSpace(name), strings.TrimSpace(symbol)
	if name == "" || len(name) > MaxNameLength {
		return nil, Record{}, withCause(ErrInvalidArgument, fmt.Errorf("name must be 1-%d bytes", MaxNameLength))
	}
	if symbol == "" || len(symbol) > MaxSymbolLength {
		return nil, Record{}, withCause(ErrInvalidArgument, fmt.Errorf("symbol must be 1-%d bytes", MaxSymbolLength))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := sdk.NewTx(r.state)
	last, err := getCount(ctx, tx, CampaignsCount)
	if err != nil {
		return nil, Record{}, err
	}
	now := r.clock(ctx)
	meta := CampaignMeta{
		ID:        last + 1,
		Owner:     owner,
		Goal:      goal.Clone(),
		CreatedAt: now.UnixNano(),
		Name:      name,
		Symbol:    symbol,
	}
	fin := newFinance()
	fin.RecordCount = 1
	rec := createdRecord(meta)
	rec.Campaign = meta.ID
	rec.Seq = 1
	rec.TxID = sdk.GetEnv(ctx).TxID
	rec.At = meta.CreatedAt

	setCount(tx, CampaignsCount, meta.ID)
	tx.Set(campaignMetaKey(meta.ID), encodeCampaignMeta(meta))
	tx.Set(campaignFinanceKey(meta.ID), encodeCampaignFinance(fin))
	tx.Set(recordKey(meta.ID, 1), encodeRecord(rec))
	undo, err := tx.Commit(ctx)
	if err != nil {
		r.log.Error("create campaign commit failed", zap.Error(err))
		return nil, Record{}, fmt.Errorf("commit create: %w", err)
	}

	c := r.install(meta)
	// inside a hook chain the creation rolls back with the rest of the chain
	if ch, ok := chainFrom(ctx); ok {
		ch.undo = append(ch.undo, undoEntry{muts: undo, revert: func() { r.uninstall(c) }})
		ch.pending = append(ch.pending, rec)
	} else {
		emitRecord(r.log, r.sink, rec)
	}
	return c, rec, nil
}

// install caches a campaign and points the ledger hook of its handle at Receive.
// Caller holds r.mu.
func (r *Registry) install(meta CampaignMeta) *Campaign {
	c := &Campaign{meta: meta, reg: r}
	r.campaigns[meta.ID] = c
	r.ledger.OnReceive(c.Handle(), c.Receive)
	return c
}

// uninstall forgets a campaign whose creation was rolled back. Instances already handed
// out answer ErrCampaignNotFound from then on, even once the id is reused.
func (r *Registry) uninstall(c *Campaign) {
	c.dropped.Store(true)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.campaigns[c.meta.ID] == c {
		delete(r.campaigns, c.meta.ID)
		r.ledger.OnReceive(c.Handle(), nil)
	}
}

// Campaign returns the live instance for id, loading it from state on first use.
func (r *Registry) Campaign(ctx context.Context, id uint64) (*Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		return c, nil
	}
	meta, err := loadMeta(ctx, r.state, id)
	if err != nil {
		return nil, err
	}
	return r.install(meta), nil
}

// CampaignByHandle resolves contract:campaign-<id>.
func (r *Registry) CampaignByHandle(ctx context.Context, handle sdk.Address) (*Campaign, error) {
	raw, ok := strings.CutPrefix(handle.String(), handlePrefix)
	if !ok {
		return nil, ErrCampaignNotFound
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || UInt64ToString(id) != raw {
		return nil, ErrCampaignNotFound
	}
	return r.Campaign(ctx, id)
}

// Count is the number of campaigns ever created.
func (r *Registry) Count(ctx context.Context) (uint64, error) {
	return getCount(ctx, r.state, CampaignsCount)
}

// Load installs every persisted campaign so their handles refuse direct transfers from
// the first request on.
func (r *Registry) Load(ctx context.Context) error {
	n, err := r.Count(ctx)
	if err != nil {
		return err
	}
	for id := uint64(1); id <= n; id++ {
		if _, err := r.Campaign(ctx, id); err != nil {
			return fmt.Errorf("load campaign %d: %w", id, err)
		}
	}
	r.log.Info("campaigns loaded", zap.Uint64("count", n))
	return nil
}

// List snapshots every campaign in id order.
func (r *Registry) List(ctx context.Context) ([]Snapshot, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, n)
	for id := uint64(1); id <= n; id++ {
		c, err := r.Campaign(ctx, id)
		if err != nil {
			return nil, err
		}
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}
