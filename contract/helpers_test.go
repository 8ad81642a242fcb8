package contract

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"crowdfundr/sdk"
	"crowdfundr/storage"
)

const (
	ownerAddress = sdk.Address("hive:tibfox")
	alice        = sdk.Address("hive:alice")
	bob          = sdk.Address("hive:bob")
	charlie      = sdk.Address("hive:charlie")
	dan          = sdk.Address("hive:dan")
)

var defaultTimestamp = time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)

type memorySink struct {
	mu      sync.Mutex
	records []Record
}

func (s *memorySink) Publish(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *memorySink) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	state  *storage.Memory
	ledger *sdk.MemoryLedger
	sink   *memorySink
	reg    *Registry

	mu  sync.Mutex
	now time.Time
}

// newHarness sets up a registry on an in-memory store with funded test accounts.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		ctx:    context.Background(),
		state:  storage.NewMemory(),
		ledger: sdk.NewMemoryLedger(),
		sink:   &memorySink{},
		now:    defaultTimestamp,
	}
	h.reg = NewRegistry(h.state, h.ledger, WithClock(h.clock), WithSink(h.sink))
	for _, who := range []sdk.Address{ownerAddress, alice, bob, charlie, dan} {
		require.NoError(t, h.ledger.Deposit(who, sdk.Units(200)))
	}
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// advance moves the clock forward, used for expiry checks.
func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func (h *harness) create(goal string) *Campaign {
	h.t.Helper()
	c, _, err := h.reg.Create(h.ctx, ownerAddress, amt(goal), "Test Project", "TPRJ")
	require.NoError(h.t, err)
	return c
}

func (h *harness) contribute(c *Campaign, who sdk.Address, amount string) {
	h.t.Helper()
	_, err := c.Contribute(h.ctx, who, amt(amount))
	require.NoError(h.t, err)
}

func (h *harness) balance(who sdk.Address) string {
	h.t.Helper()
	b, err := h.ledger.BalanceOf(h.ctx, who)
	require.NoError(h.t, err)
	return sdk.FormatAmount(b)
}

func (h *harness) status(c *Campaign) Status {
	h.t.Helper()
	s, err := c.Status(h.ctx)
	require.NoError(h.t, err)
	return s
}

func amt(s string) *uint256.Int {
	return sdk.MustParseAmount(s)
}

const day = 24 * time.Hour
