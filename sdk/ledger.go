package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// ReceiveHook runs when value is pushed to an address through Transfer. Returning an error
// rejects the payment and the ledger rolls it back.
type ReceiveHook func(ctx context.Context, from Address, amount *uint256.Int) error

// Ledger moves native value between addresses.
//
// Draw pulls funds the caller already allowed (the contribute path) and never runs hooks.
// Transfer pushes funds and hands control to the recipient's hook, if any.
type Ledger interface {
	BalanceOf(ctx context.Context, addr Address) (*uint256.Int, error)
	Draw(ctx context.Context, from, to Address, amount *uint256.Int) error
	Transfer(ctx context.Context, from, to Address, amount *uint256.Int) error
	OnReceive(addr Address, hook ReceiveHook)
}

// MemoryLedger is an in-process Ledger. Every move made while a hook chain is running is
// journaled on the context, so a rejected Transfer also unwinds the moves its hook made.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[Address]*uint256.Int
	hooks    map[Address]ReceiveHook
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[Address]*uint256.Int),
		hooks:    make(map[Address]ReceiveHook),
	}
}

// Deposit mints funds out of thin air. Used by the dev faucet and tests.
// Example payload: l.Deposit("hive:alice", sdk.Units(100))
func (l *MemoryLedger) Deposit(addr Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	next, err := Add(l.balanceLocked(addr), amount)
	if err != nil {
		return err
	}
	l.balances[addr] = next
	return nil
}

func (l *MemoryLedger) BalanceOf(_ context.Context, addr Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(addr).Clone(), nil
}

// OnReceive installs (or with nil, removes) the receive hook of addr.
func (l *MemoryLedger) OnReceive(addr Address, hook ReceiveHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hook == nil {
		delete(l.hooks, addr)
		return
	}
	l.hooks[addr] = hook
}

func (l *MemoryLedger) Draw(ctx context.Context, from, to Address, amount *uint256.Int) error {
	j := journalFrom(ctx)
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	if j != nil {
		j.moves = append(j.moves, ledgerMove{from: from, to: to, amount: amount.Clone()})
	}
	return nil
}

func (l *MemoryLedger) Transfer(ctx context.Context, from, to Address, amount *uint256.Int) error {
	ctx, j := withJournal(ctx)
	mark := len(j.moves)
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	j.moves = append(j.moves, ledgerMove{from: from, to: to, amount: amount.Clone()})

	l.mu.Lock()
	hook := l.hooks[to]
	l.mu.Unlock()
	if hook == nil {
		return nil
	}
	if err := hook(ctx, from, amount); err != nil {
		if uerr := l.unwind(j, mark); uerr != nil {
			return errors.Join(err, uerr)
		}
		return err
	}
	return nil
}

func (l *MemoryLedger) move(from, to Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balanceLocked(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from, FormatAmount(bal), FormatAmount(amount))
	}
	credited, err := Add(l.balanceLocked(to), amount)
	if err != nil {
		return err
	}
	l.balances[from] = new(uint256.Int).Sub(bal, amount)
	l.balances[to] = credited
	return nil
}

// unwind reverses every journaled move from mark on, newest first, and truncates the journal.
func (l *MemoryLedger) unwind(j *ledgerJournal, mark int) error {
	var errs []error
	for i := len(j.moves) - 1; i >= mark; i-- {
		m := j.moves[i]
		if err := l.move(m.to, m.from, m.amount); err != nil {
			errs = append(errs, fmt.Errorf("unwind %s -> %s: %w", m.from, m.to, err))
		}
	}
	j.moves = j.moves[:mark]
	return errors.Join(errs...)
}

func (l *MemoryLedger) balanceLocked(addr Address) *uint256.Int {
	if b, ok := l.balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}

// ---------------------------------------------------------------------------
// hook chain journal
// ---------------------------------------------------------------------------

type ledgerMove struct {
	from, to Address
	amount   *uint256.Int
}

type ledgerJournal struct {
	moves []ledgerMove
}

type journalKey struct{}

func journalFrom(ctx context.Context) *ledgerJournal {
	j, _ := ctx.Value(journalKey{}).(*ledgerJournal)
	return j
}

func withJournal(ctx context.Context) (context.Context, *ledgerJournal) {
	if j := journalFrom(ctx); j != nil {
		return ctx, j
	}
	j := &ledgerJournal{}
	return context.WithValue(ctx, journalKey{}, j), j
}
