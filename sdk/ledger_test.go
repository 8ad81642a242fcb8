package sdk

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balance(t *testing.T, l *MemoryLedger, addr Address) string {
	t.Helper()
	b, err := l.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return FormatAmount(b)
}

func TestMemoryLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Deposit("hive:alice", Units(10)))

	require.NoError(t, l.Transfer(ctx, "hive:alice", "hive:bob", Units(4)))
	assert.Equal(t, "6", balance(t, l, "hive:alice"))
	assert.Equal(t, "4", balance(t, l, "hive:bob"))

	err := l.Transfer(ctx, "hive:bob", "hive:alice", Units(5))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, "4", balance(t, l, "hive:bob"))
}

func TestMemoryLedgerDrawSkipsHooks(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Deposit("hive:alice", Units(1)))
	l.OnReceive("contract:campaign-1", func(context.Context, Address, *uint256.Int) error {
		return errors.New("nope")
	})

	require.NoError(t, l.Draw(ctx, "hive:alice", "contract:campaign-1", Units(1)))
	assert.Equal(t, "1", balance(t, l, "contract:campaign-1"))

	require.NoError(t, l.Deposit("hive:alice", Units(1)))
	err := l.Transfer(ctx, "hive:alice", "contract:campaign-1", Units(1))
	require.EqualError(t, err, "nope")
	assert.Equal(t, "1", balance(t, l, "hive:alice"))
	assert.Equal(t, "1", balance(t, l, "contract:campaign-1"))
}

func TestMemoryLedgerRejectedHookUnwindsNestedMoves(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Deposit("hive:vault", Units(10)))

	// mallory forwards what she receives to eve, then rejects the payment
	l.OnReceive("hive:mallory", func(ctx context.Context, _ Address, amount *uint256.Int) error {
		if err := l.Transfer(ctx, "hive:mallory", "hive:eve", amount); err != nil {
			return err
		}
		return l.Draw(ctx, "hive:vault", "hive:eve", Units(1))
	})
	l.OnReceive("hive:eve", func(context.Context, Address, *uint256.Int) error { return nil })
	require.NoError(t, l.Transfer(ctx, "hive:vault", "hive:mallory", Units(3)))
	assert.Equal(t, "6", balance(t, l, "hive:vault"))
	assert.Equal(t, "4", balance(t, l, "hive:eve"))

	l.OnReceive("hive:eve", func(context.Context, Address, *uint256.Int) error { return errors.New("eve is closed") })
	err := l.Transfer(ctx, "hive:vault", "hive:mallory", Units(3))
	require.Error(t, err)
	assert.Equal(t, "6", balance(t, l, "hive:vault"))
	assert.Equal(t, "0", balance(t, l, "hive:mallory"))
	assert.Equal(t, "4", balance(t, l, "hive:eve"))
}

func TestMemoryLedgerHookCanBeRemoved(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Deposit("hive:alice", Units(1)))
	l.OnReceive("hive:bob", func(context.Context, Address, *uint256.Int) error { return errors.New("closed") })
	l.OnReceive("hive:bob", nil)
	require.NoError(t, l.Transfer(context.Background(), "hive:alice", "hive:bob", Units(1)))
}
