package sdk

import (
	"context"
	"time"
)

// Env is the per-call environment a transport hands to the contract: who called, under
// which transaction id and when.
type Env struct {
	Sender    Address
	TxID      string
	Timestamp time.Time
}

type envKey struct{}

// WithEnv attaches the call environment to ctx.
// Example payload: sdk.WithEnv(ctx, sdk.Env{Sender: "hive:alice", TxID: "tx-1"})
func WithEnv(ctx context.Context, env Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// GetEnv returns the environment stored on ctx, or the zero Env.
func GetEnv(ctx context.Context) Env {
	env, _ := ctx.Value(envKey{}).(Env)
	return env
}
