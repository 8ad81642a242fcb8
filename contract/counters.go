package contract

import (
	"context"
	"strconv"

	"crowdfundr/sdk"
)

// Index key prefixes for counting entities.
const (
	// CampaignsCount holds an integer counter for campaigns (used for generating IDs).
	CampaignsCount = "count:camp"
)

// kvReader is satisfied by sdk.State and *sdk.Tx.
type kvReader interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// getCount reads the string counter under the key and defaults to zero, nothing magical here.
func getCount(ctx context.Context, r kvReader, key string) (uint64, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil || !ok || v == "" {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

// setCount stores uint64 counters back as decimal strings for the host kv.
func setCount(tx *sdk.Tx, key string, n uint64) {
	tx.Set(key, strconv.FormatUint(n, 10))
}

// UInt64ToString turns an id back into decimal text for logs or handles.
// Example payload: UInt64ToString(9001)
func UInt64ToString(val uint64) string {
	return strconv.FormatUint(val, 10)
}
