package sdk

import (
	"context"
	"sort"
)

// Mutation is one key write. Delete wins over Value.
type Mutation struct {
	Key    string
	Value  string
	Delete bool
}

// State is the key/value store contracts persist into. Keys are raw byte strings.
// Apply must be atomic: either every mutation lands or none does.
type State interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Apply(ctx context.Context, muts []Mutation) error
}

type txEntry struct {
	value   string
	deleted bool
}

// Tx buffers writes on top of a State. Reads see the buffered writes first. Nothing reaches
// the backend until Commit, so dropping a Tx is a full rollback.
type Tx struct {
	base  State
	dirty map[string]txEntry
}

// NewTx opens a fresh overlay.
func NewTx(base State) *Tx {
	return &Tx{base: base, dirty: make(map[string]txEntry)}
}

// Get reads through the overlay.
func (t *Tx) Get(ctx context.Context, key string) (string, bool, error) {
	if e, ok := t.dirty[key]; ok {
		if e.deleted {
			return "", false, nil
		}
		return e.value, true, nil
	}
	return t.base.Get(ctx, key)
}

// Set buffers a write.
func (t *Tx) Set(key, value string) {
	t.dirty[key] = txEntry{value: value}
}

// Delete buffers a removal.
func (t *Tx) Delete(key string) {
	t.dirty[key] = txEntry{deleted: true}
}

// Dirty reports whether anything was buffered.
func (t *Tx) Dirty() bool { return len(t.dirty) > 0 }

// Commit applies the buffered writes in one atomic batch and returns the undo batch (the
// pre-images of every touched key). Applying the undo batch restores the backend byte for
// byte, provided nobody else wrote those keys in between.
func (t *Tx) Commit(ctx context.Context) ([]Mutation, error) {
	if !t.Dirty() {
		return nil, nil
	}
	keys := make([]string, 0, len(t.dirty))
	for k := range t.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	muts := make([]Mutation, 0, len(keys))
	undo := make([]Mutation, 0, len(keys))
	for _, k := range keys {
		prev, ok, err := t.base.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			undo = append(undo, Mutation{Key: k, Value: prev})
		} else {
			undo = append(undo, Mutation{Key: k, Delete: true})
		}
		e := t.dirty[k]
		muts = append(muts, Mutation{Key: k, Value: e.value, Delete: e.deleted})
	}
	if err := t.base.Apply(ctx, muts); err != nil {
		return nil, err
	}
	t.dirty = make(map[string]txEntry)
	return undo, nil
}
