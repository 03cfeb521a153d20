package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "fintrust/pkg/domain-errors"
)

// ConsentStoreTx runs a consent mutation and its audit write as one unit.
// Mutations for the same subject never interleave; fn receives the store to
// write through and a context carrying any underlying transaction.
type ConsentStoreTx interface {
	RunInTx(ctx context.Context, subjectID string, fn func(ctx context.Context, store Store) error) error
}

const (
	lockStripes  = 128
	txTimeout    = 5 * time.Second
	txAbortedMsg = "consent transaction aborted"
)

// stripedTx guards an in-memory store with one mutex per hash stripe of the
// subject id.
type stripedTx struct {
	stripes [lockStripes]sync.Mutex
	store   Store
}

// NewShardedTx serializes mutations per subject over an in-memory store.
func NewShardedTx(store Store) ConsentStoreTx {
	return &stripedTx{store: store}
}

func (t *stripedTx) RunInTx(ctx context.Context, subjectID string, fn func(ctx context.Context, store Store) error) error {
	ctx, cancel := WithTxDeadline(ctx)
	defer cancel()

	mu := &t.stripes[stripe(subjectID)]
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, txAbortedMsg)
	}
	return fn(ctx, t.store)
}

// WithTxDeadline bounds a consent transaction when the caller set no deadline.
func WithTxDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, txTimeout)
}

func stripe(subjectID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	return h.Sum32() % lockStripes
}
