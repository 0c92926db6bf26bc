package tx

import (
	"context"
	"hash/fnv"
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// numShards spreads entity keys over independent locks so operations on
// different appointments or blood units never contend with each other.
const numShards = 128

// defaultTxTimeout bounds how long a lifecycle transaction may wait for its
// shard. Contention past the deadline fails with a retryable Conflict rather
// than blocking indefinitely.
const defaultTxTimeout = 5 * time.Second

// Sharded serializes critical sections by entity key using sharded
// semaphores. It backs the in-memory store wiring; the Postgres wiring uses
// real transactions with row locks instead.
type Sharded struct {
	shards  [numShards]chan struct{}
	timeout time.Duration
}

// NewSharded constructs a keyed transaction runner. A zero timeout selects
// the default.
func NewSharded(timeout time.Duration) *Sharded {
	s := &Sharded{timeout: timeout}
	for i := range s.shards {
		s.shards[i] = make(chan struct{}, 1)
	}
	return s
}

// RunInTx executes fn while holding the shard lock for key. Two concurrent
// calls with the same key are serialized; calls with different keys proceed
// in parallel. Waiting is bounded by the configured timeout.
func (s *Sharded) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := s.shards[shardFor(key)]
	select {
	case shard <- struct{}{}:
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeConflict, "transaction lock contention")
	}
	defer func() { <-shard }()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numShards
}
