// Package mempool defines the Mempool contract (spec.md §4.3, C3): a
// durable FIFO of transactions with a "wait for the next block" primitive
// bounded by a build-time budget and a max-block-size, and a reference,
// bbolt-backed implementation of it. The Mempool's internal admission and
// fee-market policy are explicitly out of scope (spec.md §1); this package
// only provides the ordering and block-building primitive the sequencer
// needs.
package mempool

import (
	"context"

	"github.com/movementlabsxyz/full-node/block"
)

// Mempool is the external contract the DA sequencer drives (spec.md §4.3).
type Mempool interface {
	// PublishMany atomically appends txs to the durable queue, in order.
	PublishMany(ctx context.Context, txs []block.Transaction) error

	// WaitForNextBlock blocks until either the build-time budget elapses
	// or MaxBlockSizeBytes is reached, returning the built block. It
	// returns (nil, nil) if no transactions were available within the
	// time budget; that is not an error (spec.md §4.3).
	WaitForNextBlock(ctx context.Context) (*block.Block, error)

	// BuildingTimeMs is the configured block-build time budget, used by
	// the publisher to size its own batching window (spec.md §4.3).
	BuildingTimeMs() int64
}
