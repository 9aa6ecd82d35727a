// Package node wires the mempool, DA store, executor, and settlement
// manager into the full-node's three concurrent loops (spec.md §4.5, C8):
// writing incoming transactions to DA, consuming the DA stream to drive
// execution, and forwarding executor commitments to settlement while
// watching for settlement's own accept/reject events.
package node

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/movementlabsxyz/full-node/block"
	"github.com/movementlabsxyz/full-node/da"
	"github.com/movementlabsxyz/full-node/executor"
	"github.com/movementlabsxyz/full-node/settlement"
	"golang.org/x/sync/errgroup"
)

// Driver joins the transaction-writer, DA-consumer, and commitment-event
// loops the way original_source's SuzukaPartialNode.run_executor joins
// write_transactions_to_da and read_blocks_from_da with try_join!: any
// one loop failing stops the others (spec.md §5).
type Driver struct {
	logger     hclog.Logger
	txIn       <-chan block.Transaction
	store      da.BlobStore
	namespace  da.Namespace
	executor   executor.Executor
	settlement settlement.Manager
}

// NewDriver constructs a Driver. txIn carries the transactions the writer
// loop batches to DA; the driver only reads from it. The executor does not
// feed it, and cmd/fullnode passes a channel that nothing writes to.
func NewDriver(logger hclog.Logger, txIn <-chan block.Transaction, store da.BlobStore, namespace da.Namespace, exec executor.Executor, mgr settlement.Manager) *Driver {
	return &Driver{
		logger:     logger.Named("node.driver"),
		txIn:       txIn,
		store:      store,
		namespace:  namespace,
		executor:   exec,
		settlement: mgr,
	}
}

// Run drives all three loops until ctx is canceled or one fails.
func (d *Driver) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.runTransactionWriter(ctx) })
	g.Go(func() error { return d.runBlockConsumer(ctx) })
	g.Go(func() error { return d.runCommitmentEvents(ctx) })
	return g.Wait()
}

// runCommitmentEvents watches settlement's event stream and advances the
// executor's finalized height on acceptance (spec.md §4.6), mirroring
// original_source's read_commitment_events.
func (d *Driver) runCommitmentEvents(ctx context.Context) error {
	events := d.settlement.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch e := ev.(type) {
			case block.Accepted:
				d.logger.Debug("commitment accepted", "height", e.Commitment.Height)
				if err := d.executor.SetFinalizedBlockHeight(ctx, e.Commitment.Height); err != nil {
					return err
				}
			case block.Rejected:
				d.logger.Warn("commitment rejected", "height", e.Height, "reason", e.Reason)
			}
		}
	}
}
