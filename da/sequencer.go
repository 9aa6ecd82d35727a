package da

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/movementlabsxyz/full-node/block"
	"github.com/movementlabsxyz/full-node/grouping"
	"github.com/movementlabsxyz/full-node/mempool"
	"github.com/movementlabsxyz/full-node/nodeerrs"
	"golang.org/x/sync/errgroup"
)

// oversizeCapacityBytes is the DA store's blob size budget used to bin-pack
// submission groups (spec.md §9, scenario 3).
const oversizeCapacityBytes = 1_700_000

// logUID correlates a single build-publish round's log lines across the
// builder and publisher goroutines (spec.md §7).
var logUID atomic.Uint64

// Sequencer drains the mempool, wraps built blocks for the DA store, and
// submits them under a split/bin-pack/retry grouping pipeline (spec.md
// §4.2). The builder and publisher run concurrently, joined by an
// errgroup so either's failure stops both (spec.md §5).
type Sequencer struct {
	logger    hclog.Logger
	mempool   mempool.Mempool
	store     BlobStore
	namespace Namespace
}

// NewSequencer constructs a Sequencer over mp, publishing to store under
// namespace.
func NewSequencer(logger hclog.Logger, mp mempool.Mempool, store BlobStore, namespace Namespace) *Sequencer {
	return &Sequencer{
		logger:    logger.Named("da.sequencer"),
		mempool:   mp,
		store:     store,
		namespace: namespace,
	}
}

// Run drives the builder and publisher loops until ctx is canceled or
// either fails.
func (s *Sequencer) Run(ctx context.Context) error {
	blocks := make(chan block.Block, 1024)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runBuilder(ctx, blocks) })
	g.Go(func() error { return s.runPublisher(ctx, blocks) })
	return g.Wait()
}

func (s *Sequencer) runBuilder(ctx context.Context, out chan<- block.Block) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		uid := logUID.Add(1)
		s.logger.Debug("waiting for next block", "uid", uid)

		blk, err := s.mempool.WaitForNextBlock(ctx)
		if err != nil {
			return err
		}
		if blk == nil {
			s.logger.Debug("no transactions to include", "uid", uid)
			continue
		}

		s.logger.Info("received block", "uid", uid, "block_id", blk.ID(), "tx_count", len(blk.Transactions))
		select {
		case out <- *blk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Sequencer) runPublisher(ctx context.Context, in <-chan block.Block) error {
	for {
		batch, err := s.readBatch(ctx, in)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			continue
		}

		ids := make([]block.ID, len(batch))
		for i, b := range batch {
			ids[i] = b.ID()
		}
		s.logger.Info("submitting block batch", "block_ids", ids)

		if err := s.submitWithHeuristic(ctx, batch); err != nil {
			return err
		}
		s.logger.Info("submitted block batch", "block_ids", ids)
	}
}

// readBatch accumulates blocks off in until the mempool's build-time
// budget elapses or in is closed, mirroring the reference read_blocks
// loop's rolling deadline.
func (s *Sequencer) readBatch(ctx context.Context, in <-chan block.Block) ([]block.Block, error) {
	deadline := time.Now().Add(time.Duration(s.mempool.BuildingTimeMs()) * time.Millisecond)
	var batch []block.Block

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return batch, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case blk, ok := <-in:
			timer.Stop()
			if !ok {
				return batch, nil
			}
			batch = append(batch, blk)
		case <-timer.C:
			return batch, nil
		}
	}
}

// submitWithHeuristic wraps blocks for the DA store and runs them through
// the split/bin-pack/retry pipeline (spec.md §4.2). It returns nil once
// every item has succeeded, an Oversize error for a single-transaction
// block that still exceeds capacity, and a DaFatal error if items remain
// unsubmitted after ten passes.
func (s *Sequencer) submitWithHeuristic(ctx context.Context, blocks []block.Block) error {
	wrapped := make([]block.WrappedBlock, len(blocks))
	for i, b := range blocks {
		wrapped[i] = block.WrapBlock(b, s.namespace)
	}

	current := grouping.NewApplyOutcome(wrapped)
	binpack := grouping.NewFirstFitBinpacking[block.WrappedBlock](oversizeCapacityBytes)

	// preStack (and the SkipFor guard inside it) is built once per batch and
	// reused across retry passes: SkipFor(1, ...) must see its call count
	// persist pass-to-pass so splitting only kicks in from the second pass
	// onward (spec.md §4.3: "On the first iteration of the stack, the skip
	// guard is cleared so splitting applies on subsequent retries only").
	// Rebuilding it inside the loop would reset the guard every pass and
	// Splitting would never run.
	preStack := grouping.NewStack[block.WrappedBlock](
		grouping.DropSuccess[block.WrappedBlock]{},
		grouping.ToApply[block.WrappedBlock]{},
		grouping.NewSkipFor[block.WrappedBlock](1, grouping.NewSplitting[block.WrappedBlock](2)),
	)

	for pass := 0; ; pass++ {
		results, err := grouping.RunSequentialWithMetadata(current, preStack, binpack,
			func(index int, group []block.WrappedBlock, flag bool) (grouping.Outcome[block.WrappedBlock], bool, error) {
				if err := s.submitGroup(ctx, group); err != nil {
					s.logger.Warn("group submission failed, will retry", "index", index, "error", err)
					return grouping.NewApplyOutcome(group), true, nil
				}
				return grouping.NewAllSuccess[block.WrappedBlock](len(group)), flag, nil
			},
		)
		if err != nil {
			return err
		}

		current = grouping.Flatten(results)
		if allTerminal(current) {
			return nil
		}
		if oversize := findUnresolvableOversize(current, oversizeCapacityBytes); oversize != nil {
			return oversize
		}
		if pass > 8 {
			return &nodeerrs.DaFatal{Cause: context.DeadlineExceeded}
		}
	}
}

// findUnresolvableOversize looks for a Failure item that Splitting can
// never shrink further (a single-transaction block) whose weight still
// exceeds capacity, the grouping stack's Oversize case (spec.md §4.2,
// §7): no amount of retrying will make this item submittable.
func findUnresolvableOversize(o grouping.Outcome[block.WrappedBlock], capacity int) *nodeerrs.Oversize {
	for _, item := range o.Items {
		if item.Label != grouping.LabelFailure {
			continue
		}
		w := item.Value
		if w.Weight() > capacity && len(w.Block.Transactions) <= 1 {
			return &nodeerrs.Oversize{Weight: w.Weight(), Capacity: capacity}
		}
	}
	return nil
}

func (s *Sequencer) submitGroup(ctx context.Context, group []block.WrappedBlock) error {
	blobs := make([]Blob, len(group))
	for i, w := range group {
		blobs[i] = Blob{ID: w.BlobID, Data: w.Blob}
	}

	results, err := s.store.BatchWrite(ctx, s.namespace, blobs)
	if err != nil {
		return &nodeerrs.DaTransient{Cause: err}
	}
	for _, r := range results {
		if r.Err != nil {
			return &nodeerrs.DaTransient{Cause: r.Err}
		}
	}
	return nil
}

// allTerminal reports whether every item in o has succeeded. Apply and
// Failure items both still need another pass: Failure is relabeled back to
// Apply by ToApply at the start of the next pass (spec.md §4.2).
func allTerminal(o grouping.Outcome[block.WrappedBlock]) bool {
	for _, item := range o.Items {
		if item.Label != grouping.LabelSuccess {
			return false
		}
	}
	return true
}
