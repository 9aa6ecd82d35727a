package executor

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/movementlabsxyz/full-node/block"
)

// InMemory is a reference Executor: it does not run the Move VM (spec.md
// §1 Non-goals explicitly exclude VM internals), it only deterministically
// folds each ExecutableBlock's bytes into a running state root so the rest
// of the node (the driver, the DA consumer, settlement forwarding) can be
// exercised and tested end to end without a real VM attached.
type InMemory struct {
	logger hclog.Logger

	mu        sync.Mutex
	height    uint64
	finalized uint64
	stateRoot [32]byte
}

// NewInMemory constructs an empty InMemory executor at height 0.
func NewInMemory(logger hclog.Logger) *InMemory {
	return &InMemory{logger: logger.Named("executor.inmemory")}
}

// BlockHeadHeight implements Executor.
func (e *InMemory) BlockHeadHeight(ctx context.Context) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.height, nil
}

// BuildBlockMetadata implements Executor: the pseudo-transaction is the
// blob id digest and timestamp, nothing more. A real VM would stamp richer
// per-block context here.
func (e *InMemory) BuildBlockMetadata(ctx context.Context, blobIDDigest block.ID, timestampMs uint64) (BlockMetadata, error) {
	return BlockMetadata{BlobIDDigest: blobIDDigest, TimestampMs: timestampMs}, nil
}

// ExecuteBlockOpt implements Executor: folds every transaction's bytes
// into the running state root via SHA-256, deterministically and
// independent of execution order ambiguity since transactions are applied
// in the order given.
func (e *InMemory) ExecuteBlockOpt(ctx context.Context, eb ExecutableBlock) (block.BlockCommitment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := sha256.New()
	h.Write(e.stateRoot[:])
	for _, tx := range eb.Transactions {
		h.Write(tx.Bytes())
	}
	var next [32]byte
	copy(next[:], h.Sum(nil))

	e.stateRoot = next

	commitment := block.BlockCommitment{
		Height:    e.height,
		BlockID:   eb.ID,
		StateRoot: e.stateRoot,
	}
	e.height++

	e.logger.Debug("executed block", "height", commitment.Height, "block_id", hexString(eb.ID[:]))
	return commitment, nil
}

// SetFinalizedBlockHeight implements Executor.
func (e *InMemory) SetFinalizedBlockHeight(ctx context.Context, height uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if height > e.finalized {
		e.finalized = height
	}
	return nil
}

// FinalizedBlockHeight reports the highest height settlement has accepted
// so far; exposed for tests, not part of the Executor contract.
func (e *InMemory) FinalizedBlockHeight() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finalized
}

func hexString(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0xf]
	}
	return string(out)
}
