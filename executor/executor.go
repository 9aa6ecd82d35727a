// Package executor defines the Executor contract (spec.md §4.7, C6): the
// Move VM integration is explicitly out of scope (spec.md §1), so this
// package only states the interface the rest of the node drives, plus an
// InMemory reference implementation used by node package tests to make
// the driver's concurrency and wiring testable without a real VM.
package executor

import (
	"context"
	"encoding/binary"

	"github.com/movementlabsxyz/full-node/block"
)

// BlockMetadata is the pseudo-transaction synthesized as the first
// transaction of every executable block (spec.md §4.4): the sha256 digest
// of the blob id, plus the timestamp.
type BlockMetadata struct {
	BlobIDDigest block.ID
	TimestampMs  uint64
}

// Encode serializes m into the pseudo-transaction prepended to an
// ExecutableBlock's Transactions: a fixed-width 32-byte digest followed by
// the big-endian uint64 timestamp, with no length prefix.
func (m BlockMetadata) Encode() block.Transaction {
	buf := make([]byte, 32+8)
	copy(buf[:32], m.BlobIDDigest[:])
	binary.BigEndian.PutUint64(buf[32:], m.TimestampMs)
	return block.Transaction(buf)
}

// ExecutableBlock is what the DA stream consumer hands to ExecuteBlockOpt: a
// BlockMetadata pseudo-transaction followed by the block's user
// transactions (spec.md §4.4).
type ExecutableBlock struct {
	ID           block.ID
	Transactions []block.Transaction
}

// Executor is the external contract the node drives (spec.md §4.7).
// ExecuteBlockOpt is deterministic given the same sequence of blocks and never
// partially executes: all or nothing per block.
type Executor interface {
	// BlockHeadHeight is the height of the next block the executor
	// expects; the DA stream consumer resumes from here (spec.md §4.4).
	BlockHeadHeight(ctx context.Context) (uint64, error)

	// BuildBlockMetadata synthesizes the pseudo-transaction prepended to
	// every executable block from the sha256 digest of the originating
	// blob's id (spec.md §4.4), not the block's own parent id.
	BuildBlockMetadata(ctx context.Context, blobIDDigest block.ID, timestampMs uint64) (BlockMetadata, error)

	// ExecuteBlockOpt deterministically executes eb and returns its
	// commitment.
	ExecuteBlockOpt(ctx context.Context, eb ExecutableBlock) (block.BlockCommitment, error)

	// SetFinalizedBlockHeight advances the finalized height once an
	// Accepted event is observed (spec.md §4.5).
	SetFinalizedBlockHeight(ctx context.Context, height uint64) error
}
