// Package block defines the node's core data types: the opaque
// Transaction, the immutable Block, and the compressed, splittable,
// weighted WrappedBlock the DA sequencer actually submits.
package block

import (
	"crypto/sha256"
)

// ID is a 32-byte content-derived block digest.
type ID [32]byte

// Transaction is an opaque, serializable user payload. Equality is
// defined by its bytes (spec.md §3).
type Transaction []byte

// Bytes returns the transaction's wire bytes.
func (t Transaction) Bytes() []byte { return t }

// Equal reports byte equality with other.
func (t Transaction) Equal(other Transaction) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Block is an ordered batch of transactions, immutable once built. ID is
// derived from the block's canonical binary encoding; ParentID and
// Timestamp order blocks monotonically within a single sequencer's
// stream (spec.md §3).
type Block struct {
	id           ID
	ParentID     ID
	TimestampMs  uint64
	Transactions []Transaction
}

// New builds a Block and computes its id from the canonical encoding.
func New(parentID ID, timestampMs uint64, txs []Transaction) Block {
	b := Block{ParentID: parentID, TimestampMs: timestampMs, Transactions: txs}
	b.id = ID(sha256.Sum256(Encode(b)))
	return b
}

// ID returns the block's content-derived digest.
func (b Block) ID() ID { return b.id }

// Split partitions the block into factor sub-blocks, each a disjoint,
// order-preserving partition of its transactions, and each a valid Block
// with a fresh id (spec.md §3). The last sub-block absorbs any remainder
// from an uneven division. Split fails if there are fewer transactions
// than factor (indivisible).
func (b Block) Split(factor int) ([]Block, error) {
	if factor <= 0 || len(b.Transactions) < factor {
		return nil, errIndivisible
	}

	size := len(b.Transactions) / factor
	out := make([]Block, 0, factor)
	for i := 0; i < factor; i++ {
		start := i * size
		end := start + size
		if i == factor-1 {
			end = len(b.Transactions)
		}
		sub := New(b.ParentID, b.TimestampMs, b.Transactions[start:end])
		out = append(out, sub)
	}
	return out, nil
}
