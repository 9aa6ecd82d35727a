// Package settlement defines the Manager contract (spec.md §4.6, C7): an
// L1 settlement contract that accepts block commitments and reports back
// acceptance or rejection. The contract and RPC client's own internals are
// out of scope (spec.md §1); this package states the interface the node
// driver drives, plus an EthClient implementation that
// posts commitments to an L1 contract over go-ethereum's ethclient.
package settlement

import (
	"context"

	"github.com/movementlabsxyz/full-node/block"
)

// RejectionPolicy controls what the driver does when a settlement
// rejection event is observed (spec.md §9 [EXPANSION]).
type RejectionPolicy int

const (
	// PolicyLogOnly logs the rejection and continues driving the chain;
	// this is the default since a single sequencer has no fork-choice
	// alternative to fall back to (spec.md §1 Non-goals: no multi-sequencer
	// consensus).
	PolicyLogOnly RejectionPolicy = iota
	// PolicyHalt stops the driver on the first observed rejection,
	// requiring operator intervention.
	PolicyHalt
)

func (p RejectionPolicy) String() string {
	switch p {
	case PolicyLogOnly:
		return "log-only"
	case PolicyHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Manager is the external contract the node driver forwards executed
// block commitments to (spec.md §4.6).
type Manager interface {
	// PostBlockCommitment submits c for settlement. It returns once the
	// submission transaction is accepted into a pending state, not once
	// it is confirmed; confirmation surfaces asynchronously via Events.
	PostBlockCommitment(ctx context.Context, c block.BlockCommitment) error

	// Events streams BlockCommitmentEvent as L1 confirms or rejects
	// posted commitments.
	Events() <-chan block.BlockCommitmentEvent

	// Close releases any underlying connection.
	Close() error
}
