// Package da wires the grouping pipeline and mempool into a publisher
// that pushes built blocks to an external DA blob store, and defines the
// BlobStore contract that store's networking layer satisfies (spec.md §4,
// C4). The store's own network client is out of scope (spec.md §1); this
// package only states the surface it must expose and drives it.
package da

import (
	"context"

	"github.com/movementlabsxyz/full-node/block"
)

// Namespace scopes blobs within the DA store to this chain (spec.md §6).
type Namespace = block.Namespace

// Blob pairs a blob's bytes with the client-chosen id the DA store
// deduplicates submissions on (spec.md §4.3). Both the sequencer's built
// blocks (block.WrappedBlock.BlobID) and the node's raw transaction writes
// carry one.
type Blob struct {
	ID   string
	Data []byte
}

// BatchWriteResult is returned per blob submitted in a BatchWrite call.
type BatchWriteResult struct {
	BlobID string
	Err    error
}

// BlobStore is the external DA contract (spec.md §4.2, §6): six RPCs
// mirroring a streaming blob store, plus CurrentHeight for tagging write
// intents, seven methods in all. stream_write_blob has no client-facing
// use in this driver (only batch writes are issued) and is intentionally
// left unimplemented, matching the reference service's own
// unimplemented!() for that one RPC.
type BlobStore interface {
	// BatchWrite submits blobs for inclusion, returning one result per
	// blob in order.
	BatchWrite(ctx context.Context, namespace Namespace, blobs []Blob) ([]BatchWriteResult, error)

	// CurrentHeight reports the DA head height at call time, used to tag
	// SequencedBlobIntent responses on the client write path (spec.md §3,
	// §4.3).
	CurrentHeight(ctx context.Context, namespace Namespace) (uint64, error)

	// BatchRead fetches the raw blob bytes for the given blob ids.
	BatchRead(ctx context.Context, namespace Namespace, blobIDs []string) ([][]byte, error)

	// ReadAtHeight fetches every blob recorded at height.
	ReadAtHeight(ctx context.Context, namespace Namespace, height uint64) ([]block.BlobResponse, error)

	// StreamReadFromHeight streams every blob from height onward until ctx
	// is canceled.
	StreamReadFromHeight(ctx context.Context, namespace Namespace, height uint64) (<-chan block.BlobResponse, <-chan error)

	// StreamReadLatest streams every new blob as it lands, starting from
	// whatever height is current when the stream opens.
	StreamReadLatest(ctx context.Context, namespace Namespace) (<-chan block.BlobResponse, <-chan error)

	// UpdateVerificationParameters reconfigures the store's light-client
	// verification window; opaque to this driver beyond passing it through.
	UpdateVerificationParameters(ctx context.Context, params []byte) error
}
