package block

// BlobResponse is the idiomatic Go replacement for spec.md §3's tagged
// variant (PassedThrough | SequencedBlobIntent | SequencedBlobBlock): an
// interface with an unexported marker method so only the three defined
// structs in this package can implement it.
type BlobResponse interface {
	isBlobResponse()
}

// PassedThroughBlob is a blob the DA layer is relaying from another
// source, not one this sequencer produced.
type PassedThroughBlob struct {
	Data        []byte
	BlobID      string
	Height      uint64
	TimestampMs uint64
}

func (PassedThroughBlob) isBlobResponse() {}

// SequencedBlobIntent is returned synchronously on write: Height is the
// DA head height at write time, not the height the blob will ultimately
// land at (spec.md §3).
type SequencedBlobIntent struct {
	Data        []byte
	Height      uint64
	TimestampMs uint64
}

func (SequencedBlobIntent) isBlobResponse() {}

// SequencedBlobBlock is what the DA stream yields once a blob has been
// durably ordered.
type SequencedBlobBlock struct {
	Data        []byte
	BlobID      string
	Height      uint64
	TimestampMs uint64
}

func (SequencedBlobBlock) isBlobResponse() {}

// BlockCommitment attests to local execution of a block (spec.md §3).
type BlockCommitment struct {
	Height    uint64
	BlockID   ID
	StateRoot [32]byte
}

// BlockCommitmentEvent is the idiomatic Go replacement for spec.md §3's
// Accepted | Rejected variant.
type BlockCommitmentEvent interface {
	isBlockCommitmentEvent()
}

// Accepted signals that a commitment was accepted by L1 settlement.
type Accepted struct {
	Commitment BlockCommitment
}

func (Accepted) isBlockCommitmentEvent() {}

// Rejected signals that a commitment was rejected by L1 settlement.
type Rejected struct {
	Height uint64
	Reason string
}

func (Rejected) isBlockCommitmentEvent() {}
