package block

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Namespace tags a blob with a fixed DA namespace (spec.md §6).
type Namespace [8]byte

// WrappedBlock pairs a Block with its compressed, namespaced blob
// representation. The invariant Blob == zstd(Encode(Block)) holds for the
// lifetime of the value (spec.md §3); Split recomputes it for every
// sub-block (spec.md §9: post-split weight is only accurate after
// recompression).
//
// BlobID is the client-chosen id the DA store deduplicates on (spec.md
// §4.3: "because DA writes carry a client-chosen blob id, retries of the
// same logical block never double-sequence"). WrapBlock mints a fresh one
// on every call, so a block and each of its split halves are distinct
// logical blobs the store can tell apart.
type WrappedBlock struct {
	Block     Block
	Blob      []byte
	Namespace Namespace
	BlobID    string
}

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("block: failed to init zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("block: failed to init zstd decoder: %v", err))
	}
}

// Compress zstd-compresses data at the default compression level
// (spec.md §6).
func Compress(data []byte) []byte {
	return encoder.EncodeAll(data, make([]byte, 0, len(data)))
}

// Decompress reverses Compress.
func Decompress(blob []byte) ([]byte, error) {
	out, err := decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("block: zstd decode failed: %w", err)
	}
	return out, nil
}

// WrapBlock serializes and compresses b into a WrappedBlock tagged with
// namespace.
func WrapBlock(b Block, namespace Namespace) WrappedBlock {
	encoded := Encode(b)
	return WrappedBlock{
		Block:     b,
		Blob:      Compress(encoded),
		Namespace: namespace,
		BlobID:    uuid.NewString(),
	}
}

// Weight returns the blob's compressed byte length, used for bin-packing
// (spec.md §3).
func (w WrappedBlock) Weight() int { return len(w.Blob) }

// Split partitions w into factor wrapped sub-blocks, each a disjoint,
// order-preserving partition of the underlying block's transactions, each
// freshly compressed (spec.md §3, §9).
func (w WrappedBlock) Split(factor int) ([]WrappedBlock, error) {
	subBlocks, err := w.Block.Split(factor)
	if err != nil {
		return nil, err
	}
	out := make([]WrappedBlock, 0, len(subBlocks))
	for _, sub := range subBlocks {
		out = append(out, WrapBlock(sub, w.Namespace))
	}
	return out, nil
}
