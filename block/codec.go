package block

import (
	"encoding/binary"
	"fmt"
)

// Encode produces the canonical binary encoding of a block: length-prefixed
// fields, big-endian integers, no reflection (spec.md §6). The encoding is
// deterministic and is what both the builder and the DA stream consumer
// hash to derive a block id.
func Encode(b Block) []byte {
	buf := make([]byte, 0, 32+8+4+len(b.Transactions)*16)
	buf = append(buf, b.ParentID[:]...)

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], b.TimestampMs)
	buf = append(buf, tsBuf[:]...)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(b.Transactions)))
	buf = append(buf, countBuf[:]...)

	for _, tx := range b.Transactions {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(tx)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, tx...)
	}
	return buf
}

// Decode parses the canonical binary encoding produced by Encode. The
// resulting block's id is computed fresh from the decoded fields, which is
// exactly what the DA stream consumer wants (spec.md §4.4, §9): the
// consumer's id must come from the raw blob bytes, not from any id stored
// inside them.
func Decode(data []byte) (Block, error) {
	if len(data) < 32+8+4 {
		return Block{}, fmt.Errorf("block: decode: truncated header, got %d bytes", len(data))
	}

	var parentID ID
	copy(parentID[:], data[:32])
	off := 32

	timestampMs := binary.BigEndian.Uint64(data[off : off+8])
	off += 8

	count := binary.BigEndian.Uint32(data[off : off+4])
	off += 4

	txs := make([]Transaction, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(data) {
			return Block{}, fmt.Errorf("block: decode: truncated transaction length at index %d", i)
		}
		txLen := binary.BigEndian.Uint32(data[off : off+4])
		off += 4
		if off+int(txLen) > len(data) {
			return Block{}, fmt.Errorf("block: decode: truncated transaction body at index %d", i)
		}
		tx := make(Transaction, txLen)
		copy(tx, data[off:off+int(txLen)])
		txs = append(txs, tx)
		off += int(txLen)
	}

	return New(parentID, timestampMs, txs), nil
}
