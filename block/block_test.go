package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mkTx(s string) Transaction { return Transaction([]byte(s)) }

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := New(ID{1, 2, 3}, 42, []Transaction{mkTx("a"), mkTx("bb"), mkTx("ccc")})

	decoded, err := Decode(Encode(b))
	require.NoError(t, err)

	require.Equal(t, b.ParentID, decoded.ParentID)
	require.Equal(t, b.TimestampMs, decoded.TimestampMs)
	require.Len(t, decoded.Transactions, 3)
	for i, tx := range decoded.Transactions {
		require.True(t, tx.Equal(b.Transactions[i]))
	}
}

func TestSplitPreservesOrderAndIsDisjoint(t *testing.T) {
	b := New(ID{}, 0, []Transaction{mkTx("1"), mkTx("2"), mkTx("3"), mkTx("4")})

	subs, err := b.Split(2)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	var rebuilt []Transaction
	rebuilt = append(rebuilt, subs[0].Transactions...)
	rebuilt = append(rebuilt, subs[1].Transactions...)
	require.Equal(t, b.Transactions, rebuilt)

	// every sub-block has a fresh, valid id
	require.NotEqual(t, subs[0].ID(), subs[1].ID())
}

func TestSplitIndivisibleFails(t *testing.T) {
	b := New(ID{}, 0, []Transaction{mkTx("1")})
	_, err := b.Split(2)
	require.Error(t, err)
}

// WrappedBlock invariant (spec.md §8): decompress(blob.data) == encode(block).
func TestWrappedBlockInvariant(t *testing.T) {
	b := New(ID{9}, 7, []Transaction{mkTx("hello"), mkTx("world")})
	w := WrapBlock(b, Namespace{1, 2, 3})

	decompressed, err := Decompress(w.Blob)
	require.NoError(t, err)
	require.Equal(t, Encode(b), decompressed)
}

func TestWrappedBlockSplitRecompresses(t *testing.T) {
	b := New(ID{}, 0, []Transaction{mkTx("aaaa"), mkTx("bbbb")})
	w := WrapBlock(b, Namespace{7})

	subs, err := w.Split(2)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	for _, sub := range subs {
		decompressed, err := Decompress(sub.Blob)
		require.NoError(t, err)
		require.Equal(t, Encode(sub.Block), decompressed)
		require.LessOrEqual(t, sub.Weight(), w.Weight()+len(sub.Blob))
	}
}

func TestBlockIDRecomputationMatchesOriginalAfterReencode(t *testing.T) {
	b := New(ID{}, 123, []Transaction{mkTx("x")})
	reencoded, err := Decode(Encode(b))
	require.NoError(t, err)
	// same content -> same id, since id is purely content-derived.
	require.Equal(t, b.ID(), reencoded.ID())
}
