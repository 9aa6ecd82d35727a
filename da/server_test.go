package da

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/movementlabsxyz/full-node/mempool"
	"github.com/stretchr/testify/require"
)

func TestServerBatchWritePublishesToMempoolAndTagsHeight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.db")
	mp, err := mempool.OpenBolt(path, 1<<20, 1000)
	require.NoError(t, err)
	defer mp.Close()

	store := &fakeStore{}
	store.batches = append(store.batches, nil) // CurrentHeight reports len(batches)

	s := NewServer(testLogger(), mp, store, Namespace{1})

	resp, err := s.BatchWrite(context.Background(), &BatchWriteRequest{
		Blobs: [][]byte{[]byte("tx-a"), []byte("tx-b")},
	})
	require.NoError(t, err)
	require.Len(t, resp.Intents, 2)
	for _, intent := range resp.Intents {
		require.EqualValues(t, 1, intent.Height)
	}

	blk, err := mp.WaitForNextBlock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, blk)
	require.Len(t, blk.Transactions, 2)
}
