package mempool

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/movementlabsxyz/full-node/block"
	"github.com/stretchr/testify/require"
)

func mkTx(s string) block.Transaction { return block.Transaction([]byte(s)) }

func TestWaitForNextBlockReturnsNilWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.db")
	m, err := OpenBolt(path, 1024, 20)
	require.NoError(t, err)
	defer m.Close()

	blk, err := m.WaitForNextBlock(context.Background())
	require.NoError(t, err)
	require.Nil(t, blk)
}

func TestPublishAndBuildBlockFIFOOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.db")
	m, err := OpenBolt(path, 1024, 50)
	require.NoError(t, err)
	defer m.Close()

	txs := []block.Transaction{mkTx("a"), mkTx("b"), mkTx("c")}
	require.NoError(t, m.PublishMany(context.Background(), txs))

	blk, err := m.WaitForNextBlock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, blk)
	require.Len(t, blk.Transactions, 3)
	for i, tx := range blk.Transactions {
		require.True(t, tx.Equal(txs[i]))
	}
}

// Scenario 6 from spec.md §8: kill the process between PublishMany and the
// next builder tick; on restart, the persisted mempool still contains the
// unbuilt transactions and the next block built includes them.
func TestCrashRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.db")

	m, err := OpenBolt(path, 1024, 20)
	require.NoError(t, err)
	require.NoError(t, m.PublishMany(context.Background(), []block.Transaction{mkTx("survivor")}))
	require.NoError(t, m.Close()) // simulates a crash/restart boundary

	reopened, err := OpenBolt(path, 1024, 20)
	require.NoError(t, err)
	defer reopened.Close()

	blk, err := reopened.WaitForNextBlock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, blk)
	require.Len(t, blk.Transactions, 1)
	require.True(t, blk.Transactions[0].Equal(mkTx("survivor")))
}

func TestMaxBlockSizeBudgetStopsAccumulation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.db")
	m, err := OpenBolt(path, 5, 50) // tiny budget: 5 bytes
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.PublishMany(context.Background(), []block.Transaction{
		mkTx("abc"), mkTx("de"), mkTx("f"),
	}))

	blk, err := m.WaitForNextBlock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, blk)
	require.Less(t, len(blk.Transactions), 3)
}
