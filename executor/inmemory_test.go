package executor

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/movementlabsxyz/full-node/block"
	"github.com/stretchr/testify/require"
)

func TestInMemoryExecuteIsDeterministic(t *testing.T) {
	ctx := context.Background()
	txs := []block.Transaction{block.Transaction("a"), block.Transaction("b")}

	e1 := NewInMemory(hclog.NewNullLogger())
	c1, err := e1.ExecuteBlockOpt(ctx, ExecutableBlock{ID: block.ID{1}, Transactions: txs})
	require.NoError(t, err)

	e2 := NewInMemory(hclog.NewNullLogger())
	c2, err := e2.ExecuteBlockOpt(ctx, ExecutableBlock{ID: block.ID{1}, Transactions: txs})
	require.NoError(t, err)

	require.Equal(t, c1.StateRoot, c2.StateRoot)
	// the first block executed off a fresh executor lands at height 0
	// (spec.md §8 scenario 5), matching BlockHeadHeight's initial value.
	require.Equal(t, uint64(0), c1.Height)
}

func TestInMemoryHeightAdvancesPerBlock(t *testing.T) {
	ctx := context.Background()
	e := NewInMemory(hclog.NewNullLogger())

	for i := 0; i < 3; i++ {
		_, err := e.ExecuteBlockOpt(ctx, ExecutableBlock{ID: block.ID{byte(i)}})
		require.NoError(t, err)
	}

	height, err := e.BlockHeadHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), height)
}

func TestInMemoryFinalizedHeightIsMonotonic(t *testing.T) {
	ctx := context.Background()
	e := NewInMemory(hclog.NewNullLogger())

	require.NoError(t, e.SetFinalizedBlockHeight(ctx, 5))
	require.NoError(t, e.SetFinalizedBlockHeight(ctx, 2))
	require.Equal(t, uint64(5), e.FinalizedBlockHeight())
}

func TestInMemoryDifferentTransactionsDivergeStateRoot(t *testing.T) {
	ctx := context.Background()
	e := NewInMemory(hclog.NewNullLogger())

	c1, err := e.ExecuteBlockOpt(ctx, ExecutableBlock{
		ID:           block.ID{1},
		Transactions: []block.Transaction{block.Transaction("a")},
	})
	require.NoError(t, err)

	e2 := NewInMemory(hclog.NewNullLogger())
	c2, err := e2.ExecuteBlockOpt(ctx, ExecutableBlock{
		ID:           block.ID{1},
		Transactions: []block.Transaction{block.Transaction("b")},
	})
	require.NoError(t, err)

	require.NotEqual(t, c1.StateRoot, c2.StateRoot)
}
