package node

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/movementlabsxyz/full-node/da"
	"github.com/movementlabsxyz/full-node/nodeerrs"
)

// txBatchWindow bounds how long runTransactionWriter accumulates
// transactions before flushing, mirroring original_source's
// tick_write_transactions_to_da 100ms window (spec.md §4.5).
const txBatchWindow = 100 * time.Millisecond

// runTransactionWriter drains txIn and batch-writes to the DA store every
// txBatchWindow, so individual transactions never wait longer than that to
// reach DA.
func (d *Driver) runTransactionWriter(ctx context.Context) error {
	for {
		batch, err := d.readTransactionBatch(ctx)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			continue
		}

		results, err := d.store.BatchWrite(ctx, d.namespace, batch)
		if err != nil {
			return &nodeerrs.DaTransient{Cause: err}
		}
		for _, r := range results {
			if r.Err != nil {
				return &nodeerrs.DaTransient{Cause: r.Err}
			}
		}
		d.logger.Debug("wrote transactions to da", "count", len(batch))
	}
}

func (d *Driver) readTransactionBatch(ctx context.Context) ([]da.Blob, error) {
	deadline := time.Now().Add(txBatchWindow)
	var batch []da.Blob

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return batch, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case tx, ok := <-d.txIn:
			timer.Stop()
			if !ok {
				return batch, nil
			}
			batch = append(batch, da.Blob{ID: uuid.NewString(), Data: tx.Bytes()})
		case <-timer.C:
			return batch, nil
		}
	}
}
