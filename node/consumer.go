package node

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/movementlabsxyz/full-node/block"
	"github.com/movementlabsxyz/full-node/executor"
	"github.com/movementlabsxyz/full-node/nodeerrs"
)

// runBlockConsumer resumes the DA stream from the executor's current
// height and drives execution + settlement for each block, mirroring
// original_source's read_blocks_from_da (spec.md §4.4).
func (d *Driver) runBlockConsumer(ctx context.Context) error {
	head, err := d.executor.BlockHeadHeight(ctx)
	if err != nil {
		return &nodeerrs.ExecutorError{Cause: err}
	}

	blobs, errs := d.store.StreamReadFromHeight(ctx, d.namespace, head)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			if err != nil {
				return &nodeerrs.DaTransient{Cause: err}
			}
		case resp, ok := <-blobs:
			if !ok {
				return nil
			}
			if err := d.consumeBlob(ctx, resp); err != nil {
				return err
			}
		}
	}
}

func (d *Driver) consumeBlob(ctx context.Context, resp block.BlobResponse) error {
	var data []byte
	var blobID string
	var timestampMs uint64

	switch b := resp.(type) {
	case block.SequencedBlobBlock:
		data, blobID, timestampMs = b.Data, b.BlobID, b.TimestampMs
	default:
		return &nodeerrs.EncodingError{Cause: fmt.Errorf("node: unexpected blob response type %T", resp)}
	}

	raw, err := block.Decompress(data)
	if err != nil {
		return &nodeerrs.EncodingError{Cause: fmt.Errorf("node: decompress blob: %w", err)}
	}

	decoded, err := block.Decode(raw)
	if err != nil {
		return &nodeerrs.EncodingError{Cause: fmt.Errorf("node: decode block from blob: %w", err)}
	}

	// The metadata's digest comes from the blob id the DA layer assigned,
	// not the block's own parent id, so it ties back to DA ordering rather
	// than to the builder's internal chain (spec.md §4.4).
	metadata, err := d.executor.BuildBlockMetadata(ctx, block.ID(sha256.Sum256([]byte(blobID))), timestampMs)
	if err != nil {
		return &nodeerrs.ExecutorError{Cause: err}
	}

	txs := make([]block.Transaction, 0, len(decoded.Transactions)+1)
	txs = append(txs, metadata.Encode())
	txs = append(txs, decoded.Transactions...)

	commitment, err := d.executor.ExecuteBlockOpt(ctx, executor.ExecutableBlock{
		ID:           decoded.ID(),
		Transactions: txs,
	})
	if err != nil {
		return &nodeerrs.ExecutorError{Cause: err}
	}

	d.logger.Debug("executed block", "block_id", commitment.BlockID, "height", commitment.Height)

	if err := d.settlement.PostBlockCommitment(ctx, commitment); err != nil {
		return err
	}
	return nil
}
