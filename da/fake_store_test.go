package da

import (
	"context"
	"errors"
	"sync"

	"github.com/movementlabsxyz/full-node/block"
)

var errTooBig = errors.New("fakeStore: blob rejected")

// fakeStore is an in-process BlobStore test double: it records every
// batch submitted and can be made to reject specific blobs to exercise
// the sequencer's retry pipeline.
type fakeStore struct {
	mu         sync.Mutex
	batches    [][][]byte
	failUntil  int // fail every BatchWrite call while calls < failUntil
	calls      int
	rejectOver int // reject (as an error) any blob whose length exceeds this
}

func (f *fakeStore) BatchWrite(ctx context.Context, namespace Namespace, blobs []Blob) ([]BatchWriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls <= f.failUntil {
		results := make([]BatchWriteResult, len(blobs))
		for i := range results {
			results[i] = BatchWriteResult{Err: errTooBig}
		}
		return results, nil
	}

	raw := make([][]byte, len(blobs))
	for i, b := range blobs {
		raw[i] = b.Data
	}

	if f.rejectOver > 0 {
		for _, b := range raw {
			if len(b) > f.rejectOver {
				results := make([]BatchWriteResult, len(blobs))
				for i := range results {
					results[i] = BatchWriteResult{Err: errTooBig}
				}
				return results, nil
			}
		}
	}

	f.batches = append(f.batches, raw)
	results := make([]BatchWriteResult, len(blobs))
	for i, b := range blobs {
		results[i] = BatchWriteResult{BlobID: b.ID}
	}
	return results, nil
}

func (f *fakeStore) CurrentHeight(ctx context.Context, namespace Namespace) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.batches)), nil
}

func (f *fakeStore) BatchRead(ctx context.Context, namespace Namespace, blobIDs []string) ([][]byte, error) {
	return nil, nil
}

func (f *fakeStore) ReadAtHeight(ctx context.Context, namespace Namespace, height uint64) ([]block.BlobResponse, error) {
	return nil, nil
}

func (f *fakeStore) StreamReadFromHeight(ctx context.Context, namespace Namespace, height uint64) (<-chan block.BlobResponse, <-chan error) {
	out := make(chan block.BlobResponse)
	errs := make(chan error)
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeStore) StreamReadLatest(ctx context.Context, namespace Namespace) (<-chan block.BlobResponse, <-chan error) {
	return f.StreamReadFromHeight(ctx, namespace, 0)
}

func (f *fakeStore) UpdateVerificationParameters(ctx context.Context, params []byte) error {
	return nil
}
