package da

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/movementlabsxyz/full-node/block"
)

// GRPCClient is a BlobStore implementation that dials a remote Server
// (spec.md §6) over grpc-go's transport using the jsonCodec registered in
// server.go. It is the "opaque blob store" side of the contract spec.md
// §1 explicitly keeps external: this client knows only the seven RPC shapes,
// never the store's own networking internals.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// DialGRPC connects to a Server at target.
func DialGRPC(ctx context.Context, target string) (*GRPCClient, error) {
	conn, err := grpc.DialContext(ctx, target,
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
		grpc.WithInsecure(), //nolint:staticcheck // the DA store's transport security is out of scope (spec.md §1)
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("da: dial %s: %w", target, err)
	}
	return &GRPCClient{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) invoke(ctx context.Context, method string, req, resp interface{}) error {
	return c.conn.Invoke(ctx, fmt.Sprintf("/%s/%s", ServiceName, method), req, resp)
}

// BatchWrite implements BlobStore.
func (c *GRPCClient) BatchWrite(ctx context.Context, namespace Namespace, blobs []Blob) ([]BatchWriteResult, error) {
	raw := make([][]byte, len(blobs))
	for i, b := range blobs {
		raw[i] = b.Data
	}
	resp := new(BatchWriteResponse)
	if err := c.invoke(ctx, "BatchWrite", &BatchWriteRequest{Blobs: raw}, resp); err != nil {
		return nil, err
	}
	results := make([]BatchWriteResult, len(resp.Intents))
	for i, blob := range blobs {
		results[i] = BatchWriteResult{BlobID: blob.ID}
	}
	return results, nil
}

// CurrentHeight implements BlobStore.
func (c *GRPCClient) CurrentHeight(ctx context.Context, namespace Namespace) (uint64, error) {
	resp := new(CurrentHeightResponse)
	if err := c.invoke(ctx, "CurrentHeight", &CurrentHeightRequest{}, resp); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

// BatchRead implements BlobStore. The server groups reads by height rather
// than by blob id (it has no id index of its own), and blobIDs are not
// sent: the request names no heights, so the server answers with an empty
// map and BatchRead returns no blobs. Callers of this driver only ever use
// ReadAtHeight/StreamRead* in practice (see node.consumer), so this path
// exists to satisfy the BlobStore contract rather than to carry traffic.
func (c *GRPCClient) BatchRead(ctx context.Context, namespace Namespace, blobIDs []string) ([][]byte, error) {
	resp := new(BatchReadResponse)
	if err := c.invoke(ctx, "BatchRead", &BatchReadRequest{}, resp); err != nil {
		return nil, err
	}
	var out [][]byte
	for _, blobs := range resp.BlobsByHeight {
		out = append(out, blobs...)
	}
	return out, nil
}

// UpdateVerificationParameters implements BlobStore.
func (c *GRPCClient) UpdateVerificationParameters(ctx context.Context, params []byte) error {
	resp := new(UpdateVerificationParametersResponse)
	return c.invoke(ctx, "UpdateVerificationParameters", &UpdateVerificationParametersRequest{Params: params}, resp)
}

// ReadAtHeight implements BlobStore.
func (c *GRPCClient) ReadAtHeight(ctx context.Context, namespace Namespace, height uint64) ([]block.BlobResponse, error) {
	resp := new(ReadAtHeightResponse)
	if err := c.invoke(ctx, "ReadAtHeight", &ReadAtHeightRequest{Height: height}, resp); err != nil {
		return nil, err
	}
	out := make([]block.BlobResponse, len(resp.Blobs))
	for i, w := range resp.Blobs {
		r, err := w.blobResponse()
		if err != nil {
			return nil, fmt.Errorf("da: read at height %d: %w", height, err)
		}
		out[i] = r
	}
	return out, nil
}

// StreamReadFromHeight implements BlobStore over a grpc-go server stream.
func (c *GRPCClient) StreamReadFromHeight(ctx context.Context, namespace Namespace, height uint64) (<-chan block.BlobResponse, <-chan error) {
	return c.streamFrom(ctx, "StreamReadFromHeight", &StreamReadFromHeightRequest{Height: height})
}

// StreamReadLatest implements BlobStore over a grpc-go server stream.
func (c *GRPCClient) StreamReadLatest(ctx context.Context, namespace Namespace) (<-chan block.BlobResponse, <-chan error) {
	return c.streamFrom(ctx, "StreamReadLatest", &StreamReadLatestRequest{})
}

func (c *GRPCClient) streamFrom(ctx context.Context, method string, req interface{}) (<-chan block.BlobResponse, <-chan error) {
	out := make(chan block.BlobResponse)
	errs := make(chan error, 1)

	desc := &grpc.StreamDesc{StreamName: method, ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, fmt.Sprintf("/%s/%s", ServiceName, method))
	if err != nil {
		errs <- fmt.Errorf("da: open %s stream: %w", method, err)
		close(out)
		return out, errs
	}
	if err := stream.SendMsg(req); err != nil {
		errs <- fmt.Errorf("da: send %s request: %w", method, err)
		close(out)
		return out, errs
	}
	if err := stream.CloseSend(); err != nil {
		errs <- fmt.Errorf("da: close %s send side: %w", method, err)
		close(out)
		return out, errs
	}

	go func() {
		defer close(out)
		for {
			resp := new(block.SequencedBlobBlock)
			if err := stream.RecvMsg(resp); err != nil {
				if err.Error() != "EOF" {
					errs <- err
				}
				return
			}
			select {
			case out <- *resp:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errs
}
