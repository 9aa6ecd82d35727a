package da

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/movementlabsxyz/full-node/block"
	"github.com/movementlabsxyz/full-node/mempool"
)

// jsonCodec carries every RPC below as plain JSON-encoded Go structs
// instead of protoc-generated protobuf messages: no `.proto` compiler
// runs in this environment, so the gRPC surface of spec.md §6 is served
// over grpc-go's transport and streaming semantics with a hand-registered
// codec rather than generated bindings (an Open Question resolution, see
// DESIGN.md).
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ServiceName is the gRPC service name the node registers Server under.
const ServiceName = "movement.da.DAService"

// BatchWriteRequest/Response are the wire messages for the client write
// path of spec.md §6: validate each blob as a transaction, publish to the
// mempool, and return one intent per blob tagged with the DA head height
// at acceptance time.
type BatchWriteRequest struct {
	Blobs [][]byte
}

type BatchWriteResponse struct {
	Intents []block.SequencedBlobIntent
}

type BatchReadRequest struct {
	Heights []uint64
}

type BatchReadResponse struct {
	// BlobsByHeight maps a requested height to the raw blob bytes
	// recorded there.
	BlobsByHeight map[uint64][][]byte
}

type ReadAtHeightRequest struct {
	Height uint64
}

type ReadAtHeightResponse struct {
	Blobs []BlobResponseWire
}

// BlobResponseWire carries a block.BlobResponse over the jsonCodec with an
// explicit Kind discriminator. block.BlobResponse is a Go interface
// standing in for spec.md §3's tagged variant; json.Unmarshal cannot
// target an interface-typed field without one, so every wire message that
// crosses the RPC boundary with a BlobResponse payload uses this concrete
// struct instead of the interface directly.
type BlobResponseWire struct {
	Kind        string
	Data        []byte
	BlobID      string
	Height      uint64
	TimestampMs uint64
}

const (
	blobKindPassedThrough      = "passed_through"
	blobKindSequencedIntent    = "sequenced_intent"
	blobKindSequencedBlobBlock = "sequenced_blob_block"
)

// wireFromBlobResponse converts a block.BlobResponse into its wire form.
func wireFromBlobResponse(resp block.BlobResponse) BlobResponseWire {
	switch b := resp.(type) {
	case block.PassedThroughBlob:
		return BlobResponseWire{Kind: blobKindPassedThrough, Data: b.Data, BlobID: b.BlobID, Height: b.Height, TimestampMs: b.TimestampMs}
	case block.SequencedBlobIntent:
		return BlobResponseWire{Kind: blobKindSequencedIntent, Data: b.Data, Height: b.Height, TimestampMs: b.TimestampMs}
	case block.SequencedBlobBlock:
		return BlobResponseWire{Kind: blobKindSequencedBlobBlock, Data: b.Data, BlobID: b.BlobID, Height: b.Height, TimestampMs: b.TimestampMs}
	default:
		return BlobResponseWire{}
	}
}

// blobResponse converts w back into the tagged block.BlobResponse it
// represents.
func (w BlobResponseWire) blobResponse() (block.BlobResponse, error) {
	switch w.Kind {
	case blobKindPassedThrough:
		return block.PassedThroughBlob{Data: w.Data, BlobID: w.BlobID, Height: w.Height, TimestampMs: w.TimestampMs}, nil
	case blobKindSequencedIntent:
		return block.SequencedBlobIntent{Data: w.Data, Height: w.Height, TimestampMs: w.TimestampMs}, nil
	case blobKindSequencedBlobBlock:
		return block.SequencedBlobBlock{Data: w.Data, BlobID: w.BlobID, Height: w.Height, TimestampMs: w.TimestampMs}, nil
	default:
		return nil, fmt.Errorf("da: unknown blob response kind %q", w.Kind)
	}
}

type UpdateVerificationParametersRequest struct {
	Params []byte
}

type UpdateVerificationParametersResponse struct{}

type CurrentHeightRequest struct{}

type CurrentHeightResponse struct {
	Height uint64
}

type StreamReadFromHeightRequest struct {
	Height uint64
}

type StreamReadLatestRequest struct{}

// Server exposes the gRPC-shaped DA surface of spec.md §6. In sequencer
// mode (spec.md glossary: this node is the sole producer of DA blobs)
// BatchWrite is the client-facing tx submission path, decoding each blob
// as a Transaction and publishing straight to the mempool; every read
// method and UpdateVerificationParameters proxy to the BlobStore the
// sequencer's own builder/publisher loop writes built blocks to.
type Server struct {
	logger    hclog.Logger
	mempool   mempool.Mempool
	store     BlobStore
	namespace Namespace
}

// NewServer constructs a Server over mp (the client write path) and store
// (the read/proxy path), both scoped to namespace.
func NewServer(logger hclog.Logger, mp mempool.Mempool, store BlobStore, namespace Namespace) *Server {
	return &Server{
		logger:    logger.Named("da.server"),
		mempool:   mp,
		store:     store,
		namespace: namespace,
	}
}

// BatchWrite implements the spec.md §6 write RPC: each blob is decoded as
// a Transaction, all transactions are published atomically to the
// mempool, then intents tagged with the current DA head height are
// returned.
func (s *Server) BatchWrite(ctx context.Context, req *BatchWriteRequest) (*BatchWriteResponse, error) {
	txs := make([]block.Transaction, len(req.Blobs))
	for i, b := range req.Blobs {
		txs[i] = block.Transaction(b)
	}

	if err := s.mempool.PublishMany(ctx, txs); err != nil {
		return nil, status.Errorf(codes.Unavailable, "da: publish to mempool: %v", err)
	}

	height, err := s.store.CurrentHeight(ctx, s.namespace)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "da: read current height: %v", err)
	}

	now := nowMs()
	intents := make([]block.SequencedBlobIntent, len(req.Blobs))
	for i, b := range req.Blobs {
		intents[i] = block.SequencedBlobIntent{Data: b, Height: height, TimestampMs: now}
	}
	return &BatchWriteResponse{Intents: intents}, nil
}

// BatchRead implements the spec.md §6 unary multi-height read RPC: blobs
// are grouped per height, each fetched via the store's own by-height read.
func (s *Server) BatchRead(ctx context.Context, req *BatchReadRequest) (*BatchReadResponse, error) {
	out := make(map[uint64][][]byte, len(req.Heights))
	for _, h := range req.Heights {
		blobs, err := s.store.ReadAtHeight(ctx, s.namespace, h)
		if err != nil {
			return nil, status.Errorf(codes.Unavailable, "da: read at height %d: %v", h, err)
		}
		var raw [][]byte
		for _, b := range blobs {
			raw = append(raw, blobData(b))
		}
		out[h] = raw
	}
	return &BatchReadResponse{BlobsByHeight: out}, nil
}

// ReadAtHeight implements the spec.md §6 unary single-height read RPC.
func (s *Server) ReadAtHeight(ctx context.Context, req *ReadAtHeightRequest) (*ReadAtHeightResponse, error) {
	blobs, err := s.store.ReadAtHeight(ctx, s.namespace, req.Height)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "da: read at height %d: %v", req.Height, err)
	}
	wire := make([]BlobResponseWire, len(blobs))
	for i, b := range blobs {
		wire[i] = wireFromBlobResponse(b)
	}
	return &ReadAtHeightResponse{Blobs: wire}, nil
}

// CurrentHeight implements the DA head height read used to tag intents on
// the client write path (spec.md §3, §4.3); exposed as its own RPC so
// GRPCClient doesn't need to call ReadAtHeight just to learn the height.
func (s *Server) CurrentHeight(ctx context.Context, req *CurrentHeightRequest) (*CurrentHeightResponse, error) {
	height, err := s.store.CurrentHeight(ctx, s.namespace)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "da: current height: %v", err)
	}
	return &CurrentHeightResponse{Height: height}, nil
}

// UpdateVerificationParameters implements the spec.md §6 RPC; its payload
// is opaque to the core (spec.md §6).
func (s *Server) UpdateVerificationParameters(ctx context.Context, req *UpdateVerificationParametersRequest) (*UpdateVerificationParametersResponse, error) {
	if err := s.store.UpdateVerificationParameters(ctx, req.Params); err != nil {
		return nil, status.Errorf(codes.Unavailable, "da: update verification parameters: %v", err)
	}
	return &UpdateVerificationParametersResponse{}, nil
}

// StreamReadFromHeight implements the spec.md §6 server-streaming RPC,
// resumable from req.Height.
func (s *Server) StreamReadFromHeight(req *StreamReadFromHeightRequest, stream grpc.ServerStream) error {
	blobs, errs := s.store.StreamReadFromHeight(stream.Context(), s.namespace, req.Height)
	return pumpBlobStream(stream, blobs, errs)
}

// StreamReadLatest implements the spec.md §6 server-streaming RPC,
// starting from whatever height is current when the stream opens.
func (s *Server) StreamReadLatest(req *StreamReadLatestRequest, stream grpc.ServerStream) error {
	blobs, errs := s.store.StreamReadLatest(stream.Context(), s.namespace)
	return pumpBlobStream(stream, blobs, errs)
}

// StreamWriteBlob is intentionally unimplemented, matching spec.md §6's
// explicit "fails with Unimplemented" requirement: the reference DA
// service accepts writes only through the batch path.
func (s *Server) StreamWriteBlob(stream grpc.ServerStream) error {
	return status.Error(codes.Unimplemented, "da: stream_write_blob is not implemented")
}

func pumpBlobStream(stream grpc.ServerStream, blobs <-chan block.BlobResponse, errs <-chan error) error {
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return status.Errorf(codes.Unavailable, "da: stream: %v", err)
			}
		case resp, ok := <-blobs:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(resp); err != nil {
				return err
			}
		}
	}
}

func blobData(resp block.BlobResponse) []byte {
	switch b := resp.(type) {
	case block.PassedThroughBlob:
		return b.Data
	case block.SequencedBlobIntent:
		return b.Data
	case block.SequencedBlobBlock:
		return b.Data
	default:
		return nil
	}
}

// ServiceDesc is the hand-registered grpc.ServiceDesc for Server,
// standing in for a protoc-generated one (see jsonCodec's doc comment).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "BatchWrite",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(BatchWriteRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				s := srv.(*Server)
				if interceptor == nil {
					return s.BatchWrite(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/BatchWrite"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return s.BatchWrite(ctx, req.(*BatchWriteRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
		{
			MethodName: "BatchRead",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(BatchReadRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return srv.(*Server).BatchRead(ctx, req)
			},
		},
		{
			MethodName: "ReadAtHeight",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(ReadAtHeightRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return srv.(*Server).ReadAtHeight(ctx, req)
			},
		},
		{
			MethodName: "CurrentHeight",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(CurrentHeightRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return srv.(*Server).CurrentHeight(ctx, req)
			},
		},
		{
			MethodName: "UpdateVerificationParameters",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(UpdateVerificationParametersRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return srv.(*Server).UpdateVerificationParameters(ctx, req)
			},
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamReadFromHeight",
			Handler:       func(srv interface{}, stream grpc.ServerStream) error { return streamReadFromHeightHandler(srv, stream) },
			ServerStreams: true,
		},
		{
			StreamName:    "StreamReadLatest",
			Handler:       func(srv interface{}, stream grpc.ServerStream) error { return streamReadLatestHandler(srv, stream) },
			ServerStreams: true,
		},
		{
			StreamName:    "StreamWriteBlob",
			Handler:       func(srv interface{}, stream grpc.ServerStream) error { return srv.(*Server).StreamWriteBlob(stream) },
			ClientStreams: true,
		},
	},
}

func streamReadFromHeightHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(StreamReadFromHeightRequest)
	if err := stream.RecvMsg(req); err != nil {
		return fmt.Errorf("da: recv StreamReadFromHeight request: %w", err)
	}
	return srv.(*Server).StreamReadFromHeight(req, stream)
}

func streamReadLatestHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(StreamReadLatestRequest)
	if err := stream.RecvMsg(req); err != nil {
		return fmt.Errorf("da: recv StreamReadLatest request: %w", err)
	}
	return srv.(*Server).StreamReadLatest(req, stream)
}

// Register registers s on grpcServer under ServiceDesc.
func Register(grpcServer *grpc.Server, s *Server) {
	grpcServer.RegisterService(&ServiceDesc, s)
}

func nowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}
