package viewstream

import (
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jwbonner/advantagescope/internal/field"
)

// frameCodec adapts the hand-rolled wire format to the gRPC codec interface.
// The server installs it with grpc.ForceServerCodec, so no generated stub
// package is involved.
type frameCodec struct{}

func (frameCodec) Marshal(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case *field.SceneFrame:
		return MarshalFrame(m), nil
	case *SubscribeRequest:
		return MarshalSubscribeRequest(m), nil
	default:
		return nil, fmt.Errorf("frame codec: unsupported type %T", v)
	}
}

func (frameCodec) Unmarshal(data []byte, v interface{}) error {
	switch m := v.(type) {
	case *field.SceneFrame:
		f, err := UnmarshalFrame(data)
		if err != nil {
			return err
		}
		*m = *f
		return nil
	case *SubscribeRequest:
		r, err := UnmarshalSubscribeRequest(data)
		if err != nil {
			return err
		}
		*m = *r
		return nil
	default:
		return fmt.Errorf("frame codec: unsupported type %T", v)
	}
}

func (frameCodec) Name() string { return "fieldview-frame" }

// frameStreamServer is the service contract behind streamServiceDesc.
type frameStreamServer interface {
	Subscribe(*SubscribeRequest, grpc.ServerStream) error
}

// streamServiceDesc describes the fieldview.FrameStream service: a single
// server-streaming Subscribe method.
var streamServiceDesc = grpc.ServiceDesc{
	ServiceName: "fieldview.FrameStream",
	HandlerType: (*frameStreamServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	req := &SubscribeRequest{}
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(frameStreamServer).Subscribe(req, stream)
}

// StreamServer serves the Subscribe stream from a publisher's fan-out.
type StreamServer struct {
	publisher *Publisher
}

func newStreamServer(p *Publisher) *StreamServer {
	return &StreamServer{publisher: p}
}

// Subscribe registers the caller as a stream client and forwards frames
// until the client disconnects or the publisher stops.
func (s *StreamServer) Subscribe(req *SubscribeRequest, stream grpc.ServerStream) error {
	clientID := fmt.Sprintf("grpc-%d", time.Now().UnixNano())
	if req.Client != "" {
		clientID = fmt.Sprintf("%s-%d", req.Client, time.Now().UnixNano())
	}

	client := s.publisher.addClient(clientID)
	if client == nil {
		return status.Error(codes.ResourceExhausted, "stream client limit reached")
	}
	defer s.publisher.removeClient(clientID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.publisher.stopCh:
			// Publisher shutdown ends the stream cleanly.
			return nil
		case frame := <-client.frameCh:
			if err := stream.SendMsg(frame); err != nil {
				return fmt.Errorf("send frame %d: %w", frame.Seq, err)
			}
		}
	}
}
