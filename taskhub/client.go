package taskhub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
)

const (
	serviceName   = "durabletask.TaskHub"
	connectMethod = "/" + serviceName + "/Connect"
)

var connectDesc = grpc.StreamDesc{
	StreamName:    "Connect",
	ServerStreams: true,
	ClientStreams: true,
}

// Client opens task hub streams.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient returns a client that opens streams on conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn}
}

// Connect opens a new stream and performs the handshake.
//
// The stream remains bound to ctx; canceling ctx closes the stream. Errors
// returned by the engine during the handshake are returned unchanged, so that
// their gRPC status can be inspected.
func (c *Client) Connect(ctx context.Context, h Hello) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	cs, err := c.conn.NewStream(
		ctx,
		&connectDesc,
		connectMethod,
		grpc.CallContentSubtype(codecName),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	if err := handshake(cs, h); err != nil {
		cancel()
		return nil, err
	}

	s := &Stream{
		stream:  cs,
		cancel:  cancel,
		items:   make(chan workItemOrError),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.touch()

	go s.consume()

	return s, nil
}

// handshake sends the hello frame and waits for the engine to reply.
func handshake(cs grpc.ClientStream, h Hello) error {
	if err := cs.SendMsg(&frame{Kind: kindHello, Hello: &h}); err != nil {
		// SendMsg returns io.EOF if the stream was terminated by the server,
		// the actual error is obtained from RecvMsg().
		if !errors.Is(err, io.EOF) {
			return err
		}
	}

	var f frame
	if err := cs.RecvMsg(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("stream closed by the engine during the handshake")
		}
		return err
	}

	if f.Kind != kindReady {
		return fmt.Errorf("unexpected '%s' frame during the handshake", f.Kind)
	}

	return nil
}

// now is the clock used to record stream activity.
var now = time.Now
