package fixtures

import (
	"context"
	"net"
	"sync"

	"github.com/dogmatiq/durabletask/internal/x/grpcx"
	"github.com/dogmatiq/durabletask/taskhub"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// EngineServer is an in-memory gRPC server that hosts a task hub engine.
type EngineServer struct {
	listener *bufconn.Listener
	cancel   context.CancelFunc
	done     chan struct{}

	m     sync.Mutex
	dials int
}

// StartEngineServer starts a server that hosts e.
func StartEngineServer(e taskhub.Engine) *EngineServer {
	ctx, cancel := context.WithCancel(context.Background())

	s := &EngineServer{
		listener: bufconn.Listen(1024 * 1024),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	server := grpc.NewServer()
	taskhub.RegisterServer(server, e)

	go func() {
		defer close(s.done)
		grpcx.Serve(ctx, s.listener, server, 0) // nolint:errcheck
	}()

	return s
}

// DialOptions returns the options needed to dial the server.
func (s *EngineServer) DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithContextDialer(s.dial),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
}

// Dial returns a new client connection to the server.
func (s *EngineServer) Dial(ctx context.Context) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, "bufnet", s.DialOptions()...)
}

// Dials returns the number of network connections made to the server.
func (s *EngineServer) Dials() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.dials
}

// Stop stops the server and waits for it to exit.
func (s *EngineServer) Stop() {
	s.cancel()
	<-s.done
}

func (s *EngineServer) dial(ctx context.Context, _ string) (net.Conn, error) {
	s.m.Lock()
	s.dials++
	s.m.Unlock()

	return s.listener.DialContext(ctx)
}
