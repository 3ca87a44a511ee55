package grpcx

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
)

// Serve runs s until ctx is canceled or an error occurs.
//
// When ctx is canceled the server stops accepting new streams and waits up
// to gracePeriod for active streams to finish before closing them forcefully.
// The caller must never call s.Stop() or s.GracefulStop().
func Serve(
	ctx context.Context,
	lis net.Listener,
	s *grpc.Server,
	gracePeriod time.Duration,
) error {
	// Create a context that is guaranteed to be cancelled when this function
	// exits. This prevents a leak in the goroutine below when the server exits
	// prematurely.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		stop(s, gracePeriod)
	}()

	err := s.Serve(lis)

	// If the server exits cleanly, it is because it was stopped, which only
	// happens when the context is canceled.
	if err == nil || err == grpc.ErrServerStopped {
		<-ctx.Done()
		err = ctx.Err()
	}

	return err
}

// stop stops s gracefully, falling back to a hard stop after d.
func stop(s *grpc.Server, d time.Duration) {
	if d <= 0 {
		s.Stop()
		return
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d):
		s.Stop()
	}
}
