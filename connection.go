package durabletask

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// connection is a transport handle acquired for a single session with the
// engine.
type connection struct {
	// Conn is used to open the work item stream.
	Conn grpc.ClientConnInterface

	// Target is a human-readable description of the engine's location.
	Target string

	// Source describes how the connection was obtained.
	Source string

	// Lifetime is the maximum duration for which the connection is used, or
	// zero if there is no limit.
	Lifetime time.Duration

	once    sync.Once
	release func() error
}

// Release releases the connection.
//
// Only the first call has any effect, later calls return nil.
func (c *connection) Release() error {
	var err error

	c.once.Do(func() {
		if c.release != nil {
			err = c.release()
		}
	})

	return err
}

const (
	sourceClientConn = "provided connection"
	sourceConn       = "provided call dispatcher"
	sourceDialed     = "dialed connection"

	unspecifiedTarget = "(unspecified)"
)

// connectionProvider acquires connections to the engine.
type connectionProvider struct {
	opts *workerOptions
}

// Target returns a description of the engine's location, without acquiring
// a connection.
func (p *connectionProvider) Target() string {
	switch {
	case p.opts.ClientConn != nil:
		return p.opts.ClientConn.Target()
	case p.opts.Conn != nil:
		return unspecifiedTarget
	default:
		return p.opts.Address
	}
}

// Acquire returns a connection to the engine.
//
// A caller-provided *grpc.ClientConn takes precedence over a caller-provided
// grpc.ClientConnInterface, which takes precedence over dialing the configured
// address. Connections provided by the caller are never closed.
func (p *connectionProvider) Acquire(ctx context.Context) (*connection, error) {
	if p.opts.ClientConn != nil {
		return &connection{
			Conn:   p.opts.ClientConn,
			Target: p.opts.ClientConn.Target(),
			Source: sourceClientConn,
		}, nil
	}

	if p.opts.Conn != nil {
		return &connection{
			Conn:   p.opts.Conn,
			Target: unspecifiedTarget,
			Source: sourceConn,
		}, nil
	}

	return p.dial(ctx)
}

// dial returns a connection to the configured address.
func (p *connectionProvider) dial(ctx context.Context) (*connection, error) {
	target, useTLS, err := parseAddress(p.opts.Address)
	if err != nil {
		return nil, &ConnectionError{p.opts.Address, err}
	}

	var creds credentials.TransportCredentials
	if useTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		creds = insecure.NewCredentials()
	}

	options := append(
		[]grpc.DialOption{
			grpc.WithTransportCredentials(creds),
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(math.MaxInt32),
				grpc.MaxCallSendMsgSize(math.MaxInt32),
			),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                p.opts.KeepAliveTime,
				Timeout:             p.opts.KeepAliveTimeout,
				PermitWithoutStream: true,
			}),
			grpc.WithIdleTimeout(0),
		},
		p.opts.DialOptions...,
	)

	conn, err := grpc.DialContext(ctx, target, options...)
	if err != nil {
		return nil, &ConnectionError{target, err}
	}

	return &connection{
		Conn:     conn,
		Target:   target,
		Source:   sourceDialed,
		Lifetime: p.opts.ConnectionLifetime,
		release:  conn.Close,
	}, nil
}

// parseAddress parses an engine address in "host:port" form, optionally
// prefixed by an "http" or "https" scheme.
//
// It returns the gRPC dial target and whether TLS should be used.
func parseAddress(addr string) (target string, useTLS bool, err error) {
	hostport := addr

	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return "", false, fmt.Errorf("invalid address: %w", err)
		}

		switch u.Scheme {
		case "http":
		case "https":
			useTLS = true
		default:
			return "", false, fmt.Errorf("invalid address: unsupported scheme '%s'", u.Scheme)
		}

		if u.Path != "" && u.Path != "/" {
			return "", false, errors.New("invalid address: must not contain a path")
		}

		hostport = u.Host
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", false, fmt.Errorf("invalid address: %w", err)
	}

	if host == "" {
		return "", false, errors.New("invalid address: host must not be empty")
	}

	if n, err := strconv.ParseUint(port, 10, 16); err != nil || n == 0 {
		return "", false, fmt.Errorf("invalid address: invalid port '%s'", port)
	}

	return net.JoinHostPort(host, port), useTLS, nil
}
