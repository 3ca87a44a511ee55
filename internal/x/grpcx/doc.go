// Package grpcx contains utilities for working with gRPC servers and status
// errors.
package grpcx
