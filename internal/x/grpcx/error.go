package grpcx

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/runtime/protoiface"
	"google.golang.org/protobuf/runtime/protoimpl"
)

// Errorf returns a new gRPC status error with optional detail messages.
//
// It panics if any of the details can not be marshaled.
func Errorf(
	code codes.Code,
	details []proto.Message,
	f string,
	v ...interface{},
) error {
	s := status.Newf(code, f, v...)

	if len(details) == 0 {
		return s.Err()
	}

	detailsV1 := make([]protoiface.MessageV1, len(details))

	for i, m := range details {
		detailsV1[i] = protoimpl.X.ProtoMessageV1Of(m)
	}

	var err error
	s, err = s.WithDetails(detailsV1...)
	if err != nil {
		panic(err)
	}

	return s.Err()
}

// Code returns the gRPC status code of err, or codes.Unknown if err does not
// carry a status. It returns codes.OK if err is nil.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}

	if s, ok := status.FromError(err); ok {
		return s.Code()
	}

	return codes.Unknown
}
