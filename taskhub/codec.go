package taskhub

import (
	"github.com/dogmatiq/marshalkit/codec/json"
	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype used by the task hub stream.
const codecName = "durabletask-json"

// wireCodec is a gRPC codec that encodes stream frames as JSON.
type wireCodec struct {
	*json.Codec
}

func (wireCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(wireCodec{&json.Codec{}})
}
