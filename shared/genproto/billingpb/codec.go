package billingpb

import (
	"encoding"
	"fmt"

	grpcencoding "google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype the billing service speaks. Clients
// select it with grpc.CallContentSubtype(CodecName).
const CodecName = "pulsetrack-proto"

type wireCodec struct{}

func (wireCodec) Name() string { return CodecName }

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("%s codec: cannot marshal %T", CodecName, v)
	}
	return m.MarshalBinary()
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(encoding.BinaryUnmarshaler)
	if !ok {
		return fmt.Errorf("%s codec: cannot unmarshal into %T", CodecName, v)
	}
	return m.UnmarshalBinary(data)
}

func init() {
	grpcencoding.RegisterCodec(wireCodec{})
}
