package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec is a hand-written gRPC wire codec. No protoc codegen runs in
// this tree, so messages are plain Go structs marshaled with
// encoding/json rather than protobuf; registering under the name "proto"
// makes it the codec gRPC selects by default, since no content-subtype
// is negotiated. The transport (connection handling, framing, streaming)
// is still genuinely google.golang.org/grpc.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "proto"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
