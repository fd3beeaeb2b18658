// Package runnertransport implements component H's "cross-runner
// requests" (spec.md §5): a `Deliver` unary gRPC service carrying
// `request`/`response` pairs as JSON rather than protoc-generated
// messages, registered with encoding.RegisterCodec the way a protoc-free
// gRPC service is built by hand. Grounded on the teacher's
// internal/grpc/server.go Server/NewServer/Start/Stop shape; the RPC
// surface itself has no teacher analogue (Nova's gRPC service is a FaaS
// control-plane API, not a peer-to-peer interpreter transport).
package runnertransport

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

// jsonCodec replaces protoc-gen-go's generated marshal/unmarshal with
// plain encoding/json over the plain Go structs in messages.go.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
