// Package envelope packs and unpacks typed protobuf messages into the
// self-describing rpcpb.Envelope frame that every connrpc stream carries.
package envelope

import (
	"fmt"

	proto "github.com/gogo/protobuf/proto"

	"github.com/estuary/connrpc/rpcpb"
)

// typeURLPrefix mirrors the convention used by protobuf's Any: a type URL
// is a stable prefix followed by the fully-qualified proto message name.
const typeURLPrefix = "type.googleapis.com/"

// TypeURL returns the type URL a message would be packed under.
func TypeURL(msg proto.Message) string {
	return typeURLPrefix + proto.MessageName(msg)
}

// Pack wraps msg in an Envelope. If msg is already an *rpcpb.Envelope,
// Pack is a no-op: double-wrapping an envelope would confuse the wire
// peer, which expects exactly one layer of self-description.
func Pack(msg proto.Message) (*rpcpb.Envelope, error) {
	if env, ok := msg.(*rpcpb.Envelope); ok {
		return env, nil
	}
	name := proto.MessageName(msg)
	if name == "" {
		return nil, fmt.Errorf("envelope: message type %T is not registered with proto", msg)
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshaling %T: %w", msg, err)
	}
	return &rpcpb.Envelope{TypeUrl: typeURLPrefix + name, Payload: payload}, nil
}

// Unpack decodes env into out, failing if env's TypeUrl does not match
// the type URL of out. The read pipeline drops the frame on this error
// and continues.
func Unpack(env *rpcpb.Envelope, out proto.Message) error {
	want := TypeURL(out)
	if env.TypeUrl != want {
		return fmt.Errorf("envelope: type mismatch: got %q, want %q", env.TypeUrl, want)
	}
	return proto.Unmarshal(env.Payload, out)
}

// Matches reports whether env's TypeUrl already equals msg's type URL.
func Matches(env *rpcpb.Envelope, msg proto.Message) bool {
	return env.TypeUrl == TypeURL(msg)
}
