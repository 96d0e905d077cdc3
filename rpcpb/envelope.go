// Package rpcpb holds the wire types shared by every connrpc transport:
// the self-describing Envelope message and the generated-style gRPC
// service descriptor for the single bidirectional-streaming method all
// of Client, Server, Publisher and Subscriber multiplex over.
package rpcpb

import (
	proto "github.com/gogo/protobuf/proto"
)

// Envelope is the self-describing wire frame every connrpc stream carries.
// A single stream multiplexes many concrete message types by tagging each
// with a TypeUrl; the payload itself is opaque to the transport.
type Envelope struct {
	TypeUrl string `protobuf:"bytes,1,opt,name=type_url,json=typeUrl,proto3" json:"type_url,omitempty"`
	Payload []byte `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
}

func (m *Envelope) Reset()         { *m = Envelope{} }
func (m *Envelope) String() string { return proto.CompactTextString(m) }
func (*Envelope) ProtoMessage()    {}

func (m *Envelope) GetTypeUrl() string {
	if m != nil {
		return m.TypeUrl
	}
	return ""
}

func (m *Envelope) GetPayload() []byte {
	if m != nil {
		return m.Payload
	}
	return nil
}

func init() {
	proto.RegisterType((*Envelope)(nil), "connrpc.Envelope")
}
