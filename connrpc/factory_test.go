package connrpc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubFactory struct{ tag string }

func (f stubFactory) Tag() string                         { return f.tag }
func (f stubFactory) NewClient(cfg NetworkConfig) *Client  { return &Client{cfg: cfg} }
func (f stubFactory) NewServer(cfg NetworkConfig) *Server  { return &Server{cfg: cfg} }
func (f stubFactory) NewPublisher(cfg NetworkConfig) *Publisher {
	return &Publisher{cfg: cfg}
}
func (f stubFactory) NewSubscriber(cfg NetworkConfig) *Subscriber {
	return &Subscriber{cfg: cfg}
}

func TestFactoryMatchLongestWins(t *testing.T) {
	m := &ConnectionManager{}
	m.Register(stubFactory{tag: "grpc"})
	m.Register(stubFactory{tag: "grpc/tls"})

	got := m.match("grpc/tls")
	require.NotNil(t, got)
	require.Equal(t, "grpc/tls", got.Tag())
}

func TestFactoryMatchTieBreaksToMostRecent(t *testing.T) {
	m := &ConnectionManager{}
	// Pointers, so that factories with equal tags stay distinguishable
	// when indexOfFactory compares them.
	m.Register(&stubFactory{tag: "grpc"})
	m.Register(&stubFactory{tag: "grpc"})

	got := m.match("grpc")
	require.NotNil(t, got)

	m.Register(&stubFactory{tag: "grpc"})
	got = m.match("grpc")
	require.Equal(t, 2, indexOfFactory(m, got))
}

func TestFactoryMatchNoCandidate(t *testing.T) {
	m := &ConnectionManager{}
	m.Register(stubFactory{tag: "grpc"})
	require.Nil(t, m.match("amqp"))
}

func indexOfFactory(m *ConnectionManager, f Factory) int {
	for i, r := range m.factories {
		if r.factory == f {
			return i
		}
	}
	return -1
}
