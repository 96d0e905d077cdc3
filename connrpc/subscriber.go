package connrpc

import "github.com/estuary/connrpc/sink"

// Subscriber is a Client that only ever reads: it connects to a
// Publisher and exposes the incoming envelope stream through its
// ReaderSink. Dialing reuses Client's readiness wait, so a Subscriber
// created before its Publisher observes Start() == false rather than
// hanging forever.
type Subscriber struct {
	cfg    NetworkConfig
	client *Client
}

// Start connects to the publisher.
func (s *Subscriber) Start() bool {
	s.client = &Client{cfg: s.cfg}
	return s.client.Start()
}

// Stop disconnects.
func (s *Subscriber) Stop() bool {
	if s.client == nil {
		return true
	}
	return s.client.Stop()
}

// IsRunning reports whether the connection is still live.
func (s *Subscriber) IsRunning() bool {
	return s.client != nil && s.client.IsRunning()
}

// ReaderSink exposes the incoming envelope stream.
func (s *Subscriber) ReaderSink() *sink.Sink {
	return s.client.ReaderSink()
}
