// Package publisher implements a fan-out ClientHandler: every accepted
// call becomes a subscriber, and Send walks the subscriber list writing
// one envelope to each, pruning any that have died.
package publisher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/estuary/connrpc/incoming"
	"github.com/estuary/connrpc/rpcpb"
)

var subscriberGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "connrpc",
	Subsystem: "publisher",
	Name:      "subscribers",
	Help:      "Number of currently retained subscriber connections.",
})

func init() {
	prometheus.MustRegister(subscriberGauge)
}

type pair struct {
	client *incoming.IncomingCall
}

// ClientHandler fans published envelopes out to every connected
// subscriber, removing dead ones as it discovers them — grounded in the
// same add/prune/send-to-all shape a fan-out subscriber registry always
// needs, regardless of transport.
type ClientHandler struct {
	mu   sync.Mutex
	subs []pair
}

// New returns an empty ClientHandler.
func New() *ClientHandler {
	return &ClientHandler{}
}

// ConfigureClient is a no-op: subscribers need no per-client setup
// before their pumps start.
func (h *ClientHandler) ConfigureClient(c *incoming.IncomingCall) {}

// Handle retains the accepted call as a subscriber and keeps it alive
// past this call.
func (h *ClientHandler) Handle(c *incoming.IncomingCall, keepAlive *bool) bool {
	*keepAlive = true
	c.Retain()

	h.mu.Lock()
	h.subs = append(h.subs, pair{client: c})
	h.mu.Unlock()

	subscriberGauge.Set(float64(h.Count()))
	return true
}

// Send writes env to every live subscriber, pruning any whose client is
// no longer running or whose write fails.
func (h *ClientHandler) Send(env *rpcpb.Envelope) {
	h.mu.Lock()
	snapshot := make([]pair, len(h.subs))
	copy(snapshot, h.subs)
	h.mu.Unlock()

	var kept []pair
	for _, p := range snapshot {
		if !p.client.IsRunning() {
			p.client.Stop(nil)
			p.client.Release()
			continue
		}
		if err := p.client.WriterSink.Put(env); err != nil {
			p.client.Stop(nil)
			p.client.Release()
			continue
		}
		kept = append(kept, p)
	}

	h.mu.Lock()
	h.subs = kept
	h.mu.Unlock()

	subscriberGauge.Set(float64(h.Count()))
}

// ReleaseClients stops and drops every subscriber.
func (h *ClientHandler) ReleaseClients() {
	h.mu.Lock()
	snapshot := make([]pair, len(h.subs))
	copy(snapshot, h.subs)
	h.subs = nil
	h.mu.Unlock()

	for _, p := range snapshot {
		p.client.Stop(nil)
		p.client.Release()
	}
	subscriberGauge.Set(0)
}

// Count reports the current number of retained subscribers.
func (h *ClientHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
