package incoming

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// reapInterval is how often ClientManager sweeps for reclaimable
// entries.
const reapInterval = 100 * time.Millisecond

// ClientManager owns the set of IncomingCall wrappers a server has ever
// pre-posted, reclaiming each once it is no longer running and nothing
// else holds a reference to it.
type ClientManager struct {
	mu      sync.Mutex
	entries []*IncomingCall

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup

	log *logrus.Entry
}

// NewClientManager returns an empty ClientManager.
func NewClientManager(log *logrus.Entry) *ClientManager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ClientManager{log: log}
}

// Register adds call to the managed set.
func (m *ClientManager) Register(call *IncomingCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, call)
}

// Start begins the periodic reap loop.
func (m *ClientManager) Start() {
	m.ticker = time.NewTicker(reapInterval)
	m.stopCh = make(chan struct{})
	m.wg.Add(1)
	go m.loop()
}

func (m *ClientManager) loop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ticker.C:
			m.reap()
		case <-m.stopCh:
			return
		}
	}
}

// reap copies the entry slice under the lock, then disposes of
// reclaimable entries outside it — the disposing thread may itself be
// the one shutting the server down, so destruction inside the lock or
// inline with the sweep would risk a self-join.
func (m *ClientManager) reap() {
	m.mu.Lock()
	snapshot := make([]*IncomingCall, len(m.entries))
	copy(snapshot, m.entries)
	m.mu.Unlock()

	dead := make(map[*IncomingCall]bool)
	for _, c := range snapshot {
		if c.Handle().IsTerminal() && c.RefCount() <= 1 {
			dead[c] = true
		}
	}
	if len(dead) == 0 {
		return
	}

	m.mu.Lock()
	kept := m.entries[:0:0]
	for _, c := range m.entries {
		if !dead[c] {
			kept = append(kept, c)
		}
	}
	m.entries = kept
	m.mu.Unlock()

	for c := range dead {
		c.Stop(nil)
		m.log.WithField("rpc_id", c.Handle().ID.String()).Debug("reaping finished call")
	}
}

// StopAll posts a ServerFinish(status) to every managed call.
func (m *ClientManager) StopAll(status error) {
	m.mu.Lock()
	snapshot := make([]*IncomingCall, len(m.entries))
	copy(snapshot, m.entries)
	m.mu.Unlock()

	for _, c := range snapshot {
		c.Stop(status)
	}
}

// Stop halts the reap loop and drops every managed entry.
func (m *ClientManager) Stop() {
	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stopCh)
		m.wg.Wait()
	}
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
}

// Len reports the number of currently managed entries, for tests.
func (m *ClientManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
