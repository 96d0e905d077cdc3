package connrpc

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogo/protobuf/types"
	"github.com/stretchr/testify/require"

	"github.com/estuary/connrpc/envelope"
	"github.com/estuary/connrpc/incoming"
)

func stringValue(s string) *types.StringValue  { return &types.StringValue{Value: s} }
func doubleValue(f float64) *types.DoubleValue { return &types.DoubleValue{Value: f} }

// recordingHandler is a minimal ServerClientHandler for tests: it calls
// onHandle, hands each accepted call to onMessage on its own goroutine,
// and lets tests control Handle's return value (false stops the server).
type recordingHandler struct {
	onMessage    func(*incoming.IncomingCall)
	onHandle     func()
	handleResult *bool
}

func (h *recordingHandler) ConfigureClient(c *incoming.IncomingCall) {}

func (h *recordingHandler) Handle(c *incoming.IncomingCall, keepAlive *bool) bool {
	if h.onHandle != nil {
		h.onHandle()
	}
	if h.onMessage != nil {
		go h.onMessage(c)
	}
	if h.handleResult != nil {
		return *h.handleResult
	}
	return true
}

func falsePtr() *bool {
	b := false
	return &b
}

// TestSingleClientServerEcho is scenario S1: a client connects, writes
// a StringValue, and the server-side handler observes it.
func TestSingleClientServerEcho(t *testing.T) {
	received := make(chan string, 1)
	handler := &recordingHandler{onMessage: func(c *incoming.IncomingCall) {
		env, ok := c.ReaderSink.Get(2 * time.Second)
		if !ok {
			return
		}
		c.ReaderSink.Pop()
		var sv types.StringValue
		if envelope.Unpack(env, &sv) == nil {
			received <- sv.Value
		}
	}}

	srv := &Server{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15901, WorkerThreads: 2}}
	srv.SetClientHandler(handler)
	require.True(t, srv.Start())
	defer srv.Stop()

	cli := &Client{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15901}}
	require.True(t, cli.Start())
	defer cli.Stop()

	writer := NewWriter[*types.StringValue](cli.WriterSink(), false)
	require.NoError(t, writer.Write(stringValue("hello")))

	select {
	case got := <-received:
		require.Equal(t, "hello", got)
	case <-time.After(2 * time.Second):
		t.Fatal("server never observed the message")
	}
}

// TestFanOut is scenario S2: a publisher with 10 subscribers delivers
// one message to every subscriber exactly once.
func TestFanOut(t *testing.T) {
	pub := &Publisher{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15902, WorkerThreads: 4}}
	require.True(t, pub.Start())
	defer pub.Stop()

	const n = 10
	subs := make([]*Subscriber, n)
	for i := range subs {
		subs[i] = &Subscriber{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15902}}
		require.True(t, subs[i].Start())
		defer subs[i].Stop()
	}

	deadline := time.Now().Add(2 * time.Second)
	for pub.SubscriberCount() != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, n, pub.SubscriberCount())

	require.NoError(t, pub.Send(doubleValue(3.14)))

	for _, s := range subs {
		reader := NewReader[*types.DoubleValue](s.ReaderSink(), func() *types.DoubleValue { return new(types.DoubleValue) })
		msg, ok := reader.Read(2 * time.Second)
		require.True(t, ok)
		require.Equal(t, 3.14, msg.Value)
	}
}

// TestSubscriberDeath is scenario S3: killing one subscriber prunes it
// from the publisher's fan-out without disturbing the rest.
func TestSubscriberDeath(t *testing.T) {
	pub := &Publisher{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15903, WorkerThreads: 4}}
	require.True(t, pub.Start())
	defer pub.Stop()

	sub1 := &Subscriber{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15903}}
	sub2 := &Subscriber{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15903}}
	require.True(t, sub1.Start())
	require.True(t, sub2.Start())
	defer sub1.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for pub.SubscriberCount() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 2, pub.SubscriberCount())

	require.NoError(t, pub.Send(doubleValue(1)))
	reader1 := NewReader[*types.DoubleValue](sub1.ReaderSink(), func() *types.DoubleValue { return new(types.DoubleValue) })
	reader2 := NewReader[*types.DoubleValue](sub2.ReaderSink(), func() *types.DoubleValue { return new(types.DoubleValue) })
	_, ok := reader1.Read(2 * time.Second)
	require.True(t, ok)
	_, ok = reader2.Read(2 * time.Second)
	require.True(t, ok)

	require.True(t, sub2.Stop())

	require.NoError(t, pub.Send(doubleValue(2)))
	msg, ok := reader1.Read(2 * time.Second)
	require.True(t, ok)
	require.Equal(t, float64(2), msg.Value)

	deadline = time.Now().Add(time.Second)
	for pub.SubscriberCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, pub.SubscriberCount())
}

// TestHandlerRejectsServer is scenario S5: a handler that returns false
// shuts the server down.
func TestHandlerRejectsServer(t *testing.T) {
	handler := &recordingHandler{handleResult: falsePtr()}
	srv := &Server{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15905, WorkerThreads: 2}}
	srv.SetClientHandler(handler)
	require.True(t, srv.Start())
	defer srv.Stop()

	cli := &Client{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15905}}
	require.True(t, cli.Start())
	defer cli.Stop()

	deadline := time.Now().Add(time.Second)
	for srv.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.False(t, srv.IsRunning())
}

// TestGracefulStopMidAccept is scenario S6: Stop must not deadlock even
// while a handler is still running.
func TestGracefulStopMidAccept(t *testing.T) {
	started := make(chan struct{})
	handler := &recordingHandler{onHandle: func() {
		close(started)
		time.Sleep(200 * time.Millisecond)
	}}

	srv := &Server{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15906, WorkerThreads: 2}}
	srv.SetClientHandler(handler)
	require.True(t, srv.Start())

	cli := &Client{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15906}}
	require.True(t, cli.Start())
	defer cli.Stop()

	<-started

	done := make(chan bool, 1)
	go func() { done <- srv.Stop() }()

	select {
	case ok := <-done:
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop deadlocked")
	}
}

// TestConcurrentClientFlood is scenario S4: with four worker threads,
// a fifth client is only accepted once one of the first four releases
// its slot.
func TestConcurrentClientFlood(t *testing.T) {
	var handled int32
	handler := &recordingHandler{onHandle: func() {
		atomic.AddInt32(&handled, 1)
	}}

	srv := &Server{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15904, WorkerThreads: 4}}
	srv.SetClientHandler(handler)
	require.True(t, srv.Start())
	defer srv.Stop()

	clients := make([]*Client, 0, 5)
	defer func() {
		for _, c := range clients {
			c.Stop()
		}
	}()

	for i := 0; i < 4; i++ {
		c := &Client{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15904}}
		require.True(t, c.Start())
		clients = append(clients, c)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&handled) < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.EqualValues(t, 4, atomic.LoadInt32(&handled))

	// A fifth connect attempt must not be accepted while all four
	// worker slots are occupied.
	fifth := &Client{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15904, DialTimeout: 300 * time.Millisecond}}
	stillFour := make(chan bool, 1)
	go func() {
		time.Sleep(500 * time.Millisecond)
		stillFour <- atomic.LoadInt32(&handled) == 4
	}()

	connected := make(chan bool, 1)
	go func() { connected <- fifth.Start() }()

	require.True(t, <-stillFour, "fifth client was accepted before any slot freed")

	// Releasing one of the first four frees a slot for the fifth.
	require.True(t, clients[0].Stop())

	select {
	case ok := <-connected:
		require.True(t, ok)
		clients = append(clients, fifth)
	case <-time.After(3 * time.Second):
		t.Fatal("fifth client never connected after a slot freed")
	}

	deadline = time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&handled) < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.EqualValues(t, 5, atomic.LoadInt32(&handled))
}
