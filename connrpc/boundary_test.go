package connrpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSecondServerOnSamePortFails(t *testing.T) {
	srv1 := &Server{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15910, WorkerThreads: 2}}
	require.True(t, srv1.Start())
	defer srv1.Stop()

	srv2 := &Server{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15910, WorkerThreads: 2}}
	require.False(t, srv2.Start())
}

func TestSubscriberBeforePublisherFails(t *testing.T) {
	sub := &Subscriber{cfg: NetworkConfig{
		Host: "127.0.0.1", Port: 15911,
		DialTimeout: 200 * time.Millisecond,
	}}
	require.False(t, sub.Start())
}

func TestClientLosesServerMidCall(t *testing.T) {
	srv := &Server{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15912, WorkerThreads: 2}}
	require.True(t, srv.Start())

	cli := &Client{cfg: NetworkConfig{Host: "127.0.0.1", Port: 15912}}
	require.True(t, cli.Start())
	defer cli.Stop()

	srv.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for cli.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.False(t, cli.IsRunning())
}
