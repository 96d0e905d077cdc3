// Command echo-server runs a connrpc server that logs every StringValue
// it receives.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gogo/protobuf/types"
	"github.com/sirupsen/logrus"

	"github.com/estuary/connrpc/connrpc"
	"github.com/estuary/connrpc/envelope"
	"github.com/estuary/connrpc/incoming"
)

type echoHandler struct {
	log *logrus.Entry
}

func (h *echoHandler) ConfigureClient(c *incoming.IncomingCall) {}

func (h *echoHandler) Handle(c *incoming.IncomingCall, keepAlive *bool) bool {
	*keepAlive = true
	go h.serve(c)
	return true
}

func (h *echoHandler) serve(c *incoming.IncomingCall) {
	for {
		env, ok := c.ReaderSink.Get(0)
		if !ok {
			if !c.IsRunning() {
				return
			}
			continue
		}
		c.ReaderSink.Pop()

		var sv types.StringValue
		if err := envelope.Unpack(env, &sv); err != nil {
			h.log.WithError(err).Debug("dropping unrecognized frame")
			continue
		}
		h.log.WithField("value", sv.Value).Info("received message")
	}
}

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())

	mgr := connrpc.NewConnectionManager()
	s := mgr.CreateServer(connrpc.NetworkConfig{
		Host:          "127.0.0.1",
		Port:          5678,
		WorkerThreads: 4,
		TechnologyTag: "grpc",
	})
	s.SetClientHandler(&echoHandler{log: log})
	if !s.Start() {
		log.Fatal("server failed to start")
	}
	log.Info("echo-server listening on 127.0.0.1:5678")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	s.Stop()
}
