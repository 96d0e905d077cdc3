// Command echo-client connects to an echo-server and writes a single
// StringValue.
package main

import (
	"os"
	"time"

	"github.com/gogo/protobuf/types"
	"github.com/sirupsen/logrus"

	"github.com/estuary/connrpc/connrpc"
)

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())

	message := "hello"
	if len(os.Args) > 1 {
		message = os.Args[1]
	}

	mgr := connrpc.NewConnectionManager()
	c := mgr.CreateClient(connrpc.NetworkConfig{
		Host:          "127.0.0.1",
		Port:          5678,
		TechnologyTag: "grpc",
	})
	if !c.Start() {
		log.Fatal("client failed to connect")
	}
	defer c.Stop()

	writer := connrpc.NewWriter[*types.StringValue](c.WriterSink(), true)
	if err := writer.Write(&types.StringValue{Value: message}); err != nil {
		log.WithError(err).Fatal("write failed")
	}

	log.WithField("value", message).Info("sent message")
	time.Sleep(100 * time.Millisecond)
}
