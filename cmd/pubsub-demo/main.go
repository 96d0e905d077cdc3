// Command pubsub-demo runs a publisher that emits a DoubleValue every
// second to however many subscribers have connected.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogo/protobuf/types"
	"github.com/sirupsen/logrus"

	"github.com/estuary/connrpc/connrpc"
)

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())

	mgr := connrpc.NewConnectionManager()
	pub := mgr.CreatePublisher(connrpc.NetworkConfig{
		Host:          "127.0.0.1",
		Port:          5679,
		WorkerThreads: 4,
		TechnologyTag: "grpc",
	})
	if !pub.Start() {
		log.Fatal("publisher failed to start")
	}
	defer pub.Stop()
	log.Info("pubsub-demo listening on 127.0.0.1:5679")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var tick float64
	for {
		select {
		case <-ticker.C:
			tick++
			if err := pub.Send(&types.DoubleValue{Value: tick}); err != nil {
				log.WithError(err).Warn("send failed")
				continue
			}
			log.WithField("subscribers", pub.SubscriberCount()).WithField("value", tick).Info("published")
		case <-sigCh:
			return
		}
	}
}
