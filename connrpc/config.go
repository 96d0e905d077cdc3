// Package connrpc is the public surface of the connection runtime: a
// ConnectionManager that matches configuration against registered
// transport factories, and the Client/Server/Publisher/Subscriber
// wrapper types each factory produces.
package connrpc

import "time"

// NetworkConfig configures a Client, Server, Publisher, or Subscriber.
type NetworkConfig struct {
	Host string
	Port int

	// WorkerThreads sizes the completion-queue executor a Client or
	// Server allocates, and bounds a Server's concurrent accept slots.
	WorkerThreads int

	// OperationBlocking is carried on the configuration but is not read
	// by any constructor in this package: whether Writer.Write blocks
	// until the writer pump has flushed is set only by NewWriter's
	// blocking argument.
	OperationBlocking bool

	// TechnologyTag selects which registered Factory handles this
	// configuration.
	TechnologyTag string

	// DialTimeout bounds how long a Client or Subscriber waits for the
	// initial connection to become ready. Zero means a short default.
	DialTimeout time.Duration
}

func (c NetworkConfig) dialTimeout() time.Duration {
	if c.DialTimeout > 0 {
		return c.DialTimeout
	}
	return 2 * time.Second
}

func (c NetworkConfig) workerThreads() int {
	if c.WorkerThreads > 0 {
		return c.WorkerThreads
	}
	return 4
}
