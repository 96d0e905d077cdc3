package connrpc

import (
	"fmt"

	"github.com/gogo/protobuf/proto"

	"github.com/estuary/connrpc/envelope"
	"github.com/estuary/connrpc/publisher"
	"github.com/estuary/connrpc/server"
)

// Publisher is a Server whose ClientHandler fans every published
// message out to all connected subscribers.
type Publisher struct {
	cfg     NetworkConfig
	handler *publisher.ClientHandler
	core    *server.ServerCore
}

// Start binds and begins accepting subscribers.
func (p *Publisher) Start() bool {
	p.handler = publisher.New()
	p.core = server.New(fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port), p.cfg.workerThreads(), p.handler, nil)
	return p.core.Start()
}

// Stop releases every subscriber and shuts the server down.
func (p *Publisher) Stop() bool {
	if p.handler != nil {
		p.handler.ReleaseClients()
	}
	if p.core == nil {
		return true
	}
	return p.core.Stop()
}

// IsRunning reports whether the underlying server is still accepting.
func (p *Publisher) IsRunning() bool {
	return p.core != nil && p.core.IsRunning()
}

// SubscriberCount reports how many subscribers are currently retained.
func (p *Publisher) SubscriberCount() int {
	if p.handler == nil {
		return 0
	}
	return p.handler.Count()
}

// Send packs msg and fans it out to every connected subscriber.
func (p *Publisher) Send(msg proto.Message) error {
	env, err := envelope.Pack(msg)
	if err != nil {
		return err
	}
	p.handler.Send(env)
	return nil
}
