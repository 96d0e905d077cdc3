package connrpc

import "sync"

// Factory constructs the four connection types for configurations whose
// TechnologyTag it claims.
type Factory interface {
	// Tag is the technology tag this factory registers under.
	Tag() string
	NewClient(cfg NetworkConfig) *Client
	NewServer(cfg NetworkConfig) *Server
	NewPublisher(cfg NetworkConfig) *Publisher
	NewSubscriber(cfg NetworkConfig) *Subscriber
}

type grpcFactory struct{}

func (grpcFactory) Tag() string                       { return "grpc" }
func (grpcFactory) NewClient(cfg NetworkConfig) *Client       { return &Client{cfg: cfg} }
func (grpcFactory) NewServer(cfg NetworkConfig) *Server       { return &Server{cfg: cfg} }
func (grpcFactory) NewPublisher(cfg NetworkConfig) *Publisher { return &Publisher{cfg: cfg} }
func (grpcFactory) NewSubscriber(cfg NetworkConfig) *Subscriber {
	return &Subscriber{cfg: cfg}
}

// registration pairs a Factory with its registration order, used to
// break specificity ties (most recently registered wins).
type registration struct {
	factory Factory
	order   int
}

// ConnectionManager matches a NetworkConfig's TechnologyTag against
// registered factories — the longest tag that is a prefix of the
// config's tag wins; ties are broken in favor of the most recently
// registered factory.
type ConnectionManager struct {
	mu        sync.Mutex
	factories []registration
	next      int
}

// NewConnectionManager returns a ConnectionManager with the built-in
// grpc factory already registered under the tag "grpc".
func NewConnectionManager() *ConnectionManager {
	m := &ConnectionManager{}
	m.Register(grpcFactory{})
	return m
}

// Register adds f to the set of candidate factories.
func (m *ConnectionManager) Register(f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories = append(m.factories, registration{factory: f, order: m.next})
	m.next++
}

func (m *ConnectionManager) match(tag string) Factory {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *registration
	for i := range m.factories {
		cand := &m.factories[i]
		ft := cand.factory.Tag()
		if len(tag) < len(ft) || tag[:len(ft)] != ft {
			continue
		}
		if best == nil {
			best = cand
			continue
		}
		if len(ft) > len(best.factory.Tag()) {
			best = cand
		} else if len(ft) == len(best.factory.Tag()) && cand.order >= best.order {
			best = cand
		}
	}
	if best == nil {
		return nil
	}
	return best.factory
}

// CreateClient matches cfg and constructs a Client, or nil if no
// registered factory claims cfg.TechnologyTag.
func (m *ConnectionManager) CreateClient(cfg NetworkConfig) *Client {
	if f := m.match(cfg.TechnologyTag); f != nil {
		return f.NewClient(cfg)
	}
	return nil
}

// CreateServer matches cfg and constructs a Server.
func (m *ConnectionManager) CreateServer(cfg NetworkConfig) *Server {
	if f := m.match(cfg.TechnologyTag); f != nil {
		return f.NewServer(cfg)
	}
	return nil
}

// CreatePublisher matches cfg and constructs a Publisher.
func (m *ConnectionManager) CreatePublisher(cfg NetworkConfig) *Publisher {
	if f := m.match(cfg.TechnologyTag); f != nil {
		return f.NewPublisher(cfg)
	}
	return nil
}

// CreateSubscriber matches cfg and constructs a Subscriber.
func (m *ConnectionManager) CreateSubscriber(cfg NetworkConfig) *Subscriber {
	if f := m.match(cfg.TechnologyTag); f != nil {
		return f.NewSubscriber(cfg)
	}
	return nil
}
