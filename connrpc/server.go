package connrpc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/estuary/connrpc/server"
)

// ServerClientHandler is the user-supplied callback pair Server
// forwards every accepted call to.
type ServerClientHandler = server.ClientHandler

// Server is the public wrapper around a listening ServerCore.
type Server struct {
	cfg  NetworkConfig
	core *server.ServerCore
}

// SetClientHandler installs h. It must be called before Start.
func (s *Server) SetClientHandler(h ServerClientHandler) {
	s.core = server.New(fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port), s.cfg.workerThreads(), h, logrus.NewEntry(logrus.StandardLogger()))
}

// Start binds and begins accepting.
func (s *Server) Start() bool {
	if s.core == nil {
		s.core = server.New(fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port), s.cfg.workerThreads(), nil, nil)
	}
	return s.core.Start()
}

// Stop shuts the server down.
func (s *Server) Stop() bool {
	if s.core == nil {
		return true
	}
	return s.core.Stop()
}

// IsRunning reports whether the server is still accepting.
func (s *Server) IsRunning() bool {
	return s.core != nil && s.core.IsRunning()
}

// Addr returns the listener's actual bound address.
func (s *Server) Addr() string {
	if s.core == nil {
		return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	}
	return s.core.Addr()
}
