// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package link

import (
	"log/slog"
	"net"
	"sort"
	"sync"
)

// Service owns the set of live connections in a df1d process. It replaces
// any file-scope connection list: the daemon constructs one Service and
// passes it around explicitly.
type Service struct {
	mu     sync.Mutex
	conns  map[string]*Connection
	logger *slog.Logger
}

// NewService creates an empty service.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		conns:  make(map[string]*Connection),
		logger: logger,
	}
}

// Add creates, starts, and tracks a connection over the given line. A
// connection with the same name must not already exist.
func (s *Service) Add(name string, line ByteChannel, listener net.Listener, opts ...Option) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[name]; ok {
		return nil, ErrAddressInUse
	}
	conn := NewConnection(name, line, opts...)
	conn.Start(listener)
	s.conns[name] = conn
	return conn, nil
}

// Remove closes and forgets a connection by name.
func (s *Service) Remove(name string) {
	s.mu.Lock()
	conn, ok := s.conns[name]
	delete(s.conns, name)
	s.mu.Unlock()
	if ok {
		s.logger.Info("closing connection", slog.String("conn", name))
		conn.Close()
	}
}

// Names returns the sorted names of live connections.
func (s *Service) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.conns))
	for name := range s.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a live connection by name.
func (s *Service) Get(name string) *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[name]
}

// CloseAll shuts down every connection.
func (s *Service) CloseAll() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for name, conn := range s.conns {
		conns = append(conns, conn)
		delete(s.conns, name)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		s.logger.Info("closing connection", slog.String("conn", conn.Name()))
		conn.Close()
	}
}
