// Package mpvtest provides an in-process fake of mpv's JSON IPC server for
// tests and manual experimentation. It answers the property commands with
// mpv-shaped responses, tracks observe_property registrations per client and
// pushes property-change events when a property changes.
package mpvtest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/aeolun/mpvremote/pkg/protocol"
)

// Server is a fake mpv IPC endpoint. The zero value is not usable; call
// NewServer.
type Server struct {
	listener net.Listener
	shutdown chan struct{}
	wg       sync.WaitGroup
	logger   *log.Logger
	started  bool

	mu       sync.Mutex
	props    map[string]any
	sessions map[*session]struct{}
	commands [][]any
}

// NewServer creates a server preloaded with the given properties. Pass nil
// for an empty property table.
func NewServer(props map[string]any) *Server {
	if props == nil {
		props = make(map[string]any)
	}
	return &Server{
		shutdown: make(chan struct{}),
		props:    props,
		sessions: make(map[*session]struct{}),
	}
}

// SetLogger sets a logger for debugging server activity.
func (s *Server) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// ListenTCP starts accepting connections on the given TCP address
// (":0" picks a free port). Returns the bound address.
func (s *Server) ListenTCP(addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.start(listener)
	return listener.Addr().String(), nil
}

// ListenUnix starts accepting connections on a Unix-domain socket.
func (s *Server) ListenUnix(path string) error {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	s.start(listener)
	return nil
}

func (s *Server) start(listener net.Listener) {
	s.listener = listener
	s.started = true
	s.wg.Add(1)
	go s.acceptLoop()
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and every client connection and waits for the
// session goroutines to finish.
func (s *Server) Stop() {
	if !s.started {
		return
	}
	close(s.shutdown)
	s.listener.Close()
	s.DropClients()
	s.wg.Wait()
}

// DropClients severs every client connection without stopping the listener,
// simulating a player crash. Clients observe a clean EOF.
func (s *Server) DropClients() {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.conn.Close()
	}
}

// SetProperty updates a property and emits a property-change event to every
// client observing it, mirroring what mpv does when playback state moves.
func (s *Server) SetProperty(name string, value any) {
	s.mu.Lock()
	s.props[name] = value
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.notify(name, value)
	}
}

// Property returns the current value of a property.
func (s *Server) Property(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props[name]
}

// Commands returns every non-property command received so far, oldest first.
func (s *Server) Commands() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.commands))
	copy(out, s.commands)
	return out
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				s.logf("Accept error: %v", err)
				return
			}
		}

		sess := &session{server: s, conn: conn, observed: make(map[int64]string)}
		s.mu.Lock()
		s.sessions[sess] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go sess.run()
	}
}

// session is one connected client.
type session struct {
	server *Server
	conn   net.Conn

	writeMu  sync.Mutex
	obsMu    sync.Mutex
	observed map[int64]string // subscription id → property name
}

func (c *session) run() {
	defer c.server.wg.Done()
	defer func() {
		c.conn.Close()
		c.server.mu.Lock()
		delete(c.server.sessions, c)
		c.server.mu.Unlock()
	}()

	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(line, &req); err != nil || len(req.Command) == 0 {
			c.server.logf("Ignoring bad request line %q", line)
			continue
		}

		c.handle(&req)
	}
}

func (c *session) handle(req *protocol.Request) {
	name, _ := req.Command[0].(string)
	switch name {
	case protocol.CommandGetProperty:
		prop, _ := argString(req.Command, 1)
		c.server.mu.Lock()
		value, exists := c.server.props[prop]
		c.server.mu.Unlock()
		if !exists {
			c.respondError(req.RequestID, "property not found")
			return
		}
		c.respondData(req.RequestID, value)

	case protocol.CommandSetProperty:
		prop, ok := argString(req.Command, 1)
		if !ok || len(req.Command) < 3 {
			c.respondError(req.RequestID, "invalid parameter")
			return
		}
		c.respond(req.RequestID)
		c.server.SetProperty(prop, req.Command[2])

	case protocol.CommandObserveProperty:
		id, okID := argInt(req.Command, 1)
		prop, okProp := argString(req.Command, 2)
		if !okID || !okProp {
			c.respondError(req.RequestID, "invalid parameter")
			return
		}
		c.obsMu.Lock()
		c.observed[id] = prop
		c.obsMu.Unlock()
		c.respond(req.RequestID)
		// mpv emits an initial property-change with the current value.
		c.server.mu.Lock()
		value := c.server.props[prop]
		c.server.mu.Unlock()
		c.notify(prop, value)

	default:
		c.server.mu.Lock()
		c.server.commands = append(c.server.commands, req.Command)
		c.server.mu.Unlock()
		c.respond(req.RequestID)
	}
}

// notify pushes a property-change event for every subscription this client
// holds on the named property.
func (c *session) notify(name string, value any) {
	c.obsMu.Lock()
	var ids []int64
	for id, prop := range c.observed {
		if prop == name {
			ids = append(ids, id)
		}
	}
	c.obsMu.Unlock()

	for _, id := range ids {
		c.writeJSON(map[string]any{
			"event": protocol.EventPropertyChange,
			"id":    id,
			"name":  name,
			"data":  value,
		})
	}
}

func (c *session) respond(requestID int64) {
	c.writeJSON(map[string]any{"request_id": requestID, "error": protocol.StatusSuccess})
}

func (c *session) respondData(requestID int64, data any) {
	c.writeJSON(map[string]any{"request_id": requestID, "error": protocol.StatusSuccess, "data": data})
}

func (c *session) respondError(requestID int64, errStr string) {
	c.writeJSON(map[string]any{"request_id": requestID, "error": errStr})
}

func (c *session) writeJSON(obj map[string]any) {
	data, err := json.Marshal(obj)
	if err != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.Write(append(data, '\n'))
}

func argString(command []any, i int) (string, bool) {
	if i >= len(command) {
		return "", false
	}
	s, ok := command[i].(string)
	return s, ok
}

func argInt(command []any, i int) (int64, bool) {
	if i >= len(command) {
		return 0, false
	}
	f, ok := command[i].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
