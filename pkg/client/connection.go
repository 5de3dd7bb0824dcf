// Package client implements the mpv JSON IPC client: a line-oriented
// Connection that correlates pipelined requests with their responses and fans
// out asynchronous events, plus the Client protocol layer on top of it.
package client

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/aeolun/mpvremote/pkg/protocol"
)

// EventListener receives every event decoded from the stream, including the
// synthetic "disconnected" event. Listeners are invoked from their own
// goroutine; a slow listener delays neither the reader nor other listeners.
type EventListener func(event string, params map[string]any)

// Connection owns one duplex stream to the player plus the in-flight request
// bookkeeping. A Connection is used for exactly one connect/disconnect cycle;
// after it reports disconnection it must be discarded and a fresh one
// constructed for the next attempt.
type Connection struct {
	addr        string
	dial        func() (net.Conn, error)
	warning     string
	warningOnce sync.Once

	mu      sync.Mutex // guards conn, closing, nextID, pending
	conn    net.Conn
	closing bool
	nextID  int64
	pending map[int64]chan *protocol.Response

	// Serializes encode-and-write so concurrent senders never interleave
	// partial lines.
	writeMu sync.Mutex

	listenersMu sync.Mutex
	listeners   []*listenerQueue

	readerDone chan struct{}

	logger  *log.Logger
	metrics *Metrics
}

// NewConnection creates a connection for the given target. Supported targets:
// "host:port", "tcp://host:port", "unix:///path/to/socket", a bare socket
// path, and "ssh://user@host/path/to/socket" (tunnelled to a remote Unix
// socket). The target is only parsed here; nothing is dialed until Connect.
func NewConnection(target string) (*Connection, error) {
	cfg, err := parseTarget(target)
	if err != nil {
		return nil, err
	}

	return &Connection{
		addr:    cfg.display,
		dial:    cfg.dial,
		warning: cfg.warning,
	}, nil
}

// SetLogger sets a logger for debugging connection events.
func (c *Connection) SetLogger(logger *log.Logger) {
	c.logger = logger
}

// SetMetrics attaches metrics to the connection.
func (c *Connection) SetMetrics(m *Metrics) {
	c.metrics = m
}

func (c *Connection) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// Addr returns the display form of the target.
func (c *Connection) Addr() string {
	return c.addr
}

// Connect dials the target once. On failure the error wraps
// ErrConnectionFailed and the Connection stays unconnected so the caller may
// retry; backoff policy belongs to the caller. On success the request id
// counter restarts at 1, the pending table is cleared and the background
// reader starts.
func (c *Connection) Connect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("already connected to %s", c.addr)
	}
	c.mu.Unlock()

	c.logf("Connecting to %s...", c.addr)
	c.metrics.RecordConnectAttempt()

	conn, err := c.dial()
	if err != nil {
		c.logf("Connection failed: %v", err)
		c.metrics.RecordConnectFailure()
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.closing = false
	c.nextID = 1
	c.pending = make(map[int64]chan *protocol.Response)
	c.readerDone = make(chan struct{})
	c.mu.Unlock()

	c.logf("Connected to %s", c.addr)

	c.warningOnce.Do(func() {
		if c.warning != "" {
			c.logf("WARNING: %s", c.warning)
		}
	})

	go c.readLoop(conn, c.readerDone)

	return nil
}

// IsConnected reports whether a live transport exists. It flips to false as
// soon as the reader detects a failure, before the disconnected event is
// delivered.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closing
}

// Disconnect deliberately tears the connection down: it stops the reader,
// closes the transport and waits for the reader to finish. No disconnected
// event is emitted for a deliberate teardown. Calling Disconnect on an
// already-closed connection is a no-op.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return
	}
	c.logf("Disconnecting from %s", c.addr)
	c.closing = true
	conn := c.conn
	done := c.readerDone
	pending := c.pending
	c.pending = make(map[int64]chan *protocol.Response)
	c.mu.Unlock()

	conn.Close()
	<-done

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}

	c.closeListeners()
}

// Send issues a fire-and-forget command. A request id is still allocated so
// ids stay monotonic and are never accidentally reused, but no reply is
// awaited and no pending entry is left behind.
func (c *Connection) Send(command string, args ...any) error {
	_, err := c.send(command, args, false)
	return err
}

// Request issues a command and blocks until the matching response arrives or
// the connection is lost. No timeout is applied at this layer; a caller that
// needs a deadline must impose it externally.
func (c *Connection) Request(command string, args ...any) (*protocol.Response, error) {
	return c.send(command, args, true)
}

func (c *Connection) send(command string, args []any, wantResponse bool) (*protocol.Response, error) {
	c.mu.Lock()
	if c.conn == nil || c.closing {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	id := c.nextID
	c.nextID++

	// The pending slot is registered before the bytes hit the wire, so the
	// response can never race the slot's existence.
	var respCh chan *protocol.Response
	if wantResponse {
		respCh = make(chan *protocol.Response, 1)
		c.pending[id] = respCh
	}
	c.mu.Unlock()

	line, err := protocol.EncodeRequest(protocol.NewRequest(id, command, args...))
	if err != nil {
		c.removePending(id)
		return nil, err
	}

	c.logf("→ SEND: %s", line[:len(line)-1])

	c.writeMu.Lock()
	_, werr := conn.Write(line)
	c.writeMu.Unlock()
	if werr != nil {
		c.removePending(id)
		c.logf("Write error: %v", werr)
		c.failConnection()
		return nil, fmt.Errorf("%w: write failed: %v", ErrDisconnected, werr)
	}
	c.metrics.RecordRequestSent(command)

	if !wantResponse {
		return nil, nil
	}

	resp, ok := <-respCh
	if !ok || resp == nil {
		return nil, ErrDisconnected
	}
	return resp, nil
}

func (c *Connection) removePending(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// readLoop runs for the lifetime of one connection, decoding one line at a
// time until end-of-stream, a transport error, or a deliberate Disconnect.
func (c *Connection) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			c.mu.Lock()
			closing := c.closing
			c.mu.Unlock()
			if closing {
				// Deliberate teardown, no disconnection procedure.
				return
			}
			c.logf("Read error: %v", err)
			c.failConnection()
			return
		}

		msg, err := protocol.DecodeMessage(line)
		if err != nil {
			// Undecodable lines are logged and skipped; the reader and the
			// framing survive.
			c.logf("Failed to decode line %q: %v", line, err)
			c.metrics.RecordMalformedLine()
			continue
		}

		switch {
		case msg.Response != nil:
			c.logf("← RECV: response id=%d error=%q", msg.RequestID, msg.Response.Error)
			c.resolvePending(msg.RequestID, msg.Response)
		case msg.Event != nil:
			c.logf("← RECV: event %s", msg.Event.Name)
			c.metrics.RecordEventReceived(msg.Event.Name)
			c.fanOut(msg.Event.Name, msg.Event.Params)
		default:
			// A valid JSON object that is neither a response nor an event.
			c.logf("Ignoring unrecognized line %q", line)
		}
	}
}

// resolvePending hands the response to the waiting request, if any. A
// response with no matching slot (fire-and-forget reply, stale id) is
// discarded silently.
func (c *Connection) resolvePending(id int64, resp *protocol.Response) {
	c.mu.Lock()
	ch, exists := c.pending[id]
	if exists {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !exists {
		c.metrics.RecordResponseDropped()
		return
	}
	c.metrics.RecordResponseMatched()
	ch <- resp
}

// failConnection is the disconnection procedure: it clears the transport
// handle, fails every pending request with ErrDisconnected, and synthesizes
// a "disconnected" event delivered through the same fan-out path as any
// other event. Runs at most once per connection; later calls are no-ops.
func (c *Connection) failConnection() {
	c.mu.Lock()
	if c.conn == nil || c.closing {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	pending := c.pending
	c.pending = make(map[int64]chan *protocol.Response)
	c.mu.Unlock()

	conn.Close()
	c.logf("Connection to %s broken", c.addr)
	c.metrics.RecordDisconnect()

	for _, ch := range pending {
		close(ch)
	}

	c.fanOut(protocol.EventDisconnected, map[string]any{})
	c.closeListeners()
}

// AddEventListener registers a listener for every decoded event. Listeners
// are kept in registration order and are not deduplicated. Each listener is
// driven by its own dispatch goroutine.
func (c *Connection) AddEventListener(fn EventListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, newListenerQueue(c, fn))
}

// fanOut queues the event for every registered listener. The queues are
// unbounded, so the reader never blocks on a slow listener.
func (c *Connection) fanOut(event string, params map[string]any) {
	c.listenersMu.Lock()
	listeners := make([]*listenerQueue, len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.Unlock()

	for _, l := range listeners {
		l.push(event, params)
	}
}

func (c *Connection) closeListeners() {
	c.listenersMu.Lock()
	listeners := c.listeners
	c.listenersMu.Unlock()

	for _, l := range listeners {
		l.close()
	}
}
