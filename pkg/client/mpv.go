package client

import (
	"sync"

	"github.com/aeolun/mpvremote/pkg/protocol"
)

// PropertyCallback receives the changed property's name and its new value.
// The value is nil when the property currently has no value.
type PropertyCallback func(name string, value any)

// EventCallback receives the event-specific fields of one named event.
type EventCallback func(params map[string]any)

// Client is the mpv protocol layer over one Connection: typed commands,
// property access, property watches and named event listeners. A Client is
// valid for exactly the lifetime of its Connection and must be discarded,
// not reused, once that Connection disconnects.
type Client struct {
	conn *Connection

	mu          sync.Mutex
	watches     map[int64]PropertyCallback
	nextWatchID int64
	listeners   map[string][]EventCallback
}

// NewClient wraps a Connection and registers itself for its events. The
// Connection is typically freshly constructed and connected.
func NewClient(conn *Connection) *Client {
	c := &Client{
		conn:      conn,
		watches:   make(map[int64]PropertyCallback),
		listeners: make(map[string][]EventCallback),
	}
	conn.AddEventListener(c.onEvent)
	return c
}

// Connection returns the underlying connection.
func (c *Client) Connection() *Connection {
	return c.conn
}

// Command issues a fire-and-forget command. Arguments are passed through to
// the player unvalidated.
func (c *Client) Command(command string, args ...any) error {
	return c.conn.Send(command, args...)
}

// GetProperty reads a property value. It returns the data field of the
// response, which is nil when the property has no value; a player-side error
// string also yields nil, matching mpv's own get_property semantics for
// unavailable properties.
func (c *Client) GetProperty(name string) (any, error) {
	resp, err := c.conn.Request(protocol.CommandGetProperty, name)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SetProperty sets a property, fire-and-forget.
func (c *Client) SetProperty(name string, value any) error {
	return c.conn.Send(protocol.CommandSetProperty, name, value)
}

// WatchProperty registers a callback for changes to the named property and
// issues the observe_property command with a client-chosen subscription id.
// Ids start at 1 and are never reused within a connection. Watching the same
// property twice yields two independent subscriptions; there is no unwatch.
func (c *Client) WatchProperty(name string, callback PropertyCallback) error {
	c.mu.Lock()
	c.nextWatchID++
	id := c.nextWatchID
	c.watches[id] = callback
	c.mu.Unlock()

	if err := c.conn.Send(protocol.CommandObserveProperty, id, name); err != nil {
		c.mu.Lock()
		delete(c.watches, id)
		c.mu.Unlock()
		return err
	}
	return nil
}

// AddEventListener appends a listener for a named event. All listeners for
// an event are invoked; duplicates are allowed. The synthetic "disconnected"
// event is an ordinary named event here and is the usual place to hook
// reconnection.
func (c *Client) AddEventListener(event string, listener EventCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[event] = append(c.listeners[event], listener)
}

// onEvent routes one connection event: property-change events go to the
// matching subscription callback (unknown ids are ignored), then any
// listeners registered for the event name run concurrently. onEvent returns
// once all of them finish, which holds back only this client's own dispatch
// queue, never the connection's reader.
func (c *Client) onEvent(event string, params map[string]any) {
	if event == protocol.EventPropertyChange {
		ev := protocol.Event{Name: event, Params: params}
		if id, name, data, ok := ev.PropertyChange(); ok {
			c.mu.Lock()
			callback := c.watches[id]
			c.mu.Unlock()
			if callback != nil {
				callback(name, data)
			}
		}
	}

	c.mu.Lock()
	listeners := make([]EventCallback, len(c.listeners[event]))
	copy(listeners, c.listeners[event])
	c.mu.Unlock()

	if len(listeners) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, listener := range listeners {
		wg.Add(1)
		go func(fn EventCallback) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.conn.logf("Event callback panicked on %q: %v", event, r)
					c.conn.metrics.RecordListenerPanic()
				}
			}()
			fn(params)
		}(listener)
	}
	wg.Wait()
}
