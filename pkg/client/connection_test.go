package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeolun/mpvremote/pkg/protocol"
)

// newTestConnection returns a connected Connection backed by an in-memory
// pipe, plus the peer end for the test to script.
func newTestConnection(t *testing.T) (*Connection, net.Conn) {
	t.Helper()

	clientSide, serverSide := net.Pipe()
	c := &Connection{
		addr: "pipe",
		dial: func() (net.Conn, error) { return clientSide, nil },
	}
	require.NoError(t, c.Connect())

	t.Cleanup(func() {
		serverSide.Close()
		c.Disconnect()
	})

	return c, serverSide
}

func (c *Connection) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestConnectFailure(t *testing.T) {
	c, err := NewConnection("127.0.0.1:1")
	require.NoError(t, err)

	err = c.Connect()
	require.ErrorIs(t, err, ErrConnectionFailed)
	assert.False(t, c.IsConnected())

	// The instance stays usable for a retry.
	err = c.Connect()
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestSendNotConnected(t *testing.T) {
	c := &Connection{addr: "test"}
	assert.ErrorIs(t, c.Send("stop"), ErrNotConnected)

	_, err := c.Request("get_property", "pause")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRequestResponseCorrelation(t *testing.T) {
	const requests = 16

	c, server := newTestConnection(t)

	// Read all requests first, then answer them in reverse order, echoing
	// the requested property name back as data.
	go func() {
		reader := bufio.NewReader(server)
		var lines [][]byte
		for i := 0; i < requests; i++ {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				return
			}
			lines = append(lines, line)
		}
		for i := len(lines) - 1; i >= 0; i-- {
			var req protocol.Request
			if json.Unmarshal(lines[i], &req) != nil {
				return
			}
			reply := fmt.Sprintf("{\"request_id\":%d,\"error\":\"success\",\"data\":%q}\n",
				req.RequestID, req.Command[1])
			if _, err := server.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("prop-%d", i)
			resp, err := c.Request("get_property", want)
			assert.NoError(t, err)
			if resp != nil {
				assert.Equal(t, want, resp.Data)
			}
		}(i)
	}
	wg.Wait()

	assert.Zero(t, c.pendingCount())
}

func TestFireAndForgetLeavesNoPending(t *testing.T) {
	c, server := newTestConnection(t)

	received := make(chan *protocol.Request, 1)
	go func() {
		reader := bufio.NewReader(server)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var req protocol.Request
		if json.Unmarshal(line, &req) == nil {
			received <- &req
		}
	}()

	require.NoError(t, c.Send("stop"))

	select {
	case req := <-received:
		assert.Equal(t, int64(1), req.RequestID)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the command")
	}
	assert.Zero(t, c.pendingCount())

	// A late response for a fire-and-forget id is discarded silently and
	// does not disturb the next request.
	go func() {
		server.Write([]byte("{\"request_id\":1,\"error\":\"success\"}\n"))
		reader := bufio.NewReader(server)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var req protocol.Request
		if json.Unmarshal(line, &req) == nil {
			server.Write([]byte(fmt.Sprintf("{\"request_id\":%d,\"data\":true}\n", req.RequestID)))
		}
	}()

	resp, err := c.Request("get_property", "pause")
	require.NoError(t, err)
	assert.Equal(t, true, resp.Data)
}

func TestRequestIDsMonotonic(t *testing.T) {
	c, server := newTestConnection(t)

	ids := make(chan int64, 3)
	go func() {
		reader := bufio.NewReader(server)
		for i := 0; i < 3; i++ {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				return
			}
			var req protocol.Request
			if json.Unmarshal(line, &req) == nil {
				ids <- req.RequestID
			}
		}
	}()

	require.NoError(t, c.Send("stop"))
	require.NoError(t, c.Send("stop"))
	require.NoError(t, c.Send("stop"))

	assert.Equal(t, int64(1), <-ids)
	assert.Equal(t, int64(2), <-ids)
	assert.Equal(t, int64(3), <-ids)
}

func TestMalformedLineSkipped(t *testing.T) {
	c, server := newTestConnection(t)

	go func() {
		reader := bufio.NewReader(server)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var req protocol.Request
		if json.Unmarshal(line, &req) != nil {
			return
		}
		server.Write([]byte("this is not json\n"))
		server.Write([]byte(fmt.Sprintf("{\"request_id\":%d,\"data\":42}\n", req.RequestID)))
	}()

	resp, err := c.Request("get_property", "volume")
	require.NoError(t, err)
	assert.Equal(t, float64(42), resp.Data)
	assert.True(t, c.IsConnected())
}

func TestDisconnectedEventOnEOF(t *testing.T) {
	c, server := newTestConnection(t)

	type received struct {
		event  string
		params map[string]any
	}
	first := make(chan received, 4)
	second := make(chan received, 4)

	c.AddEventListener(func(event string, params map[string]any) {
		first <- received{event, params}
	})
	c.AddEventListener(func(event string, params map[string]any) {
		second <- received{event, params}
	})

	// Nothing is delivered while the peer stays up.
	select {
	case got := <-first:
		t.Fatalf("spurious event %q while connected", got.event)
	case <-time.After(50 * time.Millisecond):
	}

	server.Close()

	for name, ch := range map[string]chan received{"first": first, "second": second} {
		select {
		case got := <-ch:
			assert.Equal(t, protocol.EventDisconnected, got.event)
			assert.Empty(t, got.params)
		case <-time.After(2 * time.Second):
			t.Fatalf("%s listener never saw the disconnected event", name)
		}
	}

	assert.False(t, c.IsConnected())

	// Exactly once per connection loss.
	select {
	case got := <-first:
		t.Fatalf("second disconnected delivery: %q", got.event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPendingRequestsFailOnDisconnect(t *testing.T) {
	c, server := newTestConnection(t)

	// The peer reads the request but dies before answering.
	go func() {
		reader := bufio.NewReader(server)
		reader.ReadBytes('\n')
		server.Close()
	}()

	_, err := c.Request("get_property", "pause")
	require.ErrorIs(t, err, ErrDisconnected)
	assert.Zero(t, c.pendingCount())
	assert.False(t, c.IsConnected())
}

func TestDisconnectStopsReader(t *testing.T) {
	c, server := newTestConnection(t)

	events := make(chan string, 4)
	c.AddEventListener(func(event string, params map[string]any) {
		events <- event
	})

	c.Disconnect()
	assert.False(t, c.IsConnected())

	// The peer's view of the stream is gone; nothing more is delivered,
	// not even a disconnected event, because the teardown was deliberate.
	server.Write([]byte("{\"event\":\"idle\"}\n"))

	select {
	case event := <-events:
		t.Fatalf("event %q delivered after Disconnect", event)
	case <-time.After(100 * time.Millisecond):
	}

	// Double disconnect must not corrupt state.
	c.Disconnect()
}

func TestEventFanOutOrderPerListener(t *testing.T) {
	c, server := newTestConnection(t)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	c.AddEventListener(func(event string, params map[string]any) {
		mu.Lock()
		got = append(got, event)
		n := len(got)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
	})

	server.Write([]byte("{\"event\":\"a\"}\n{\"event\":\"b\"}\n{\"event\":\"c\"}\n"))

	waitFor(t, done, "three events")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSlowListenerDoesNotBlockOthers(t *testing.T) {
	c, server := newTestConnection(t)

	release := make(chan struct{})
	slowDone := make(chan struct{})
	var slowCount int
	c.AddEventListener(func(event string, params map[string]any) {
		<-release
		slowCount++
		if slowCount == 3 {
			close(slowDone)
		}
	})

	fastDone := make(chan struct{})
	var fastCount int
	c.AddEventListener(func(event string, params map[string]any) {
		fastCount++
		if fastCount == 3 {
			close(fastDone)
		}
	})

	server.Write([]byte("{\"event\":\"a\"}\n{\"event\":\"b\"}\n{\"event\":\"c\"}\n"))

	// The fast listener gets all three deliveries while the slow one is
	// still stuck on the first.
	waitFor(t, fastDone, "fast listener deliveries")

	close(release)
	waitFor(t, slowDone, "slow listener to drain its queue")
}

func TestListenerPanicIsIsolated(t *testing.T) {
	c, server := newTestConnection(t)

	done := make(chan struct{})
	c.AddEventListener(func(event string, params map[string]any) {
		panic("listener bug")
	})
	c.AddEventListener(func(event string, params map[string]any) {
		if event == "second" {
			close(done)
		}
	})

	server.Write([]byte("{\"event\":\"first\"}\n{\"event\":\"second\"}\n"))

	waitFor(t, done, "healthy listener after a panicking one")
	assert.True(t, c.IsConnected())
}

func TestReadErrorTriggersDisconnectedEvent(t *testing.T) {
	// A mid-stream transport error (not a clean EOF) follows the same
	// disconnection procedure.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	c, err := NewConnection(listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	defer c.Disconnect()

	serverConn := <-accepted

	done := make(chan struct{})
	c.AddEventListener(func(event string, params map[string]any) {
		if event == protocol.EventDisconnected {
			close(done)
		}
	})

	// RST instead of FIN.
	if tcp, ok := serverConn.(*net.TCPConn); ok {
		tcp.SetLinger(0)
	}
	serverConn.Close()

	waitFor(t, done, "disconnected event after read error")
	assert.False(t, c.IsConnected())
}
