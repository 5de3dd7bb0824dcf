// Package player turns the raw IPC client into a stateful media player: it
// owns the reconnect loop, re-registers property watches after every
// successful connect, derives a single playback state from the player's
// property soup and keeps the playback position fresh while playing.
package player

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/aeolun/mpvremote/pkg/client"
	"github.com/aeolun/mpvremote/pkg/protocol"
)

// State is the derived playback state.
type State string

const (
	StateUnavailable State = "unavailable"
	StateIdle        State = "idle"
	StatePaused      State = "paused"
	StateBuffering   State = "buffering"
	StatePlaying     State = "playing"
)

// RepeatMode maps onto mpv's loop-file / loop-playlist properties.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatOne RepeatMode = "one"
	RepeatAll RepeatMode = "all"
)

// Enqueue selects where Play puts the media in the playlist.
type Enqueue string

const (
	EnqueueReplace Enqueue = "replace"
	EnqueueAdd     Enqueue = "add"
	EnqueueNext    Enqueue = "next"
	EnqueuePlay    Enqueue = "play"
)

// Status is one self-consistent snapshot of the player.
type Status struct {
	State             State
	Title             string
	Duration          float64 // seconds, 0 when unknown
	Position          float64 // seconds
	PositionUpdatedAt time.Time
	Volume            float64 // 0..100
	Muted             bool
	Repeat            RepeatMode
}

// Options configures a Player. Target is required; everything else has a
// usable default.
type Options struct {
	Target   string
	Resolver Resolver
	Logger   *log.Logger
	Metrics  *client.Metrics

	// PollInterval is how often the position is refreshed while playing.
	PollInterval time.Duration

	// BackoffBase and BackoffMax bound the reconnect delay, which doubles
	// after every failed attempt.
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// History, when set, records playback positions for resume lookups.
	History *History

	// Notify enables a desktop notification when the media title changes.
	Notify bool
}

const (
	defaultPollInterval = 5 * time.Second
	defaultBackoffBase  = 5 * time.Second
	defaultBackoffMax   = 80 * time.Second
)

// Player supervises successive connections to one mpv instance. Construct
// with New, then Start; subscriptions and verbs are safe from any goroutine.
type Player struct {
	target       string
	resolver     Resolver
	logger       *log.Logger
	metrics      *client.Metrics
	pollInterval time.Duration
	backoffBase  time.Duration
	backoffMax   time.Duration
	history      *History
	notify       bool

	mu          sync.Mutex
	conn        *client.Connection
	mpv         *client.Client
	status      Status
	subscribers []chan Status
	pollStop    chan struct{}

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New validates the options and creates a stopped Player.
func New(opts Options) (*Player, error) {
	// Fail fast on an unparseable target instead of from the run loop.
	if _, err := client.NewConnection(opts.Target); err != nil {
		return nil, err
	}

	if opts.Resolver == nil {
		opts.Resolver = PassthroughResolver{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = defaultBackoffMax
	}

	return &Player{
		target:       opts.Target,
		resolver:     opts.Resolver,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		pollInterval: opts.PollInterval,
		backoffBase:  opts.BackoffBase,
		backoffMax:   opts.BackoffMax,
		history:      opts.History,
		notify:       opts.Notify,
		status:       Status{State: StateUnavailable, Repeat: RepeatOff},
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}, nil
}

func (p *Player) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

// Target returns the configured target string.
func (p *Player) Target() string {
	return p.target
}

// Start launches the supervision loop. Call Close to stop it.
func (p *Player) Start() {
	go p.run()
}

// Close stops the supervision loop, disconnecting if connected, and waits
// for it to finish. The Player cannot be restarted.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		close(p.stop)
	})
	<-p.done
}

// run connects, watches, and reconnects until Close. Each cycle uses a
// fresh Connection and Client; neither survives a disconnect.
func (p *Player) run() {
	defer close(p.done)

	for {
		conn, err := client.NewConnection(p.target)
		if err != nil {
			// Target was validated in New; this cannot happen.
			p.logf("Invalid target %q: %v", p.target, err)
			return
		}
		conn.SetLogger(p.logger)
		conn.SetMetrics(p.metrics)

		if !p.connectWithBackoff(conn) {
			return
		}

		mpv := client.NewClient(conn)

		lost := make(chan struct{})
		var lostOnce sync.Once
		mpv.AddEventListener(protocol.EventDisconnected, func(map[string]any) {
			lostOnce.Do(func() { close(lost) })
		})

		// Publish the client before the watches so that the first watch
		// callback already finds a usable player.
		p.mu.Lock()
		p.conn = conn
		p.mpv = mpv
		p.mu.Unlock()

		if err := p.registerWatches(mpv); err != nil {
			p.logf("Failed to register property watches: %v", err)
		} else if conn.IsConnected() {
			p.refreshState(mpv)
		}

		select {
		case <-lost:
			p.setUnavailable()
			// Loop around for a fresh connection; watches are re-issued
			// because subscriptions do not survive a reconnect.
		case <-p.stop:
			p.setUnavailable()
			conn.Disconnect()
			return
		}
	}
}

// connectWithBackoff dials until it succeeds or the player is closed,
// doubling the delay after each failure up to the configured cap.
func (p *Player) connectWithBackoff(conn *client.Connection) bool {
	delay := p.backoffBase
	attempt := 1

	for {
		select {
		case <-p.stop:
			return false
		default:
		}

		err := conn.Connect()
		if err == nil {
			return true
		}
		p.logf("Connect attempt %d to %s failed: %v (next attempt in %v)",
			attempt, conn.Addr(), err, delay)

		select {
		case <-p.stop:
			return false
		case <-time.After(delay):
		}

		delay *= 2
		if delay > p.backoffMax {
			delay = p.backoffMax
		}
		attempt++
	}
}

// registerWatches re-issues every property watch on a fresh client.
func (p *Player) registerWatches(mpv *client.Client) error {
	stateRefresh := func(string, any) { p.refreshState(mpv) }
	watches := []struct {
		property string
		callback client.PropertyCallback
	}{
		{protocol.PropertyIdleActive, stateRefresh},
		{protocol.PropertyPause, stateRefresh},
		{protocol.PropertyBuffering, stateRefresh},
		{protocol.PropertyMute, p.onMuteChange},
		{protocol.PropertyVolume, p.onVolumeChange},
		{protocol.PropertyDuration, p.onDurationChange},
		{protocol.PropertyMediaTitle, p.onTitleChange},
		{protocol.PropertyLoopFile, p.onLoopChange},
		{protocol.PropertyLoopPlaylist, p.onLoopChange},
	}

	for _, w := range watches {
		if err := mpv.WatchProperty(w.property, w.callback); err != nil {
			return fmt.Errorf("watch %s: %w", w.property, err)
		}
	}
	return nil
}

// refreshState re-derives the playback state from the three state-bearing
// properties, in precedence order, then refreshes the position and starts
// or stops the position poll loop.
func (p *Player) refreshState(mpv *client.Client) {
	var state State
	switch {
	case p.propertyTrue(mpv, protocol.PropertyIdleActive):
		state = StateIdle
	case p.propertyTrue(mpv, protocol.PropertyPause):
		state = StatePaused
	case p.propertyTrue(mpv, protocol.PropertyBuffering):
		state = StateBuffering
	default:
		state = StatePlaying
	}

	p.update(func(s *Status) { s.State = state })
	p.refreshPosition(mpv)

	p.mu.Lock()
	if state == StatePlaying && p.pollStop == nil {
		stop := make(chan struct{})
		p.pollStop = stop
		go p.pollPositionLoop(mpv, stop)
	} else if state != StatePlaying && p.pollStop != nil {
		close(p.pollStop)
		p.pollStop = nil
	}
	p.mu.Unlock()
}

func (p *Player) propertyTrue(mpv *client.Client, name string) bool {
	value, err := mpv.GetProperty(name)
	if err != nil {
		return false
	}
	return truthy(value)
}

func (p *Player) pollPositionLoop(mpv *client.Client, stop chan struct{}) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.refreshPosition(mpv)
		case <-stop:
			return
		case <-p.stop:
			return
		}
	}
}

func (p *Player) refreshPosition(mpv *client.Client) {
	value, err := mpv.GetProperty(protocol.PropertyTimePos)
	if err != nil {
		return
	}
	position, _ := value.(float64)

	p.mu.Lock()
	p.status.Position = position
	p.status.PositionUpdatedAt = time.Now()
	snapshot := p.status
	p.mu.Unlock()
	p.publish(snapshot)

	if p.history != nil && snapshot.Title != "" && snapshot.State == StatePlaying {
		if err := p.history.RecordPosition(snapshot.Title, position, snapshot.Duration); err != nil {
			p.logf("Failed to record playback position: %v", err)
		}
	}
}

func (p *Player) onMuteChange(_ string, value any) {
	p.update(func(s *Status) { s.Muted = truthy(value) })
}

func (p *Player) onVolumeChange(_ string, value any) {
	if volume, ok := value.(float64); ok {
		p.update(func(s *Status) { s.Volume = volume })
	}
}

func (p *Player) onDurationChange(_ string, value any) {
	duration, _ := value.(float64)
	p.update(func(s *Status) { s.Duration = duration })
}

func (p *Player) onTitleChange(_ string, value any) {
	title, _ := value.(string)

	p.mu.Lock()
	changed := title != p.status.Title
	p.status.Title = title
	snapshot := p.status
	p.mu.Unlock()
	p.publish(snapshot)

	if changed && title != "" && p.notify {
		if err := beeep.Notify("mpvremote", "Now playing: "+title, ""); err != nil {
			p.logf("Desktop notification failed: %v", err)
		}
	}
}

// onLoopChange folds the two loop properties into one repeat mode. Turning
// one loop property off only clears the repeat mode if that property was
// the one that set it.
func (p *Player) onLoopChange(name string, value any) {
	mode := RepeatAll
	if name == protocol.PropertyLoopFile {
		mode = RepeatOne
	}

	p.update(func(s *Status) {
		if truthy(value) {
			s.Repeat = mode
		} else if s.Repeat == mode {
			s.Repeat = RepeatOff
		}
	})
}

func (p *Player) setUnavailable() {
	p.mu.Lock()
	p.conn = nil
	p.mpv = nil
	p.status.State = StateUnavailable
	if p.pollStop != nil {
		close(p.pollStop)
		p.pollStop = nil
	}
	snapshot := p.status
	p.mu.Unlock()
	p.publish(snapshot)
}

func (p *Player) update(fn func(*Status)) {
	p.mu.Lock()
	fn(&p.status)
	snapshot := p.status
	p.mu.Unlock()
	p.publish(snapshot)
}

// Status returns the latest snapshot.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Subscribe returns a channel of status snapshots. Updates are dropped
// rather than block when a subscriber lags; the latest snapshot is always
// available from Status.
func (p *Player) Subscribe() <-chan Status {
	ch := make(chan Status, 16)
	p.mu.Lock()
	p.subscribers = append(p.subscribers, ch)
	snapshot := p.status
	p.mu.Unlock()

	// Prime the subscriber with the current state.
	ch <- snapshot
	return ch
}

func (p *Player) publish(snapshot Status) {
	p.mu.Lock()
	subscribers := make([]chan Status, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// client returns the live protocol client, or ErrNotConnected between
// connections.
func (p *Player) client() (*client.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mpv == nil {
		return nil, client.ErrNotConnected
	}
	return p.mpv, nil
}

// History returns the resume-position store, or nil when disabled.
func (p *Player) History() *History {
	return p.history
}

// truthy interprets the loosely-typed property values mpv sends: booleans,
// the "inf"/"no" strings of the loop properties, and numbers.
func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != "" && v != "no" && v != "false"
	case float64:
		return v != 0
	case nil:
		return false
	}
	return true
}
