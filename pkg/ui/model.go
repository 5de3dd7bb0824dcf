// Package ui implements the interactive terminal remote control.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aeolun/mpvremote/pkg/player"
)

// StatusMsg carries a player snapshot into the update loop.
type StatusMsg player.Status

// tickMsg drives the between-poll position extrapolation.
type tickMsg time.Time

// Model represents the application state
type Model struct {
	player  *player.Player
	updates <-chan player.Status

	status   player.Status
	progress progress.Model

	width  int
	height int

	errorMessage string
	showHelp     bool
}

// New builds the initial model around an already started Player.
func New(p *player.Player) Model {
	return Model{
		player:   p,
		updates:  p.Subscribe(),
		status:   p.Status(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForStatus(m.updates), tick())
}

// waitForStatus blocks on the subscription channel and re-arms itself from
// Update, one snapshot per command.
func waitForStatus(updates <-chan player.Status) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-updates
		if !ok {
			return nil
		}
		return StatusMsg(status)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		width := msg.Width - 8
		if width < 10 {
			width = 10
		}
		m.progress.Width = width
		return m, nil

	case StatusMsg:
		m.status = player.Status(msg)
		return m, waitForStatus(m.updates)

	case tickMsg:
		// Redraw so the extrapolated position advances between updates.
		return m, tick()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errorMessage = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp

	case " ":
		if m.status.State == player.StatePaused {
			m.reportError(m.player.Resume())
		} else {
			m.reportError(m.player.Pause())
		}

	case "left":
		m.reportError(m.player.SeekBy(-10))

	case "right":
		m.reportError(m.player.SeekBy(10))

	case "n":
		m.reportError(m.player.Next())

	case "p":
		m.reportError(m.player.Prev())

	case "s":
		m.reportError(m.player.Stop())

	case "c":
		m.reportError(m.player.ClearPlaylist())

	case "m":
		m.reportError(m.player.SetMute(!m.status.Muted))

	case "+", "=":
		m.reportError(m.player.SetVolume(clampVolume(m.status.Volume + 5)))

	case "-":
		m.reportError(m.player.SetVolume(clampVolume(m.status.Volume - 5)))

	case "r":
		m.reportError(m.player.SetRepeat(nextRepeatMode(m.status.Repeat)))
	}

	return m, nil
}

// reportError surfaces a verb failure in the footer instead of crashing the
// program; most failures here just mean the player is between connections.
func (m *Model) reportError(err error) {
	if err != nil {
		m.errorMessage = err.Error()
	}
}

func clampVolume(percent float64) float64 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent / 100
}

func nextRepeatMode(mode player.RepeatMode) player.RepeatMode {
	switch mode {
	case player.RepeatOff:
		return player.RepeatOne
	case player.RepeatOne:
		return player.RepeatAll
	default:
		return player.RepeatOff
	}
}
