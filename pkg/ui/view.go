package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/aeolun/mpvremote/pkg/player"
)

func (m Model) View() string {
	if m.showHelp {
		return m.helpView()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("mpv remote"))
	b.WriteString("  ")
	b.WriteString(m.stateBadge())
	b.WriteString("\n\n")

	title := m.status.Title
	if title == "" {
		title = "(nothing playing)"
	}
	b.WriteString(PaneStyle.Width(m.paneWidth()).Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.progressView())
	b.WriteString("\n\n")
	b.WriteString(m.volumeView())
	b.WriteString("\n")

	if m.errorMessage != "" {
		b.WriteString(ErrorStyle.Render(m.errorMessage))
		b.WriteString("\n")
	}

	b.WriteString(FooterStyle.Render(m.footerView()))
	return b.String()
}

func (m Model) paneWidth() int {
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return width
}

func (m Model) stateBadge() string {
	switch m.status.State {
	case player.StatePlaying:
		return StatePlayingStyle.Render("▶ playing")
	case player.StatePaused:
		return StatePausedStyle.Render("⏸ paused")
	case player.StateBuffering:
		return StatePausedStyle.Render("… buffering")
	case player.StateIdle:
		return TimeStyle.Render("idle")
	default:
		return StateOfflineStyle.Render("✕ disconnected")
	}
}

// position extrapolates between polls so the bar keeps moving.
func (m Model) position() float64 {
	position := m.status.Position
	if m.status.State == player.StatePlaying && !m.status.PositionUpdatedAt.IsZero() {
		position += time.Since(m.status.PositionUpdatedAt).Seconds()
	}
	if m.status.Duration > 0 && position > m.status.Duration {
		position = m.status.Duration
	}
	return position
}

func (m Model) progressView() string {
	position := m.position()
	percent := 0.0
	if m.status.Duration > 0 {
		percent = position / m.status.Duration
	}

	bar := m.progress.ViewAs(percent)
	times := TimeStyle.Render(fmt.Sprintf("%s / %s",
		formatTime(position), formatTime(m.status.Duration)))
	return bar + " " + times
}

func (m Model) volumeView() string {
	volume := fmt.Sprintf("vol %3.0f%%", m.status.Volume)
	if m.status.Muted {
		volume = "muted"
	}
	repeat := ""
	switch m.status.Repeat {
	case player.RepeatOne:
		repeat = "  repeat: one"
	case player.RepeatAll:
		repeat = "  repeat: all"
	}
	return TimeStyle.Render(volume + repeat)
}

func (m Model) footerView() string {
	shortcuts := []struct{ key, desc string }{
		{"space", "play/pause"},
		{"←/→", "seek"},
		{"n/p", "track"},
		{"?", "help"},
		{"q", "quit"},
	}

	parts := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		parts = append(parts, ShortcutKeyStyle.Render(s.key)+" "+ShortcutDescStyle.Render(s.desc))
	}
	return strings.Join(parts, "  ")
}

func (m Model) helpView() string {
	rows := []struct{ key, desc string }{
		{"space", "toggle play/pause"},
		{"left/right", "seek 10 seconds back/forward"},
		{"n", "next playlist entry"},
		{"p", "previous playlist entry"},
		{"s", "stop playback"},
		{"c", "clear playlist"},
		{"m", "toggle mute"},
		{"+/-", "volume up/down"},
		{"r", "cycle repeat mode"},
		{"?", "close help"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			ShortcutKeyStyle.Render(fmt.Sprintf("%-12s", r.key)),
			ShortcutDescStyle.Render(r.desc)))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func formatTime(seconds float64) string {
	if seconds <= 0 {
		return "--:--"
	}
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	}
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
