package player

import (
	"fmt"

	"github.com/aeolun/mpvremote/pkg/protocol"
)

// Play resolves mediaID through the configured Resolver and loads it
// according to the enqueue mode. EnqueuePlay inserts the media next in the
// playlist and skips to it; everything else maps directly onto a loadfile
// flag. Playback is unpaused afterwards.
func (p *Player) Play(mediaID string, mode Enqueue) error {
	mpv, err := p.client()
	if err != nil {
		return err
	}

	url, err := p.resolver.Resolve(mediaID)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", mediaID, err)
	}

	var flag string
	skipToIt := false
	switch mode {
	case "", EnqueueReplace:
		flag = protocol.LoadFileReplace
	case EnqueueAdd:
		flag = protocol.LoadFileAppend
	case EnqueueNext:
		flag = protocol.LoadFileInsertNext
	case EnqueuePlay:
		flag = protocol.LoadFileInsertNext
		skipToIt = true
	default:
		return fmt.Errorf("unsupported enqueue mode %q", mode)
	}

	if err := mpv.Command(protocol.CommandLoadFile, url, flag); err != nil {
		return err
	}
	if skipToIt {
		if err := mpv.Command(protocol.CommandPlaylistNext); err != nil {
			return err
		}
	}
	return mpv.SetProperty(protocol.PropertyPause, false)
}

// Pause pauses playback.
func (p *Player) Pause() error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	return mpv.SetProperty(protocol.PropertyPause, true)
}

// Resume resumes paused playback.
func (p *Player) Resume() error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	return mpv.SetProperty(protocol.PropertyPause, false)
}

// Stop stops playback and clears the current file.
func (p *Player) Stop() error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	return mpv.Command(protocol.CommandStop)
}

// SeekTo seeks to an absolute position in seconds and refreshes the
// reported position immediately rather than waiting for the next poll.
func (p *Player) SeekTo(seconds float64) error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	if err := mpv.Command(protocol.CommandSeek, seconds, protocol.SeekAbsolute); err != nil {
		return err
	}
	p.refreshPosition(mpv)
	return nil
}

// SeekBy seeks relative to the current position.
func (p *Player) SeekBy(seconds float64) error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	if err := mpv.Command(protocol.CommandSeek, seconds, protocol.SeekRelative); err != nil {
		return err
	}
	p.refreshPosition(mpv)
	return nil
}

// Next skips to the next playlist entry.
func (p *Player) Next() error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	return mpv.Command(protocol.CommandPlaylistNext)
}

// Prev skips to the previous playlist entry.
func (p *Player) Prev() error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	return mpv.Command(protocol.CommandPlaylistPrev)
}

// ClearPlaylist removes every playlist entry except the one playing.
func (p *Player) ClearPlaylist() error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	return mpv.Command(protocol.CommandPlaylistClear)
}

// SetVolume sets the volume as a 0..1 fraction of mpv's 0..100 scale.
func (p *Player) SetVolume(level float64) error {
	if level < 0 || level > 1 {
		return fmt.Errorf("volume %v out of range [0, 1]", level)
	}
	mpv, err := p.client()
	if err != nil {
		return err
	}
	return mpv.SetProperty(protocol.PropertyVolume, int(level*100))
}

// SetMute mutes or unmutes.
func (p *Player) SetMute(muted bool) error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	return mpv.SetProperty(protocol.PropertyMute, muted)
}

// SetRepeat sets both loop properties so exactly one repeat mode is active.
func (p *Player) SetRepeat(mode RepeatMode) error {
	mpv, err := p.client()
	if err != nil {
		return err
	}
	if err := mpv.SetProperty(protocol.PropertyLoopFile, mode == RepeatOne); err != nil {
		return err
	}
	return mpv.SetProperty(protocol.PropertyLoopPlaylist, mode == RepeatAll)
}
