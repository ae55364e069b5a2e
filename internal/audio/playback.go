package audio

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrAutoplayBlocked is returned by a Player that refuses to start without a
// user gesture.
var ErrAutoplayBlocked = errors.New("autoplay blocked")

// Status is the state of the remote-audio autoplay gate.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusBlocked  Status = "blocked"
	StatusNoSource Status = "no source"
)

// Player renders a stream to an output device.
type Player interface {
	Play(ctx context.Context, s *Stream) error
	SetMuted(muted bool)
	SetVolume(v float64)
	Close() error
}

// Playback gates remote audio: the first Play is attempted automatically when
// a stream is attached and a refusal leaves the output muted until Interact.
type Playback struct {
	player   Player
	volume   float64
	onStatus func(Status)

	mu     sync.Mutex
	stream *Stream
	status Status
	closed bool
}

func NewPlayback(player Player, volume float64, onStatus func(Status)) *Playback {
	if volume <= 0 || volume > 1 {
		volume = 1
	}
	return &Playback{player: player, volume: volume, onStatus: onStatus, status: StatusNoSource}
}

func (p *Playback) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Attach binds the remote stream and makes the automatic play attempt.
func (p *Playback) Attach(ctx context.Context, s *Stream) Status {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return StatusNoSource
	}
	p.stream = s
	p.mu.Unlock()

	if s == nil {
		p.setStatus(StatusNoSource)
		return StatusNoSource
	}
	p.setStatus(StatusWaiting)
	return p.attempt(ctx)
}

// Interact retries playback after a user gesture. It does nothing unless the
// gate is currently blocked.
func (p *Playback) Interact(ctx context.Context) Status {
	p.mu.Lock()
	status := p.status
	closed := p.closed
	p.mu.Unlock()
	if closed || status != StatusBlocked {
		return status
	}
	p.player.SetMuted(false)
	p.player.SetVolume(p.volume)
	return p.attempt(ctx)
}

func (p *Playback) attempt(ctx context.Context) Status {
	p.mu.Lock()
	s := p.stream
	p.mu.Unlock()

	if err := p.player.Play(ctx, s); err != nil {
		log.Printf("Playback: remote audio did not start: %v", err)
		p.player.SetMuted(true)
		p.setStatus(StatusBlocked)
		return StatusBlocked
	}
	p.setStatus(StatusPlaying)
	return StatusPlaying
}

func (p *Playback) setStatus(s Status) {
	p.mu.Lock()
	changed := p.status != s && !p.closed
	if changed {
		p.status = s
	}
	cb := p.onStatus
	p.mu.Unlock()
	if changed && cb != nil {
		cb(s)
	}
}

// Close releases the player. Safe to call repeatedly.
func (p *Playback) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.stream = nil
	p.mu.Unlock()
	return p.player.Close()
}
