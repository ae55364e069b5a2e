package audio

import (
	"context"
	"sync"
)

// Renderer owns everything attached to the remote stream: the gated playback
// and the speaking monitor. Closing it releases both and ends the stream.
type Renderer struct {
	stream   *Stream
	playback *Playback
	monitor  *Monitor
	once     sync.Once
}

// NewRenderer attaches playback and a monitor to a remote stream.
func NewRenderer(ctx context.Context, s *Stream, playback *Playback, newTicker func() FrameTicker, onSpeaking func(bool)) *Renderer {
	r := &Renderer{
		stream:   s,
		playback: playback,
		monitor:  NewMonitor(s, newTicker, onSpeaking),
	}
	playback.Attach(ctx, s)
	return r
}

func (r *Renderer) Status() Status { return r.playback.Status() }

func (r *Renderer) Interact(ctx context.Context) Status { return r.playback.Interact(ctx) }

func (r *Renderer) Speaking() bool { return r.monitor.Speaking() }

func (r *Renderer) Close() error {
	var err error
	r.once.Do(func() {
		r.monitor.Close()
		err = r.playback.Close()
		r.stream.Close()
	})
	return err
}
