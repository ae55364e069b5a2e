package recording

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/leonardotrapani/mockroom/internal/audio"
)

// Player writes a stream to pw-play as mono f32.
type Player struct {
	device string

	muted  atomic.Bool
	volume atomic.Uint64 // float64 bits

	mu      sync.Mutex
	cancel  context.CancelFunc
	unsub   func()
	done    chan struct{}
	playing bool
}

func NewPlayer(device string) *Player {
	p := &Player{device: device}
	p.volume.Store(math.Float64bits(1))
	return p
}

func (p *Player) SetMuted(m bool) { p.muted.Store(m) }

func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.volume.Store(math.Float64bits(v))
}

func buildPwPlayArgs(rate int, device string) []string {
	args := []string{
		"--format", "f32",
		"--rate", strconv.Itoa(rate),
		"--channels", "1",
		"--media-role", "Communication",
	}
	if device != "" {
		args = append(args, "--target", device)
	}
	return append(args, "-")
}

// Play starts pw-play for s. A sink that cannot be started is reported as
// audio.ErrAutoplayBlocked so the caller can retry on user interaction.
func (p *Player) Play(ctx context.Context, s *audio.Stream) error {
	if s == nil {
		return fmt.Errorf("no stream")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return nil
	}

	if _, err := exec.LookPath("pw-play"); err != nil {
		return fmt.Errorf("%w: pw-play not found: %v", audio.ErrAutoplayBlocked, err)
	}

	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(pctx, "pw-play", buildPwPlayArgs(s.SampleRate(), p.device)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: start pw-play: %v", audio.ErrAutoplayBlocked, err)
	}

	blocks, unsub := s.Subscribe(64)
	p.cancel = cancel
	p.unsub = unsub
	p.done = make(chan struct{})
	p.playing = true

	go p.feed(blocks, stdin, cmd, p.done)
	return nil
}

func (p *Player) feed(blocks <-chan []float32, stdin io.WriteCloser, cmd *exec.Cmd, done chan struct{}) {
	defer close(done)
	w := bufio.NewWriter(stdin)
	var buf []byte
	for block := range blocks {
		gain := float32(math.Float64frombits(p.volume.Load()))
		if p.muted.Load() {
			gain = 0
		}
		buf = buf[:0]
		for _, s := range block {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(s*gain))
		}
		if _, err := w.Write(buf); err != nil {
			log.Printf("Playback: write to pw-play failed: %v", err)
			break
		}
		_ = w.Flush()
	}
	_ = stdin.Close()
	_ = cmd.Wait()

	// the sink is gone; let the next Play start a fresh one
	p.mu.Lock()
	var cancel context.CancelFunc
	var unsub func()
	if p.done == done {
		cancel, unsub = p.cancel, p.unsub
		p.cancel, p.unsub, p.done = nil, nil, nil
		p.playing = false
	}
	p.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
}

func (p *Player) isPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) Close() error {
	p.mu.Lock()
	cancel, unsub, done := p.cancel, p.unsub, p.done
	p.cancel, p.unsub, p.done = nil, nil, nil
	p.playing = false
	p.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return nil
}
