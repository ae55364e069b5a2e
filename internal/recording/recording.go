package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"time"
)

// Capture is always little-endian f32; the microphone track decodes nothing else.
const captureFormat = "f32"

type Config struct {
	SampleRate int
	Channels   int
	Device     string
	// BufferSize is the size of a single read from pw-record.
	BufferSize int
	// ChannelBufferSize is how many reads may queue before new ones are dropped.
	ChannelBufferSize int
	// Communication tags the stream for the echo-cancel filter.
	Communication bool
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        24000,
		Channels:          1,
		BufferSize:        3840, // 40ms of mono f32 at 24kHz
		ChannelBufferSize: 32,
	}
}

func (c Config) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	case c.Channels <= 0:
		return fmt.Errorf("invalid channel count: %d", c.Channels)
	case c.BufferSize <= 0:
		return fmt.Errorf("invalid buffer size: %d", c.BufferSize)
	case c.ChannelBufferSize <= 0:
		return fmt.Errorf("invalid channel buffer size: %d", c.ChannelBufferSize)
	}
	return nil
}

func pwRecordArgs(c Config) []string {
	args := []string{
		"--format", captureFormat,
		"--rate", strconv.Itoa(c.SampleRate),
		"--channels", strconv.Itoa(c.Channels),
	}
	if c.Device != "" {
		args = append(args, "--target", c.Device)
	}
	if c.Communication {
		args = append(args, "--media-role", "Communication")
	}
	return append(args, "-")
}

// Capture owns one pw-record process. Raw reads arrive on Chunks until the
// process exits or Stop is called.
type Capture struct {
	chunks chan []byte
	cancel context.CancelFunc
	done   chan struct{}
	err    error // written before done closes
}

// StartCapture checks PipeWire and launches pw-record. The process lives
// until ctx ends or Stop is called.
func StartCapture(ctx context.Context, cfg Config) (*Capture, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, fmt.Errorf("PipeWire not available: %w", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, "pw-record", pwRecordArgs(cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start pw-record: %w", err)
	}

	c := &Capture{
		chunks: make(chan []byte, cfg.ChannelBufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go logLines("pw-record", stderr)
	go c.read(cctx, cmd, stdout, cfg.BufferSize)
	return c, nil
}

func (c *Capture) Chunks() <-chan []byte { return c.chunks }

// Err waits for the process to exit and reports why it ended on its own,
// or nil after Stop or a clean end of stream.
func (c *Capture) Err() error {
	<-c.done
	return c.err
}

// Stop ends the process and waits for it. Safe to call repeatedly.
func (c *Capture) Stop() error {
	c.cancel()
	<-c.done
	return nil
}

func (c *Capture) read(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, size int) {
	defer close(c.done)
	defer func() { _ = cmd.Wait() }()
	defer close(c.chunks)

	buf := make([]byte, size)
	dropped := 0
	lastReport := time.Now()
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case c.chunks <- chunk:
			default:
				dropped++
			}
			if dropped > 0 && time.Since(lastReport) > time.Second {
				log.Printf("Recording: dropped %d reads, consumer too slow", dropped)
				dropped, lastReport = 0, time.Now()
			}
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) && ctx.Err() == nil {
			c.err = fmt.Errorf("read audio: %w", err)
			log.Printf("Recording: %v", c.err)
		}
		return
	}
}

func logLines(name string, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		log.Printf("Recording: %s: %s", name, sc.Text())
	}
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(cctx, "pw-cli", "info").Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

// HasEchoCancel reports whether an echo-cancel source node is loaded.
func HasEchoCancel(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return exec.CommandContext(cctx, "pw-cli", "info", "echo-cancel-source").Run() == nil
}
