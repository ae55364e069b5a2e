package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leonardotrapani/mockroom/internal/audio"
)

// State of the transcription connection.
type State string

const (
	StateIdle        State = "idle"
	StateConnecting  State = "connecting"
	StateConfiguring State = "configuring"
	StateStreaming   State = "streaming"
	StateClosed      State = "closed"
	StateError       State = "error"
)

// Client streams microphone audio to the realtime transcription service and
// surfaces partial and final captions. One Client serves one Start/Stop cycle.
type Client struct {
	opts      Options
	transport Transport

	events chan Event
	done   chan struct{}
	emitMu sync.RWMutex

	mu     sync.Mutex
	state  State
	conn   Conn
	unsub  func()
	cancel context.CancelFunc

	writeMu sync.Mutex
	wg      sync.WaitGroup
	once    sync.Once

	lastWriteErr time.Time
}

func New(opts Options, transport Transport) *Client {
	if transport == nil {
		transport = WebSocketTransport{}
	}
	return &Client{
		opts:      opts,
		transport: transport,
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
		state:     StateIdle,
	}
}

// Events delivers captions and errors; closed by Stop.
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// closed is final
	if c.state == StateClosed {
		return
	}
	c.state = s
}

// Start resolves configuration, connects, configures the session and begins
// streaming mic. A *ConfigurationError is returned before any connection is
// attempted.
func (c *Client) Start(ctx context.Context, mic *audio.Stream) error {
	c.mu.Lock()
	if c.state != StateIdle {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("transcription client already started (state %s)", st)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	r, err := c.opts.resolve()
	if err != nil {
		c.setState(StateError)
		return err
	}

	log.Printf("Realtime: connecting to %s", redact(r.url))
	conn, err := c.transport.Dial(ctx, r.url)
	if err != nil {
		c.setState(StateError)
		return &ProtocolError{Message: "connect", Err: err}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		cancel()
		conn.Close()
		return errors.New("transcription client stopped during start")
	}
	c.conn = conn
	c.cancel = cancel
	c.state = StateConfiguring
	c.mu.Unlock()

	if err := c.write(newSessionUpdate(r)); err != nil {
		c.setState(StateError)
		return &ProtocolError{Message: "configure session", Err: err}
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return errors.New("transcription client stopped during start")
	}
	c.state = StateStreaming
	c.wg.Add(1)
	c.mu.Unlock()
	go c.readLoop(runCtx, conn)

	if mic != nil {
		c.stream(runCtx, mic)
	}
	log.Printf("Realtime: streaming, deployment=%s, language=%s", r.deployment, r.language)
	return nil
}

func (c *Client) write(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("no connection")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// stream subscribes to mic and sends each processor frame as an append.
func (c *Client) stream(ctx context.Context, mic *audio.Stream) {
	proc := audio.NewProcessor(c.opts.PreferWorklet, audio.WorkletAvailable())
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	blocks, unsub := mic.Subscribe(64)
	c.unsub = unsub
	c.wg.Add(1)
	c.mu.Unlock()

	rate := mic.SampleRate()
	send := func(pcm []byte) {
		if ctx.Err() != nil {
			return
		}
		err := c.write(inputAudioAppend{Type: "input_audio_buffer.append", Audio: audio.EncodeBase64(pcm)})
		if err != nil && time.Since(c.lastWriteErr) > time.Second {
			log.Printf("Realtime: append failed: %v", err)
			c.lastWriteErr = time.Now()
		}
	}

	go func() {
		defer c.wg.Done()
		if proc.Kind() == "worklet" {
			// keep the conversion on one thread, away from the scheduler's shuffling
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
		}
		for block := range blocks {
			proc.Process(audio.Resample(block, rate, StreamRate), send)
		}
		proc.Flush(send)
	}()
}

func (c *Client) readLoop(ctx context.Context, conn Conn) {
	defer c.wg.Done()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Realtime: connection lost: %v", err)
			c.setState(StateError)
			c.emit(Event{Type: EventError, Err: &ProtocolError{Message: "connection lost", Err: err}})
			return
		}

		var ev serverEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			log.Printf("Realtime: ignoring malformed frame: %v", err)
			continue
		}
		c.handle(ev)
	}
}

func (c *Client) handle(ev serverEvent) {
	out, surface, handled := translate(ev)
	if !handled {
		log.Printf("Realtime: unhandled message type: %s", ev.Type)
		return
	}
	switch ev.Type {
	case "session.created":
		if ev.Session != nil {
			log.Printf("Realtime: session created, id=%s", ev.Session.ID)
		}
	case "input_audio_buffer.speech_started":
		log.Printf("Realtime: speech started")
	case "input_audio_buffer.speech_stopped":
		log.Printf("Realtime: speech stopped, item_id=%s", ev.ItemID)
	}
	if !surface {
		return
	}
	if out.Type == EventError {
		log.Printf("Realtime: server error: %v", out.Err)
	}
	c.emit(out)
}

func (c *Client) emit(ev Event) {
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Stop closes the connection and releases the mic subscription. Safe to call
// repeatedly, including before Start.
func (c *Client) Stop() error {
	c.once.Do(func() {
		close(c.done)

		c.mu.Lock()
		conn, unsub, cancel := c.conn, c.unsub, c.cancel
		c.state = StateClosed
		c.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if unsub != nil {
			unsub()
		}
		if conn != nil {
			c.writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.writeMu.Unlock()
			_ = conn.Close()
		}
		c.wg.Wait()

		c.emitMu.Lock()
		close(c.events)
		c.emitMu.Unlock()
	})
	return nil
}
