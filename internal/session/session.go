package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/mockroom/internal/audio"
	"github.com/leonardotrapani/mockroom/internal/grading"
	"github.com/leonardotrapani/mockroom/internal/negotiator"
	"github.com/leonardotrapani/mockroom/internal/realtime"
)

// Negotiator is the voice call. *negotiator.Negotiator satisfies it.
type Negotiator interface {
	RequestCredential(ctx context.Context) (string, error)
	Open(ctx context.Context, credential string, mic *audio.Stream) error
	Events() <-chan negotiator.Event
	SendWrapUp() error
	Close() error
}

// Transcriber is the caption channel. *realtime.Client satisfies it.
type Transcriber interface {
	Start(ctx context.Context, mic *audio.Stream) error
	Events() <-chan realtime.Event
	Stop() error
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// Deps are the collaborators a session drives. Negotiator and transcriber
// are built per session.
type Deps struct {
	Media          audio.MediaSource
	NewNegotiator  func() Negotiator
	NewTranscriber func() Transcriber
	Grader         grading.Grader
	NewPlayer      func() audio.Player
	NewTicker      func(time.Duration) Ticker
	NewFrameTicker func() audio.FrameTicker
}

type Options struct {
	Devices     DeviceSelection
	Constraints audio.Constraints
	Volume      float64
	// MonitorLocal runs speaking detection on the candidate's microphone.
	MonitorLocal bool
	// OnEnd is called exactly once, after every resource has been released.
	OnEnd func(Snapshot)
}

type Action string

const (
	ActionEnd      Action = "end"
	ActionInteract Action = "interact"
)

type (
	setupResult struct{ err error }

	previewResult struct {
		preview audio.Preview
		err     error
	}

	transcriberResult struct{ err error }

	callEvent       struct{ ev negotiator.Event }
	transcriptEvent struct{ ev realtime.Event }

	gradeResult struct {
		seq int
		fb  grading.Feedback
		err error
	}
)

// Session runs one interview. A single goroutine owns the state record and
// every component handle; everything else posts to it.
type Session struct {
	cfg  Config
	deps Deps
	opts Options

	inbox   chan any
	kick    chan struct{}
	stopped chan struct{}
	done    chan struct{}
	started atomic.Bool
	wg      sync.WaitGroup

	mu        sync.RWMutex
	snap      Snapshot
	observers map[int]chan Snapshot
	nextObs   int
	obsClosed bool

	// owned by the loop goroutine
	st        *state
	ctx       context.Context
	cancel    context.CancelFunc
	neg       Negotiator
	trans     Transcriber
	mic       *sharedMic
	renderer  *audio.Renderer
	local     *audio.Monitor
	preview   audio.Preview
	ticker    Ticker
	aiHint    bool
	gradeSeq  int
	gradeLast int
	ended     bool
}

func New(cfg Config, deps Deps, opts Options) *Session {
	if deps.NewTicker == nil {
		deps.NewTicker = newTimeTicker
	}
	if opts.Constraints.SampleRate == 0 {
		opts.Constraints = audio.DefaultConstraints()
	}
	if opts.Devices.Microphone != "" {
		opts.Constraints.Device = opts.Devices.Microphone
	}
	st := newState(cfg)
	return &Session{
		cfg:       cfg,
		deps:      deps,
		opts:      opts,
		inbox:     make(chan any),
		kick:      make(chan struct{}, 1),
		stopped:   make(chan struct{}),
		done:      make(chan struct{}),
		observers: make(map[int]chan Snapshot),
		st:        st,
		snap:      st.copy(),
	}
}

// Start launches the session loop. The loop ends on End, on a terminal
// connection state, on a fatal error, or when ctx is cancelled.
func (s *Session) Start(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if s.deps.NewNegotiator == nil || s.deps.Media == nil {
		return errors.New("session: negotiator and media source are required")
	}
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("session %q already started", s.cfg.ID)
	}
	go s.run(ctx)
	return nil
}

// End requests teardown. Calling it again, or after the session ended, is a
// no-op.
func (s *Session) End() { s.act(ActionEnd) }

// Interact reports a user gesture, which retries blocked playback.
func (s *Session) Interact() { s.act(ActionInteract) }

func (s *Session) act(a Action) {
	if !s.started.Load() {
		return
	}
	s.post(a)
}

// Done is closed once the loop has exited and all helpers have returned.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe delivers the latest snapshot after every transition. Slow
// readers only see the newest one. The channel is closed when the session
// ends.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Snapshot, 1)
	ch <- s.snap
	if s.obsClosed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextObs
	s.nextObs++
	s.observers[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.observers[id]; ok {
			delete(s.observers, id)
			close(c)
		}
	}
}

func (s *Session) post(m any) bool {
	select {
	case s.inbox <- m:
		return true
	case <-s.stopped:
		return false
	}
}

func (s *Session) nudge() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Session) spawn(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

func (s *Session) publish() {
	snap := s.st.copy()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	for _, ch := range s.observers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) closeObservers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obsClosed = true
	for id, ch := range s.observers {
		delete(s.observers, id)
		close(ch)
	}
}

func (s *Session) run(parent context.Context) {
	defer close(s.done)

	s.ctx, s.cancel = context.WithCancel(parent)
	defer s.cancel()

	log.Printf("Session: starting %q (%ds)", s.cfg.ID, s.cfg.DurationSec)
	s.startPreview()
	s.startCall()

	for !s.ended {
		var tickC <-chan time.Time
		if s.ticker != nil {
			tickC = s.ticker.C()
		}

		select {
		case <-parent.Done():
			s.teardown("context cancelled")
		case m := <-s.inbox:
			s.handle(m)
		case <-tickC:
			s.onTick()
		case <-s.kick:
			s.refreshMedia()
		}
	}

	s.wg.Wait()
	s.closeObservers()
	log.Printf("Session: %q finished", s.cfg.ID)
}

func (s *Session) startPreview() {
	ctx, media, camera := s.ctx, s.deps.Media, s.opts.Devices.Camera
	s.spawn(func() {
		p, err := media.StartPreview(ctx, camera)
		if !s.post(previewResult{preview: p, err: err}) && p != nil {
			_ = p.Stop()
		}
	})
}

func (s *Session) startCall() {
	neg := s.deps.NewNegotiator()
	s.neg = neg
	s.mic = &sharedMic{source: s.deps.Media, constraints: s.opts.Constraints}
	s.st.setConnection(Connecting)
	s.publish()

	s.spawn(func() {
		for ev := range neg.Events() {
			s.post(callEvent{ev})
		}
	})

	ctx, mic := s.ctx, s.mic
	s.spawn(func() {
		s.post(setupResult{err: setup(ctx, neg, mic)})
	})
}

// setup acquires the call in order: credential, microphone, negotiation.
func setup(ctx context.Context, neg Negotiator, mic *sharedMic) error {
	credential, err := neg.RequestCredential(ctx)
	if err != nil {
		return err
	}
	stream, err := mic.Open(ctx)
	if err != nil {
		return err
	}
	return neg.Open(ctx, credential, stream)
}

func (s *Session) handle(m any) {
	switch m := m.(type) {
	case Action:
		s.onAction(m)
	case setupResult:
		s.onSetup(m.err)
	case previewResult:
		if m.err != nil {
			log.Printf("Session: camera preview unavailable: %v", m.err)
			s.st.disableDevices(m.err)
		} else {
			s.preview = m.preview
		}
		s.publish()
	case callEvent:
		s.onCallEvent(m.ev)
	case transcriberResult:
		s.onTranscriberStarted(m.err)
	case transcriptEvent:
		s.onTranscript(m.ev)
	case gradeResult:
		s.onGrade(m)
	default:
		log.Printf("Session: unhandled message %T", m)
	}
}

func (s *Session) onAction(a Action) {
	switch a {
	case ActionEnd:
		log.Printf("Session: end call requested")
		s.teardown("end call")
	case ActionInteract:
		if s.renderer == nil {
			return
		}
		if st := s.renderer.Interact(s.ctx); st == audio.StatusPlaying {
			log.Printf("Session: playback resumed after interaction")
		}
		s.refreshMedia()
	}
}

func (s *Session) onSetup(err error) {
	if err == nil {
		log.Printf("Session: call negotiated")
		if s.opts.MonitorLocal && s.local == nil {
			if mic := s.mic.Stream(); mic != nil {
				s.local = audio.NewMonitor(mic, s.deps.NewFrameTicker, func(bool) { s.nudge() })
			}
		}
		return
	}
	if errors.Is(err, negotiator.ErrClosed) || errors.Is(err, errMicReleased) || errors.Is(err, context.Canceled) {
		return
	}

	var (
		cerr *negotiator.CredentialError
		nerr *negotiator.NegotiationError
		merr *audio.MediaError
	)
	switch {
	case errors.As(err, &cerr):
		log.Printf("Session: credential request failed: %v", err)
	case errors.As(err, &nerr):
		log.Printf("Session: negotiation failed: %v", err)
	case errors.As(err, &merr):
		log.Printf("Session: microphone unavailable: %v", err)
	default:
		log.Printf("Session: setup failed: %v", err)
	}
	s.st.fail(err)
	s.publish()
	s.teardown("setup failed")
}

func (s *Session) onCallEvent(ev negotiator.Event) {
	switch ev := ev.(type) {
	case negotiator.StateChanged:
		switch ev.State {
		case negotiator.StateConnected:
			s.st.setConnection(Connected)
			s.onConnected()
			s.publish()
		case negotiator.StateConnecting:
			if s.st.setConnection(Connecting) {
				s.publish()
			}
		case negotiator.StateError:
			s.st.fail(fmt.Errorf("connection failed (ICE %s)", ev.ICE))
			s.publish()
			s.teardown("connection error")
		default:
			log.Printf("Session: connection ended (ICE %s)", ev.ICE)
			s.st.setConnection(Closed)
			s.publish()
			s.teardown("connection closed")
		}
	case negotiator.RemoteAudio:
		if s.renderer != nil {
			_ = s.renderer.Close()
		}
		var player audio.Player = nopPlayer{}
		if s.deps.NewPlayer != nil {
			player = s.deps.NewPlayer()
		}
		playback := audio.NewPlayback(player, s.opts.Volume, func(audio.Status) { s.nudge() })
		s.renderer = audio.NewRenderer(s.ctx, ev.Stream, playback, s.deps.NewFrameTicker, func(bool) { s.nudge() })
		s.refreshMedia()
	case negotiator.AISpeaking:
		s.aiHint = ev.Value
		s.refreshMedia()
	}
}

// onConnected starts the clock and, only now, the transcription channel.
func (s *Session) onConnected() {
	if s.ticker == nil {
		s.ticker = s.deps.NewTicker(time.Second)
	}
	if s.trans == nil && s.deps.NewTranscriber != nil {
		t := s.deps.NewTranscriber()
		s.trans = t
		s.spawn(func() {
			for ev := range t.Events() {
				s.post(transcriptEvent{ev})
			}
		})
		ctx, mic := s.ctx, s.mic.Stream()
		s.spawn(func() {
			s.post(transcriberResult{err: t.Start(ctx, mic)})
		})
	}
	s.checkClosing()
}

func (s *Session) onTick() {
	if !s.st.tick() {
		return
	}
	s.checkClosing()
	s.publish()
}

func (s *Session) checkClosing() {
	if !s.st.closingDue() {
		return
	}
	log.Printf("Session: %ds elapsed, sending wrap-up", s.st.snap.Timer)
	if err := s.neg.SendWrapUp(); err != nil {
		// retried on the next tick
		log.Printf("Session: failed to send wrap-up: %v", err)
		return
	}
	s.st.markClosing()
}

func (s *Session) onTranscriberStarted(err error) {
	if err == nil {
		log.Printf("Session: transcription streaming")
		return
	}
	var cfgErr *realtime.ConfigurationError
	if errors.As(err, &cfgErr) {
		log.Printf("Session: transcription misconfigured: %v", err)
		s.st.fail(err)
		s.publish()
		s.teardown("configuration error")
		return
	}
	log.Printf("Session: transcription unavailable: %v", err)
	s.st.note(err)
	s.publish()
}

func (s *Session) onTranscript(ev realtime.Event) {
	switch ev.Type {
	case realtime.EventPartial:
		s.st.partial(ev.Text)
	case realtime.EventFinal:
		s.st.final(ev.Text)
		s.grade(ev.Text)
	case realtime.EventError:
		log.Printf("Session: transcription error: %v", ev.Err)
		if ev.Err != nil {
			s.st.note(ev.Err)
		}
	}
	s.publish()
}

func (s *Session) grade(answer string) {
	if s.deps.Grader == nil || answer == "" {
		return
	}
	s.gradeSeq++
	seq, ctx, grader := s.gradeSeq, s.ctx, s.deps.Grader
	s.spawn(func() {
		fb, err := grader.Grade(ctx, answer)
		s.post(gradeResult{seq: seq, fb: fb, err: err})
	})
}

func (s *Session) onGrade(r gradeResult) {
	if r.err != nil {
		log.Printf("Session: grading failed: %v", r.err)
		return
	}
	if r.seq < s.gradeLast {
		return
	}
	s.gradeLast = r.seq
	s.st.feedback(r.fb)
	s.publish()
}

func (s *Session) refreshMedia() {
	if s.ended {
		return
	}
	remote := false
	if s.renderer != nil {
		s.st.snap.AudioStatus = s.renderer.Status()
		remote = s.renderer.Speaking()
	}
	s.st.snap.AISpeaking = remote || s.aiHint
	if s.local != nil {
		s.st.snap.LocalSpeaking = s.local.Speaking()
	}
	s.publish()
}

// teardown releases whatever was acquired, in dependency order. Only the
// first call does anything.
func (s *Session) teardown(reason string) {
	if s.ended {
		return
	}
	s.ended = true
	close(s.stopped)
	log.Printf("Session: tearing down (%s)", reason)

	s.cancel()
	if s.trans != nil {
		if err := s.trans.Stop(); err != nil {
			log.Printf("Session: error stopping transcription: %v", err)
		}
	}
	if s.neg != nil {
		if err := s.neg.Close(); err != nil {
			log.Printf("Session: error closing call: %v", err)
		}
	}
	if s.renderer != nil {
		_ = s.renderer.Close()
	}
	if s.local != nil {
		s.local.Close()
	}
	if s.preview != nil {
		if err := s.preview.Stop(); err != nil {
			log.Printf("Session: error stopping preview: %v", err)
		}
	}
	if s.mic != nil {
		if err := s.mic.Release(); err != nil {
			log.Printf("Session: error releasing microphone: %v", err)
		}
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}

	s.st.end()
	s.publish()
	if s.opts.OnEnd != nil {
		s.opts.OnEnd(s.st.copy())
	}
}

type nopPlayer struct{}

func (nopPlayer) Play(context.Context, *audio.Stream) error { return nil }
func (nopPlayer) SetMuted(bool)                             {}
func (nopPlayer) SetVolume(float64)                         {}
func (nopPlayer) Close() error                              { return nil }
