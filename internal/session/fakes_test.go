package session

import (
	"context"
	"sync"
	"time"

	"github.com/leonardotrapani/mockroom/internal/audio"
	"github.com/leonardotrapani/mockroom/internal/grading"
	"github.com/leonardotrapani/mockroom/internal/negotiator"
	"github.com/leonardotrapani/mockroom/internal/realtime"
)

// journal records teardown order across fakes.
type journal struct {
	mu    sync.Mutex
	steps []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.steps = append(j.steps, s)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.steps...)
}

type fakeNegotiator struct {
	journal *journal
	credErr error
	openErr error
	// wrapUpErrs are returned by successive SendWrapUp calls.
	wrapUpErrs []error

	mu      sync.Mutex
	events  chan negotiator.Event
	closed  bool
	opened  bool
	mic     *audio.Stream
	wrapUps int
	closes  int
}

func newFakeNegotiator(j *journal) *fakeNegotiator {
	return &fakeNegotiator{journal: j, events: make(chan negotiator.Event, 16)}
}

func (f *fakeNegotiator) RequestCredential(ctx context.Context) (string, error) {
	if f.credErr != nil {
		return "", f.credErr
	}
	return "ek_test", nil
}

func (f *fakeNegotiator) Open(ctx context.Context, credential string, mic *audio.Stream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = true
	f.mic = mic
	return f.openErr
}

func (f *fakeNegotiator) Events() <-chan negotiator.Event { return f.events }

func (f *fakeNegotiator) SendWrapUp() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wrapUps++
	if len(f.wrapUpErrs) > 0 {
		err := f.wrapUpErrs[0]
		f.wrapUpErrs = f.wrapUpErrs[1:]
		return err
	}
	return nil
}

func (f *fakeNegotiator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if !f.closed {
		f.closed = true
		close(f.events)
		f.journal.add("negotiator")
	}
	return nil
}

// emit is dropped once the negotiator is closed, like a late ICE callback.
func (f *fakeNegotiator) emit(ev negotiator.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.events <- ev
	}
}

func (f *fakeNegotiator) connect() {
	f.emit(negotiator.StateChanged{State: negotiator.StateConnected, ICE: "connected"})
}

func (f *fakeNegotiator) counts() (opened bool, wrapUps, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.wrapUps, f.closes
}

type fakeTranscriber struct {
	journal  *journal
	startErr error

	mu      sync.Mutex
	events  chan realtime.Event
	started bool
	closed  bool
	stops   int
}

func (f *fakeTranscriber) Start(ctx context.Context, mic *audio.Stream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return f.startErr
}

func (f *fakeTranscriber) Events() <-chan realtime.Event { return f.events }

func (f *fakeTranscriber) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if !f.closed {
		f.closed = true
		close(f.events)
		f.journal.add("transcription")
	}
	return nil
}

func (f *fakeTranscriber) emit(ev realtime.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.events <- ev
	}
}

func (f *fakeTranscriber) isStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

type fakeTrack struct {
	journal *journal
	stream  *audio.Stream
	stops   int
	mu      sync.Mutex
}

func (t *fakeTrack) Stream() *audio.Stream { return t.stream }

func (t *fakeTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	t.stream.Close()
	t.journal.add("microphone")
	return nil
}

type fakePreview struct {
	journal *journal
}

func (p *fakePreview) Stop() error {
	p.journal.add("preview")
	return nil
}

type fakeMedia struct {
	journal    *journal
	micErr     error
	previewErr error

	mu    sync.Mutex
	opens int
	track *fakeTrack
}

func (m *fakeMedia) OpenMicrophone(ctx context.Context, c audio.Constraints) (audio.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	if m.micErr != nil {
		return nil, m.micErr
	}
	m.track = &fakeTrack{journal: m.journal, stream: audio.NewStream("mic", c.SampleRate)}
	return m.track, nil
}

func (m *fakeMedia) StartPreview(ctx context.Context, camera string) (audio.Preview, error) {
	if m.previewErr != nil {
		return nil, m.previewErr
	}
	return &fakePreview{journal: m.journal}, nil
}

func (m *fakeMedia) micOpens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

type manualTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func newManualTicker() *manualTicker { return &manualTicker{c: make(chan time.Time)} }

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

type fakeGrader struct {
	mu      sync.Mutex
	fb      grading.Feedback
	err     error
	answers []string
}

func (g *fakeGrader) Grade(ctx context.Context, answer string) (grading.Feedback, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, answer)
	return g.fb, g.err
}

type fakePlayer struct {
	mu      sync.Mutex
	results []error
	muted   bool
}

func (p *fakePlayer) Play(ctx context.Context, s *audio.Stream) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.results) == 0 {
		return nil
	}
	err := p.results[0]
	p.results = p.results[1:]
	return err
}

func (p *fakePlayer) SetMuted(m bool)   { p.mu.Lock(); p.muted = m; p.mu.Unlock() }
func (p *fakePlayer) SetVolume(float64) {}
func (p *fakePlayer) Close() error      { return nil }
