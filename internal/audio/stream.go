package audio

import (
	"log"
	"sync"
	"time"
)

// Stream fans captured or received sample blocks out to any number of
// subscribers. Subscribers share the published slices and must not mutate them.
type Stream struct {
	id         string
	sampleRate int

	mu     sync.Mutex
	subs   map[int]chan []float32
	nextID int
	closed bool
	done   chan struct{}

	dropped     int
	lastDropLog time.Time
}

func NewStream(id string, sampleRate int) *Stream {
	return &Stream{
		id:         id,
		sampleRate: sampleRate,
		subs:       make(map[int]chan []float32),
		done:       make(chan struct{}),
	}
}

func (s *Stream) ID() string      { return s.id }
func (s *Stream) SampleRate() int { return s.sampleRate }

// Done is closed once the stream has ended.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Subscribe registers a consumer. The returned cancel func is idempotent; the
// channel is closed on cancel or when the stream ends.
func (s *Stream) Subscribe(buffer int) (<-chan []float32, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan []float32, buffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers samples to every subscriber without blocking; slow
// subscribers lose blocks rather than stalling the producer.
func (s *Stream) Publish(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case ch <- samples:
		default:
			s.dropped++
		}
	}
	if s.dropped > 0 && time.Since(s.lastDropLog) > time.Second {
		log.Printf("Stream %s: dropped %d blocks due to backpressure", s.id, s.dropped)
		s.lastDropLog = time.Now()
		s.dropped = 0
	}
}

// Close ends the stream and closes every subscriber channel. Safe to call twice.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	close(s.done)
}
