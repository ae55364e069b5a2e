package audio

import "sync"

// Monitor feeds a stream into an Analyser and runs a SpeakingDetector over it.
type Monitor struct {
	analyser *Analyser
	detector *SpeakingDetector
	cancel   func()
	wg       sync.WaitGroup
	once     sync.Once
}

// NewMonitor subscribes to s and starts detection. onChange receives every
// speaking transition; newTicker may be nil.
func NewMonitor(s *Stream, newTicker func() FrameTicker, onChange func(bool)) *Monitor {
	m := &Monitor{analyser: NewAnalyser()}
	m.detector = NewSpeakingDetector(m.analyser, newTicker, onChange)

	ch, cancel := s.Subscribe(32)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for block := range ch {
			m.analyser.Write(block)
		}
	}()
	m.detector.Start()
	return m
}

func (m *Monitor) Analyser() *Analyser { return m.analyser }

func (m *Monitor) Speaking() bool { return m.detector.Speaking() }

// Close stops detection and unsubscribes. Safe to call repeatedly.
func (m *Monitor) Close() {
	m.once.Do(func() {
		m.detector.Stop()
		m.cancel()
		m.wg.Wait()
	})
}
