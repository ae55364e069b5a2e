package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// SpeakingThreshold is the mean bin magnitude (0-255 scale) above which a
// stream is considered to carry speech.
const SpeakingThreshold = 20

// FrameInterval approximates one display frame.
const FrameInterval = time.Second / 60

// MeanMagnitude returns the average of the frequency bins.
func MeanMagnitude(bins []byte) float64 {
	if len(bins) == 0 {
		return 0
	}
	sum := 0
	for _, b := range bins {
		sum += int(b)
	}
	return float64(sum) / float64(len(bins))
}

// IsSpeaking reports whether the bins' mean magnitude exceeds SpeakingThreshold.
func IsSpeaking(bins []byte) bool {
	return len(bins) > 0 && MeanMagnitude(bins) > SpeakingThreshold
}

// FrameTicker delivers one tick per frame until stopped.
type FrameTicker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewFrameTicker returns a wall-clock ticker firing every FrameInterval.
func NewFrameTicker() FrameTicker {
	return timeTicker{t: time.NewTicker(FrameInterval)}
}

// FrequencySource is anything that can report a byte spectrum.
type FrequencySource interface {
	ByteFrequencyData(dst []byte)
}

// SpeakingDetector samples a FrequencySource once per frame and reports
// changes of the speaking signal. It is a start/stop task: once stopped no
// further frame is sampled.
type SpeakingDetector struct {
	source    FrequencySource
	newTicker func() FrameTicker
	onChange  func(bool)

	active   atomic.Bool
	speaking atomic.Bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSpeakingDetector creates a detector. newTicker may be nil to use
// NewFrameTicker; onChange may be nil.
func NewSpeakingDetector(source FrequencySource, newTicker func() FrameTicker, onChange func(bool)) *SpeakingDetector {
	if newTicker == nil {
		newTicker = NewFrameTicker
	}
	return &SpeakingDetector{source: source, newTicker: newTicker, onChange: onChange}
}

// Start begins per-frame sampling. Starting a running detector is a no-op.
func (d *SpeakingDetector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active.Load() {
		return
	}
	d.active.Store(true)
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.loop(d.newTicker(), d.stop, d.done)
}

// Stop ends sampling and waits for the loop to exit. Safe to call repeatedly.
func (d *SpeakingDetector) Stop() {
	d.mu.Lock()
	if !d.active.Load() {
		d.mu.Unlock()
		return
	}
	d.active.Store(false)
	close(d.stop)
	done := d.done
	d.mu.Unlock()
	<-done
}

// Active reports whether the detector is still sampling.
func (d *SpeakingDetector) Active() bool { return d.active.Load() }

// Speaking returns the last evaluated signal.
func (d *SpeakingDetector) Speaking() bool { return d.speaking.Load() }

func (d *SpeakingDetector) loop(ticker FrameTicker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	bins := make([]byte, BinCount)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if !d.active.Load() {
				return
			}
			d.source.ByteFrequencyData(bins)
			now := IsSpeaking(bins)
			if d.speaking.Swap(now) != now && d.onChange != nil {
				d.onChange(now)
			}
		}
	}
}
