package audio

import (
	"math"
	"sync"
)

const (
	// FFTSize is the analysis window in samples.
	FFTSize = 256
	// BinCount is the number of frequency bins produced per analysis.
	BinCount = FFTSize / 2

	minDecibels        = -100.0
	maxDecibels        = -30.0
	smoothingTimeConst = 0.8
)

// Analyser keeps the most recent FFTSize samples of a stream and reports their
// spectrum as bytes on a 0-255 scale, the way a browser AnalyserNode does.
type Analyser struct {
	mu       sync.Mutex
	ring     []float32
	pos      int
	window   []float64
	smoothed []float64
	re, im   []float64
}

func NewAnalyser() *Analyser {
	a := &Analyser{
		ring:     make([]float32, FFTSize),
		window:   make([]float64, FFTSize),
		smoothed: make([]float64, BinCount),
		re:       make([]float64, FFTSize),
		im:       make([]float64, FFTSize),
	}
	// Blackman window
	for i := range a.window {
		x := 2 * math.Pi * float64(i) / float64(FFTSize)
		a.window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return a
}

// Write appends samples to the analysis window.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % FFTSize
	}
}

// ByteFrequencyData fills dst (up to BinCount entries) with the current spectrum.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i < FFTSize; i++ {
		a.re[i] = float64(a.ring[(a.pos+i)%FFTSize]) * a.window[i]
		a.im[i] = 0
	}
	fft(a.re, a.im)

	n := len(dst)
	if n > BinCount {
		n = BinCount
	}
	scale := 255.0 / (maxDecibels - minDecibels)
	for k := 0; k < BinCount; k++ {
		mag := math.Hypot(a.re[k], a.im[k]) / FFTSize
		a.smoothed[k] = smoothingTimeConst*a.smoothed[k] + (1-smoothingTimeConst)*mag
		if k >= n {
			continue
		}
		db := minDecibels
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		v := scale * (db - minDecibels)
		switch {
		case v < 0:
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = byte(v)
		}
	}
}
