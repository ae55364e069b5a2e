package audio

import (
	"log"
	"runtime"
)

const (
	// WorkletQuantum is the render quantum of the low-jitter path.
	WorkletQuantum = 128
	// LegacyBufferSize is the block size of the buffered fallback path.
	LegacyBufferSize = 4096
)

// Processor turns captured float samples into PCM16 frames. Implementations
// must produce identical bytes for identical input once flushed.
type Processor interface {
	// Process consumes samples and calls emit for every completed PCM16 frame.
	Process(samples []float32, emit func(pcm []byte))
	// Flush emits whatever is still buffered.
	Flush(emit func(pcm []byte))
	Kind() string
}

// WorkletProcessor converts every render quantum as soon as it is available.
type WorkletProcessor struct{}

func (WorkletProcessor) Kind() string { return "worklet" }

func (WorkletProcessor) Process(samples []float32, emit func(pcm []byte)) {
	for len(samples) > 0 {
		n := min(len(samples), WorkletQuantum)
		emit(FloatToPCM16(samples[:n]))
		samples = samples[n:]
	}
}

func (WorkletProcessor) Flush(func(pcm []byte)) {}

// BufferedProcessor accumulates LegacyBufferSize samples before converting,
// trading latency for fewer, larger frames.
type BufferedProcessor struct {
	size int
	buf  []float32
}

func NewBufferedProcessor(size int) *BufferedProcessor {
	if size <= 0 {
		size = LegacyBufferSize
	}
	return &BufferedProcessor{size: size, buf: make([]float32, 0, size)}
}

func (p *BufferedProcessor) Kind() string { return "buffered" }

func (p *BufferedProcessor) Process(samples []float32, emit func(pcm []byte)) {
	for len(samples) > 0 {
		n := min(p.size-len(p.buf), len(samples))
		p.buf = append(p.buf, samples[:n]...)
		samples = samples[n:]
		if len(p.buf) == p.size {
			emit(FloatToPCM16(p.buf))
			p.buf = p.buf[:0]
		}
	}
}

func (p *BufferedProcessor) Flush(emit func(pcm []byte)) {
	if len(p.buf) == 0 {
		return
	}
	emit(FloatToPCM16(p.buf))
	p.buf = p.buf[:0]
}

// WorkletAvailable reports whether the isolated processing path can run: it
// needs a dedicated OS thread besides the one running the caller.
func WorkletAvailable() bool {
	return runtime.GOMAXPROCS(0) > 1
}

// NewProcessor picks the worklet path when preferred and available, otherwise
// the buffered fallback.
func NewProcessor(preferWorklet, available bool) Processor {
	if preferWorklet && available {
		return WorkletProcessor{}
	}
	if preferWorklet {
		log.Printf("Audio: worklet processing unavailable, using buffered fallback")
	}
	return NewBufferedProcessor(LegacyBufferSize)
}
