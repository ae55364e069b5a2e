package audio

import (
	"encoding/base64"
	"encoding/binary"
)

// SampleToInt16 converts a float sample in [-1, 1] to a signed 16-bit sample.
// Out-of-range input is clamped; negative samples scale by 32768 and
// non-negative ones by 32767 so both ends of the range are reachable.
func SampleToInt16(s float32) int16 {
	if s != s { // NaN
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// Int16ToSample is the inverse scaling of SampleToInt16.
func Int16ToSample(v int16) float32 {
	if v < 0 {
		return float32(v) / 32768
	}
	return float32(v) / 32767
}

// FloatToPCM16 converts float samples to a contiguous little-endian PCM16 buffer.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(SampleToInt16(s)))
	}
	return out
}

// PCM16ToInt16 decodes a little-endian PCM16 buffer. A trailing odd byte is ignored.
func PCM16ToInt16(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// EncodeBase64 encodes a PCM16 buffer for transport inside a text frame.
func EncodeBase64(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeBase64 reverses EncodeBase64.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
