package audio

// G.711 mu-law companding, used for the PCMU voice channel.

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// EncodeMulaw compresses one 16-bit sample to an 8-bit mu-law code.
func EncodeMulaw(sample int16) byte {
	v := int(sample)
	sign := 0
	if v < 0 {
		v = -v
		sign = 0x80
	}
	if v > mulawClip {
		v = mulawClip
	}
	v += mulawBias

	exponent := 7
	for mask := 0x4000; v&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := (v >> (exponent + 3)) & 0x0F
	return ^byte(sign | exponent<<4 | mantissa)
}

// DecodeMulaw expands an 8-bit mu-law code to a 16-bit sample.
func DecodeMulaw(code byte) int16 {
	code = ^code
	sign := code & 0x80
	exponent := (code >> 4) & 0x07
	mantissa := code & 0x0F

	v := ((int(mantissa) << 3) + mulawBias) << exponent
	v -= mulawBias
	if sign != 0 {
		return int16(-v)
	}
	return int16(v)
}

// EncodePCMU converts float samples straight to a PCMU payload.
func EncodePCMU(samples []float32) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = EncodeMulaw(SampleToInt16(s))
	}
	return out
}

// DecodePCMU converts a PCMU payload to float samples.
func DecodePCMU(payload []byte) []float32 {
	out := make([]float32, len(payload))
	for i, b := range payload {
		out[i] = Int16ToSample(DecodeMulaw(b))
	}
	return out
}
