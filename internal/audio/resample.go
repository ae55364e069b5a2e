package audio

// Resample converts mono float samples between sample rates using linear
// interpolation. Equal rates return the input unchanged.
func Resample(input []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(input) == 0 {
		return input
	}

	n := len(input) * toRate / fromRate
	if n == 0 {
		return nil
	}
	output := make([]float32, n)
	step := float64(fromRate) / float64(toRate)

	for i := 0; i < n; i++ {
		srcPos := float64(i) * step
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		s1 := input[srcIdx]
		s2 := s1
		if srcIdx+1 < len(input) {
			s2 = input[srcIdx+1]
		}
		output[i] = s1*(1-frac) + s2*frac
	}
	return output
}
