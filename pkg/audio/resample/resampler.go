// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries the last frame across calls so chunk boundaries interpolate cleanly
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	lastSample []int32 // last input frame of the previous call
	havePrev   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastSample: make([]int32, channels),
	}
}

// Resample converts interleaved input at inputRate to interleaved output at
// outputRate. The final input frame is held back as the start of the next
// call's interpolation window.
func (r *Resampler) Resample(input []int32) []int32 {
	if r.inputRate == r.outputRate {
		return input
	}

	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return nil
	}

	offset := 0
	if r.havePrev {
		offset = 1
	}
	frames := inputFrames + offset

	frame := func(i int) []int32 {
		if i < offset {
			return r.lastSample
		}
		i -= offset
		return input[i*r.channels : (i+1)*r.channels]
	}

	output := make([]int32, 0, r.OutputSamplesNeeded(len(input))+r.channels)
	for {
		idx := int(r.position)
		if idx >= frames-1 {
			break
		}
		frac := r.position - float64(idx)
		a, b := frame(idx), frame(idx+1)
		for ch := 0; ch < r.channels; ch++ {
			interpolated := float64(a[ch])*(1.0-frac) + float64(b[ch])*frac
			output = append(output, int32(interpolated))
		}
		r.position += r.ratio
	}

	// the last frame becomes index 0 of the next window
	r.position -= float64(frames - 1)
	copy(r.lastSample, frame(frames-1))
	r.havePrev = true

	return output
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.havePrev = false
	for i := range r.lastSample {
		r.lastSample[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples input samples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}
