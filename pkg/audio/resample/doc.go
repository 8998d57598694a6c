// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts decoded audio to the output device's sample rate
// Package resample provides streaming sample rate conversion.
//
// Uses linear interpolation and keeps state between calls, so a stream
// can be fed in arbitrary chunks.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out := r.Resample(samples)
package resample
