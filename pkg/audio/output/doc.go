// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface with oto and null implementations
// Package output provides audio playback backends.
//
// Backends pull s16le interleaved frames from an io.Reader at the
// device's pace. Oto plays through the system sound device; Null drains
// in real time without one.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(44100, 2, source)
//	defer out.Close()
package output
