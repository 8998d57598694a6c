// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, the shared RingBuffer and sample conversion functions
// Package audio provides the audio types shared by the player pipeline.
//
// The stream buffer holds encoded bytes fetched from the media server and the
// output buffer holds interleaved s16le stereo frames ready for the device.
// Both are RingBuffer values; neither locks, the owning state cell does.
//
// Example:
//
//	rb := audio.NewRingBuffer(2 * 1024 * 1024)
//	n := rb.Write(chunk)
//	sample := audio.ApplyGain(audio.SampleToInt16(s), gain)
package audio
