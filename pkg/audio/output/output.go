// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for playback backends that pull frames from a source
package output

import "io"

// Output represents an audio output device. The device pulls interleaved
// signed 16-bit little-endian frames from the source given to Open at its
// own pace.
type Output interface {
	// Open starts playback from src
	Open(sampleRate, channels int, src io.Reader) error

	// Close stops playback and releases output resources
	Close() error
}
