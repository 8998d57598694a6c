// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for streaming decoders reading from an io.Reader
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/squeeze-go/pkg/audio"
)

// Decoder decodes an encoded stream to PCM int32 samples
type Decoder interface {
	// Decode returns the next block of interleaved samples, left-justified
	// in 24-bit range. It returns io.EOF once the stream is exhausted.
	Decode() ([]int32, error)

	// Format describes the decoded samples
	Format() audio.Format

	// Close releases decoder resources
	Close() error
}

// New opens a decoder for format.Codec reading from r. Container-based
// codecs read their headers here, so New may block on r.
func New(r io.Reader, format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(r, format)
	case "mp3":
		return NewMP3(r)
	case "flac":
		return NewFLAC(r)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
