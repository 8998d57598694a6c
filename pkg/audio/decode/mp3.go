// ABOUTME: MP3 audio decoder
// ABOUTME: Streams MP3 through go-mp3 to int32 samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/squeeze-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio. go-mp3 always produces s16le stereo.
type MP3Decoder struct {
	decoder *mp3.Decoder
	buf     []byte
	held    int
}

// NewMP3 creates a new MP3 decoder. It reads the first frame header from r.
func NewMP3(r io.Reader) (Decoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}
	return &MP3Decoder{
		decoder: decoder,
		buf:     make([]byte, 8192),
	}, nil
}

// Format returns the stream format
func (d *MP3Decoder) Format() audio.Format {
	return audio.Format{
		Codec:      "mp3",
		SampleRate: d.decoder.SampleRate(),
		Channels:   2,
		BitDepth:   16,
	}
}

// Decode returns the next block of samples
func (d *MP3Decoder) Decode() ([]int32, error) {
	n, err := d.decoder.Read(d.buf[d.held:])
	d.held += n
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	// Convert bytes to int16 then to int32
	numSamples := d.held / 2
	samples := make([]int32, numSamples)
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(d.buf[i*2:]))
		samples[i] = audio.SampleFromInt16(sample16)
	}
	d.held = copy(d.buf, d.buf[numSamples*2:d.held])

	if numSamples == 0 && err != nil {
		return nil, io.EOF
	}
	return samples, nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
