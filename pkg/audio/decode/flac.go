// ABOUTME: FLAC audio decoder
// ABOUTME: Streams FLAC frames through mewkiz/flac to int32 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/squeeze-go/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio one frame per Decode call
type FLACDecoder struct {
	stream *flac.Stream
	format audio.Format
	shift  int
}

// NewFLAC creates a new FLAC decoder. It reads the stream header from r.
func NewFLAC(r io.Reader) (Decoder, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}

	bits := int(stream.Info.BitsPerSample)
	if bits < 4 || bits > 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d", bits)
	}

	return &FLACDecoder{
		stream: stream,
		format: audio.Format{
			Codec:      "flac",
			SampleRate: int(stream.Info.SampleRate),
			Channels:   int(stream.Info.NChannels),
			BitDepth:   bits,
		},
		shift: 24 - bits,
	}, nil
}

// Format returns the stream format
func (d *FLACDecoder) Format() audio.Format {
	return d.format
}

// Decode parses the next frame and interleaves its subframes
func (d *FLACDecoder) Decode() ([]int32, error) {
	frame, err := d.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("flac decode error: %w", err)
	}

	channels := len(frame.Subframes)
	if channels == 0 {
		return nil, nil
	}
	n := len(frame.Subframes[0].Samples)
	samples := make([]int32, n*channels)
	for ch, sub := range frame.Subframes {
		for i, s := range sub.Samples {
			samples[i*channels+ch] = scale(s, d.shift)
		}
	}
	return samples, nil
}

// scale moves a sample of any depth into 24-bit range
func scale(s int32, shift int) int32 {
	if shift >= 0 {
		return s << shift
	}
	return s >> -shift
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return d.stream.Close()
}
