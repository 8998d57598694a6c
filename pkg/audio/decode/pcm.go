// ABOUTME: PCM audio decoder
// ABOUTME: Decodes raw 8/16/24/32-bit PCM of either byte order to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/squeeze-go/pkg/audio"
)

// pcmBlockFrames is the number of frames returned per Decode call
const pcmBlockFrames = 1024

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	r      io.Reader
	format audio.Format
	width  int
	order  binary.ByteOrder
	buf    []byte
	held   int
}

// NewPCM creates a new PCM decoder
func NewPCM(r io.Reader, format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	switch format.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", format.BitDepth)
	}
	if format.Channels < 1 || format.Channels > 2 {
		return nil, fmt.Errorf("unsupported channel count: %d", format.Channels)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if format.BigEndian {
		order = binary.BigEndian
	}
	width := format.BitDepth / 8

	return &PCMDecoder{
		r:      r,
		format: format,
		width:  width,
		order:  order,
		buf:    make([]byte, pcmBlockFrames*width*format.Channels),
	}, nil
}

// Format returns the stream format
func (d *PCMDecoder) Format() audio.Format {
	return d.format
}

// Decode reads up to one block and converts whole samples. A trailing
// partial sample is kept for the next call.
func (d *PCMDecoder) Decode() ([]int32, error) {
	n, err := d.r.Read(d.buf[d.held:])
	d.held += n

	whole := d.held - d.held%d.width
	samples := d.convert(d.buf[:whole])

	d.held = copy(d.buf, d.buf[whole:d.held])
	if len(samples) > 0 {
		return samples, nil
	}
	if err == nil {
		return nil, nil
	}
	return nil, err
}

func (d *PCMDecoder) convert(data []byte) []int32 {
	numSamples := len(data) / d.width
	samples := make([]int32, numSamples)
	for i := range samples {
		b := data[i*d.width : (i+1)*d.width]
		switch d.width {
		case 1:
			// little-endian 8-bit is unsigned (WAV), big-endian is signed (AIFF)
			v := int8(b[0])
			if !d.format.BigEndian {
				v = int8(int(b[0]) - 128)
			}
			samples[i] = int32(v) << 16
		case 2:
			samples[i] = audio.SampleFromInt16(int16(d.order.Uint16(b)))
		case 3:
			if d.format.BigEndian {
				samples[i] = audio.SampleFrom24Bit([3]byte{b[2], b[1], b[0]})
			} else {
				samples[i] = audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]})
			}
		case 4:
			samples[i] = int32(d.order.Uint32(b)) >> 8
		}
	}
	return samples
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
