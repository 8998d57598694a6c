// ABOUTME: Maps strm codec bytes to a decoder format
// ABOUTME: Covers the format letter and the PCM size, rate, channel and byte order codes
package player

import (
	"fmt"

	"github.com/Resonate-Protocol/squeeze-go/pkg/audio"
)

// Formats lists the codec names advertised in the handshake
var Formats = []string{"mp3", "flc", "pcm"}

// pcmRates indexes sample rates by strm code '0'..'9'
var pcmRates = [...]int{11025, 22050, 32000, 44100, 48000, 8000, 12000, 16000, 24000, 96000}

// selfDescribing marks a field the stream header supplies
const selfDescribing = '?'

// FormatFromStrm decodes the strm format fields
func FormatFromStrm(format, sampleSize, sampleRate, channels, endianness byte) (audio.Format, error) {
	switch format {
	case 'm':
		return audio.Format{Codec: "mp3"}, nil
	case 'f':
		return audio.Format{Codec: "flac"}, nil
	case 'p':
		return pcmFormat(sampleSize, sampleRate, channels, endianness)
	default:
		return audio.Format{}, fmt.Errorf("unsupported format %q", format)
	}
}

func pcmFormat(sampleSize, sampleRate, channels, endianness byte) (audio.Format, error) {
	f := audio.Format{Codec: "pcm", BitDepth: 16, SampleRate: 44100, Channels: 2}

	switch {
	case sampleSize == selfDescribing:
	case sampleSize >= '0' && sampleSize <= '3':
		f.BitDepth = int(sampleSize-'0'+1) * 8
	default:
		return audio.Format{}, fmt.Errorf("unsupported pcm sample size %q", sampleSize)
	}

	switch {
	case sampleRate == selfDescribing:
	case sampleRate >= '0' && int(sampleRate-'0') < len(pcmRates):
		f.SampleRate = pcmRates[sampleRate-'0']
	default:
		return audio.Format{}, fmt.Errorf("unsupported pcm sample rate %q", sampleRate)
	}

	switch channels {
	case selfDescribing, '2':
	case '1':
		f.Channels = 1
	default:
		return audio.Format{}, fmt.Errorf("unsupported pcm channels %q", channels)
	}

	switch endianness {
	case '0':
		f.BigEndian = true
	case '1', selfDescribing:
	default:
		return audio.Format{}, fmt.Errorf("unsupported pcm endianness %q", endianness)
	}

	return f, nil
}
