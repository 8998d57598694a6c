// ABOUTME: Output stage pulled by the audio device
// ABOUTME: Reads frames from the output buffer, applies controller gain and reports track starts
package player

import (
	"encoding/binary"

	"github.com/Resonate-Protocol/squeeze-go/pkg/audio"
	"github.com/Resonate-Protocol/squeeze-go/pkg/slimproto"
)

// Output is the io.Reader handed to the audio device. It never returns an
// error: when paused or starved it plays silence.
type Output struct {
	outputs *slimproto.OutputCell
	rate    uint32
}

// NewOutput creates the output stage for a device running at rate
func NewOutput(outputs *slimproto.OutputCell, rate int) *Output {
	return &Output{outputs: outputs, rate: uint32(rate)}
}

type pulled struct {
	n            int
	gainL, gainR uint32
}

// Read fills p with whole frames
func (o *Output) Read(p []byte) (int, error) {
	size := len(p) - len(p)%audio.FrameBytes

	got := slimproto.View(o.outputs, func(out *slimproto.OutputShared) pulled {
		if out.State != slimproto.OutputRunning {
			return pulled{}
		}
		n := out.Buffer.Read(p[:size])
		frames := uint32(n / audio.FrameBytes)

		if out.NewTrack && n > 0 {
			if n >= out.TrackBoundary {
				out.NewTrack = false
				out.TrackStarted = true
				out.CurrentSampleRate = o.rate
				// frames of the previous track do not count toward the new one
				frames = uint32((n - out.TrackBoundary) / audio.FrameBytes)
				out.FramesPlayed = 0
				out.TrackBoundary = 0
			} else {
				out.TrackBoundary -= n
			}
		}
		out.FramesPlayed += frames
		return pulled{n: n, gainL: out.GainLeft, gainR: out.GainRight}
	})

	applyGain(p[:got.n], got.gainL, got.gainR)
	clear(p[got.n:size])
	return size, nil
}

// applyGain scales interleaved s16le stereo frames in place
func applyGain(frames []byte, gainL, gainR uint32) {
	if gainL == audio.UnityGain && gainR == audio.UnityGain {
		return
	}
	for i := 0; i+audio.FrameBytes <= len(frames); i += audio.FrameBytes {
		l := int16(binary.LittleEndian.Uint16(frames[i:]))
		r := int16(binary.LittleEndian.Uint16(frames[i+2:]))
		binary.LittleEndian.PutUint16(frames[i:], uint16(audio.ApplyGain(l, gainL)))
		binary.LittleEndian.PutUint16(frames[i+2:], uint16(audio.ApplyGain(r, gainR)))
	}
}
