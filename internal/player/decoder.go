// ABOUTME: Decode loop between the stream buffer and the output buffer
// ABOUTME: Opens the codec named by strm, converts to s16le stereo at the device rate
package player

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Resonate-Protocol/squeeze-go/pkg/audio"
	"github.com/Resonate-Protocol/squeeze-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/squeeze-go/pkg/audio/resample"
	"github.com/Resonate-Protocol/squeeze-go/pkg/slimproto"
	"github.com/rs/zerolog"
)

// Decoder runs codecs while decode is running and writes their output
// into the output buffer
type Decoder struct {
	streams    *slimproto.StreamCell
	outputs    *slimproto.OutputCell
	outputRate int
	log        zerolog.Logger

	mu      sync.Mutex
	pending *audio.Format
	// openFailed marks a strm whose codec could not be selected
	openFailed bool
	flushed    bool
}

// NewDecoder creates a decode loop producing frames at outputRate
func NewDecoder(streams *slimproto.StreamCell, outputs *slimproto.OutputCell, outputRate int, logger zerolog.Logger) *Decoder {
	return &Decoder{
		streams:    streams,
		outputs:    outputs,
		outputRate: outputRate,
		log:        logger.With().Str("component", "decode").Logger(),
	}
}

// Open selects the codec for the next stream
func (d *Decoder) Open(format, sampleSize, sampleRate, channels, endianness byte) {
	f, err := FormatFromStrm(format, sampleSize, sampleRate, channels, endianness)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.log.Error().Err(err).Msg("codec not available")
		d.pending = nil
		d.openFailed = true
		return
	}
	d.log.Info().Str("codec", f.Codec).Msg("codec selected")
	d.pending = &f
	d.openFailed = false
}

// Flush abandons the current track without reporting it complete
func (d *Decoder) Flush() {
	d.mu.Lock()
	d.flushed = true
	d.pending = nil
	d.openFailed = false
	d.mu.Unlock()
}

func (d *Decoder) isFlushed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushed
}

func (d *Decoder) takeFlushed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.flushed
	d.flushed = false
	return f
}

// takePending returns the selected format, or reports a failed selection once
func (d *Decoder) takePending() (f *audio.Format, failed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, failed = d.pending, d.openFailed
	d.pending = nil
	d.openFailed = false
	return f, failed
}

// track is the codec state of the stream being decoded
type track struct {
	dec       decode.Decoder
	channels  int
	resampler *resample.Resampler
	started   bool
}

// Run decodes until ctx is cancelled
func (d *Decoder) Run(ctx context.Context) {
	src := &streamReader{ctx: ctx, streams: d.streams, abort: d.isFlushed}
	var cur *track

	closeTrack := func() {
		if cur != nil {
			cur.dec.Close()
			cur = nil
		}
	}
	defer closeTrack()

	for ctx.Err() == nil {
		if d.takeFlushed() {
			closeTrack()
		}

		running := slimproto.View(d.outputs, func(o *slimproto.OutputShared) bool {
			return o.Decode == slimproto.DecodeRunning
		})
		if !running {
			sleep(ctx, pollInterval)
			continue
		}

		if cur == nil {
			f, failed := d.takePending()
			if failed {
				d.complete()
				continue
			}
			if f == nil {
				sleep(ctx, pollInterval)
				continue
			}
			t, err := d.open(src, *f)
			if err != nil {
				if !d.isFlushed() {
					d.log.Error().Err(err).Msg("failed to open codec")
					d.complete()
				}
				continue
			}
			cur = t
		}

		samples, err := cur.dec.Decode()
		if len(samples) > 0 {
			d.write(ctx, cur, samples)
		}
		if err == nil || d.isFlushed() {
			continue
		}
		if !errors.Is(err, io.EOF) {
			d.log.Warn().Err(err).Msg("decode error")
		}
		closeTrack()
		d.complete()
	}
}

func (d *Decoder) open(src io.Reader, f audio.Format) (*track, error) {
	dec, err := decode.New(src, f)
	if err != nil {
		return nil, err
	}
	format := dec.Format()
	d.log.Info().
		Str("codec", format.Codec).
		Int("rate", format.SampleRate).
		Int("channels", format.Channels).
		Int("bits", format.BitDepth).
		Msg("decoding")

	t := &track{dec: dec, channels: format.Channels}
	if format.SampleRate != d.outputRate {
		t.resampler = resample.New(format.SampleRate, d.outputRate, audio.OutputChannels)
	}
	return t, nil
}

// complete reports the end of the track unless decode was stopped meanwhile
func (d *Decoder) complete() {
	d.outputs.Update(func(o *slimproto.OutputShared) {
		if o.Decode == slimproto.DecodeRunning {
			o.Decode = slimproto.DecodeComplete
		}
	})
	d.log.Info().Msg("decode complete")
}

// write converts samples and blocks until they fit in the output buffer
func (d *Decoder) write(ctx context.Context, t *track, samples []int32) {
	stereo := toStereo(samples, t.channels)
	if t.resampler != nil {
		stereo = t.resampler.Resample(stereo)
	}
	data := toBytes(stereo)

	for len(data) > 0 {
		var n int
		d.outputs.Update(func(o *slimproto.OutputShared) {
			// the buffer may have been flushed while this write was parked
			if d.isFlushed() {
				return
			}
			if !t.started {
				o.NewTrack = true
				o.TrackBoundary = o.Buffer.Used()
				t.started = true
			}
			// whole frames only
			n = min(len(data), o.Buffer.Free()-o.Buffer.Free()%audio.FrameBytes)
			o.Buffer.Write(data[:n])
		})
		data = data[n:]
		if len(data) == 0 || ctx.Err() != nil || d.isFlushed() {
			return
		}
		sleep(ctx, pollInterval)
	}
}

// toStereo folds any channel layout to interleaved stereo
func toStereo(samples []int32, channels int) []int32 {
	switch channels {
	case 2:
		return samples
	case 1:
		out := make([]int32, len(samples)*2)
		for i, s := range samples {
			out[i*2] = s
			out[i*2+1] = s
		}
		return out
	default:
		frames := len(samples) / channels
		out := make([]int32, frames*2)
		for i := 0; i < frames; i++ {
			out[i*2] = samples[i*channels]
			out[i*2+1] = samples[i*channels+1]
		}
		return out
	}
}

// toBytes packs 24-bit range samples as s16le
func toBytes(samples []int32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.SampleToInt16(s)))
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// streamReader is a blocking reader over the stream buffer. It reports EOF
// once the stream has ended and the buffer is drained, or on flush.
type streamReader struct {
	ctx     context.Context
	streams *slimproto.StreamCell
	abort   func() bool
}

type readResult struct {
	n     int
	ended bool
}

func (r *streamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		res := slimproto.View(r.streams, func(st *slimproto.StreamShared) readResult {
			return readResult{
				n:     st.Buffer.Read(p),
				ended: st.State == slimproto.StreamStopped || st.State == slimproto.StreamDisconnected,
			}
		})
		if res.n > 0 {
			return res.n, nil
		}
		if res.ended || r.abort() || r.ctx.Err() != nil {
			return 0, io.EOF
		}
		sleep(r.ctx, pollInterval)
	}
}
