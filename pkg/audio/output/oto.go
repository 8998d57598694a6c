// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays s16le frames pulled from a source through the oto library
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

// otoBufferSize bounds the latency between the source and the speaker
const otoBufferSize = 100 * time.Millisecond

// Oto output implementation using oto library
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	sampleRate int
	channels   int
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{}
}

// Open initializes the output device and starts pulling from src
func (o *Oto) Open(sampleRate, channels int, src io.Reader) error {
	// oto only allows one context per process, so a later format change
	// keeps the first context
	if o.otoCtx != nil && (o.sampleRate != sampleRate || o.channels != channels) {
		log.Warn().
			Int("rate", o.sampleRate).Int("channels", o.channels).
			Int("requestedRate", sampleRate).Int("requestedChannels", channels).
			Msg("oto cannot be reinitialized, keeping existing format")
	}

	if o.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   otoBufferSize,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		o.otoCtx = ctx
		o.sampleRate = sampleRate
		o.channels = channels
	} else if err := o.otoCtx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}

	if o.player != nil {
		o.player.Close()
	}
	o.player = o.otoCtx.NewPlayer(src)
	o.player.Play()

	log.Info().Int("rate", o.sampleRate).Int("channels", o.channels).Msg("audio output initialized")
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.otoCtx != nil {
		return o.otoCtx.Suspend()
	}
	return nil
}
