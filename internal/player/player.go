// ABOUTME: Player orchestration
// ABOUTME: Wires shared state, stream fetcher, decode loop and output device to a SlimProto client
package player

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/Resonate-Protocol/squeeze-go/pkg/audio/output"
	"github.com/Resonate-Protocol/squeeze-go/pkg/slimproto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds player configuration
type Config struct {
	// Server is host or host:port; empty uses Discover
	Server   string
	Discover func(ctx context.Context) (net.IP, error)

	Model     string
	ModelName string
	MAC       [6]byte
	UUID      [16]byte

	// SampleRate is both the advertised maximum and the device rate
	SampleRate       int
	StreamBufferSize int
	OutputBufferSize int

	// Device defaults to the oto output
	Device output.Output
	Logger *zerolog.Logger

	// OnStateChange is called on every connection state change
	OnStateChange func(state slimproto.ConnState, controller string)
}

// Player is a headless SlimProto player
type Player struct {
	config   Config
	log      zerolog.Logger
	streams  *slimproto.StreamCell
	outputs  *slimproto.OutputCell
	streamer *Streamer
	decoder  *Decoder
	output   *Output
	client   *slimproto.Client

	mu         sync.RWMutex
	state      slimproto.ConnState
	controller string
}

// New creates a player
func New(config Config) (*Player, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", config.SampleRate)
	}
	if config.StreamBufferSize <= 0 || config.OutputBufferSize <= 0 {
		return nil, fmt.Errorf("buffer sizes must be positive")
	}
	if config.Device == nil {
		config.Device = output.NewOto()
	}
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	p := &Player{
		config:  config,
		log:     logger.With().Str("component", "player").Logger(),
		streams: slimproto.NewStreamCell(config.StreamBufferSize),
		outputs: slimproto.NewOutputCell(config.OutputBufferSize, uint32(config.SampleRate)),
	}
	p.streamer = NewStreamer(p.streams, logger)
	p.decoder = NewDecoder(p.streams, p.outputs, config.SampleRate, logger)
	p.streamer.OnDisconnect = p.decoder.Flush
	p.output = NewOutput(p.outputs, config.SampleRate)

	client, err := slimproto.NewClient(slimproto.Config{
		Server:        config.Server,
		Discover:      config.Discover,
		Streams:       p.streams,
		Outputs:       p.outputs,
		Codecs:        p.decoder,
		Streamer:      p.streamer,
		Model:         config.Model,
		ModelName:     config.ModelName,
		MAC:           config.MAC,
		UUID:          config.UUID,
		Formats:       Formats,
		Logger:        &logger,
		OnStateChange: p.setState,
	})
	if err != nil {
		return nil, err
	}
	p.client = client

	return p, nil
}

func (p *Player) setState(state slimproto.ConnState, controller string) {
	p.mu.Lock()
	p.state = state
	p.controller = controller
	p.mu.Unlock()

	if p.config.OnStateChange != nil {
		p.config.OnStateChange(state, controller)
	}
}

// Run plays until ctx is cancelled
func (p *Player) Run(ctx context.Context) error {
	if err := p.config.Device.Open(p.config.SampleRate, 2, p.output); err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer p.config.Device.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.decoder.Run(ctx)
	}()

	p.log.Info().Str("capabilities", p.client.Capabilities()).Msg("starting player")
	err := p.client.Run(ctx)

	p.streamer.Disconnect()
	wg.Wait()
	return err
}

// Status is a point-in-time view of the player for display
type Status struct {
	Connection   slimproto.ConnState
	Controller   string
	Stream       slimproto.StreamState
	Decode       slimproto.DecodeState
	Output       slimproto.OutputState
	StreamFull   int
	StreamSize   int
	OutputFull   int
	OutputSize   int
	BytesRead    uint64
	FramesPlayed uint32
	SampleRate   uint32
	GainLeft     uint32
	GainRight    uint32
}

// Status samples the shared state
func (p *Player) Status() Status {
	var s Status
	p.mu.RLock()
	s.Connection, s.Controller = p.state, p.controller
	p.mu.RUnlock()

	p.streams.Update(func(st *slimproto.StreamShared) {
		s.Stream = st.State
		s.StreamFull = st.Buffer.Used()
		s.StreamSize = st.Buffer.Size()
		s.BytesRead = st.BytesReceived
	})
	p.outputs.Update(func(o *slimproto.OutputShared) {
		s.Decode = o.Decode
		s.Output = o.State
		s.OutputFull = o.Buffer.Used()
		s.OutputSize = o.Buffer.Size()
		s.FramesPlayed = o.FramesPlayed
		s.SampleRate = o.CurrentSampleRate
		s.GainLeft = o.GainLeft
		s.GainRight = o.GainRight
	})
	return s
}

// Elapsed returns playback position in seconds
func (s Status) Elapsed() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(s.FramesPlayed) / float64(s.SampleRate)
}
