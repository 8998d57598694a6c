// ABOUTME: SlimProto connection manager
// ABOUTME: Resolves the controller, connects, handshakes and runs the receive/tick loop with reconnect
package slimproto

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultReconnectDelay is the fixed wait after a failed connect
	DefaultReconnectDelay = 5 * time.Second

	// DefaultWriteTimeout bounds a single send to the controller
	DefaultWriteTimeout = 5 * time.Second

	// pollInterval bounds every socket read so the status tick keeps running
	pollInterval = TickInterval * time.Millisecond

	// deviceSqueezeplay is the HELO device id of software players
	deviceSqueezeplay = 12
)

// ConnState is the connection manager's lifecycle state
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Handshaking
	Active
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Handshaking:
		return "handshaking"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Config holds client configuration
type Config struct {
	// Server is the controller host or host:port. When empty, Discover is used.
	Server string

	// Discover locates a controller when Server is empty
	Discover func(ctx context.Context) (net.IP, error)

	// Shared state and collaborators
	Streams  *StreamCell
	Outputs  *OutputCell
	Codecs   CodecOpener
	Streamer Streamer

	// Handshake identity
	Model     string
	ModelName string
	MAC       [6]byte
	UUID      [16]byte
	// Formats lists the codec types advertised in the capabilities, e.g. "mp3", "flc", "pcm"
	Formats []string

	// ReconnectDelay defaults to DefaultReconnectDelay
	ReconnectDelay time.Duration

	// WriteTimeout defaults to DefaultWriteTimeout
	WriteTimeout time.Duration

	// Clock returns monotonic milliseconds; defaults to time since client creation
	Clock func() uint32

	// Logger defaults to the global zerolog logger
	Logger *zerolog.Logger

	// OnStateChange is called from the Run goroutine on every lifecycle transition
	OnStateChange func(state ConnState, controller string)
}

// Client is a SlimProto player connection
type Client struct {
	config  Config
	session *Session
	log     zerolog.Logger

	mu         sync.RWMutex
	state      ConnState
	controller string
}

// NewClient creates a new client
func NewClient(config Config) (*Client, error) {
	if config.Streams == nil || config.Outputs == nil {
		return nil, errors.New("slimproto: stream and output state are required")
	}
	if config.Codecs == nil || config.Streamer == nil {
		return nil, errors.New("slimproto: codec opener and streamer are required")
	}
	if config.Server == "" && config.Discover == nil {
		return nil, errors.New("slimproto: no server address and no discovery")
	}
	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = DefaultReconnectDelay
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.Clock == nil {
		start := time.Now()
		config.Clock = func() uint32 {
			return uint32(time.Since(start).Milliseconds())
		}
	}
	if config.Model == "" {
		config.Model = "squeezego"
	}
	if config.ModelName == "" {
		config.ModelName = "SqueezeGo"
	}

	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	logger = logger.With().Str("component", "slimproto").Logger()

	return &Client{
		config:  config,
		session: newSession(config, logger),
		log:     logger,
	}, nil
}

// State returns the lifecycle state and the current controller address
func (c *Client) State() (ConnState, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.controller
}

func (c *Client) setState(state ConnState, controller string) {
	c.mu.Lock()
	c.state = state
	c.controller = controller
	c.mu.Unlock()

	if c.config.OnStateChange != nil {
		c.config.OnStateChange(state, controller)
	}
}

// Capabilities builds the HELO capability string
func (c *Client) Capabilities() string {
	maxRate := View(c.config.Outputs, func(o *OutputShared) uint32 {
		return o.MaxSampleRate
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Model=%s,ModelName=%s,MaxSampleRate=%d", c.config.Model, c.config.ModelName, maxRate)
	for _, f := range c.config.Formats {
		b.WriteByte(',')
		b.WriteString(f)
	}
	return b.String()
}

// Run connects and serves until ctx is cancelled. Connection failures and
// dropped connections are retried forever.
func (c *Client) Run(ctx context.Context) error {
	capabilities := c.Capabilities()
	reconnect := false

	for {
		if err := ctx.Err(); err != nil {
			c.setState(Disconnected, "")
			return err
		}

		c.setState(Connecting, "")
		addr, err := c.resolve(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.log.Warn().Err(err).Msg("unable to resolve server")
			c.wait(ctx)
			continue
		}

		c.log.Info().Str("addr", addr).Msg("connecting")
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			c.log.Info().Err(err).Msg("unable to connect to server")
			c.setState(Disconnected, "")
			c.wait(ctx)
			continue
		}

		err = c.serve(ctx, conn, capabilities, reconnect)
		reconnect = true
		conn.Close()
		c.setState(Disconnected, "")

		switch {
		case ctx.Err() != nil:
		case errors.Is(err, ErrFrameTooLarge):
			c.log.Error().Err(err).Msg("fatal framing error")
		default:
			c.log.Warn().Err(err).Msg("connection closed")
		}
	}
}

// serve handshakes and runs the combined receive/tick loop until the
// connection fails. It never returns nil.
func (c *Client) serve(ctx context.Context, conn net.Conn, capabilities string, reconnect bool) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	addr := conn.RemoteAddr().String()
	var controller net.IP
	if tcp, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		controller = tcp.IP.To4()
	}

	c.log.Info().Str("addr", addr).Msg("connected")
	c.setState(Handshaking, addr)

	s := c.session
	s.attach(conn, controller)
	defer s.attach(nil, nil)

	helo := Helo{
		DeviceID:     deviceSqueezeplay,
		MAC:          c.config.MAC,
		UUID:         c.config.UUID,
		Reconnect:    reconnect,
		Language:     [2]byte{'E', 'N'},
		Capabilities: capabilities,
	}
	if err := s.sendHelo(helo); err != nil {
		return fmt.Errorf("send HELO: %w", err)
	}

	c.setState(Active, addr)

	framer := NewFramer(conn)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return err
		}

		msg, err := framer.Next()
		switch {
		case err == nil:
			if err := s.dispatch(msg); err != nil {
				return fmt.Errorf("dispatch: %w", err)
			}
		case isTimeout(err):
		default:
			return fmt.Errorf("read: %w", err)
		}

		if err := s.maybeTick(); err != nil {
			return fmt.Errorf("status: %w", err)
		}
	}
}

// resolve returns host:port of the controller
func (c *Client) resolve(ctx context.Context) (string, error) {
	if c.config.Server == "" {
		c.log.Info().Msg("sending discovery")
		ip, err := c.config.Discover(ctx)
		if err != nil {
			return "", err
		}
		return net.JoinHostPort(ip.String(), strconv.Itoa(Port)), nil
	}
	if _, _, err := net.SplitHostPort(c.config.Server); err == nil {
		return c.config.Server, nil
	}
	return net.JoinHostPort(c.config.Server, strconv.Itoa(Port)), nil
}

func (c *Client) wait(ctx context.Context) {
	t := time.NewTimer(c.config.ReconnectDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
