// ABOUTME: UDP broadcast discovery of a SlimProto controller
// ABOUTME: Broadcasts a one-byte probe and takes the first reply's source address
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DiscoveryPort is the UDP port controllers listen on for probes
	DiscoveryPort = 3483

	// DefaultReplyTimeout is how long each probe waits for a reply
	DefaultReplyTimeout = 5 * time.Second

	probe = "e"
)

// Broadcaster finds a controller by broadcasting probes until one answers.
// The zero value broadcasts to 255.255.255.255:3483.
type Broadcaster struct {
	// Addr overrides the probe destination
	Addr *net.UDPAddr
	// Timeout overrides DefaultReplyTimeout
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// Discover broadcasts with the default settings
func Discover(ctx context.Context) (net.IP, error) {
	var b Broadcaster
	return b.Discover(ctx)
}

// Discover sends a probe, waits for any datagram and returns its source IP.
// Probes repeat until a reply arrives or ctx is cancelled.
func (b *Broadcaster) Discover(ctx context.Context) (net.IP, error) {
	logger := log.Logger
	if b.Logger != nil {
		logger = *b.Logger
	}
	logger = logger.With().Str("component", "discovery").Logger()

	addr := b.Addr
	if addr == nil {
		addr = &net.UDPAddr{IP: net.IPv4bcast, Port: DiscoveryPort}
	}
	timeout := b.Timeout
	if timeout == 0 {
		timeout = DefaultReplyTimeout
	}

	// Go enables SO_BROADCAST on UDP sockets
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("discovery socket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	buf := make([]byte, 512)
	for {
		logger.Info().Str("addr", addr.String()).Msg("sending discovery")
		if _, err := conn.WriteToUDP([]byte(probe), addr); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("send probe: %w", err)
		}

		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
		_, from, err := conn.ReadFromUDP(buf)
		switch {
		case err == nil:
			logger.Info().Str("server", from.IP.String()).Msg("discovered controller")
			return from.IP, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, os.ErrDeadlineExceeded):
			logger.Debug().Msg("no discovery reply")
		default:
			return nil, fmt.Errorf("read reply: %w", err)
		}
	}
}
