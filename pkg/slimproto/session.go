// ABOUTME: Per-player protocol session
// ABOUTME: Holds the status snapshot, autostart mode and the outbound message helpers
package slimproto

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Session is the protocol state carried through the receive/tick loop.
// It outlives individual connections: the snapshot and autostart mode
// persist across reconnects.
type Session struct {
	streams  *StreamCell
	outputs  *OutputCell
	codecs   CodecOpener
	streamer Streamer
	clock    func() uint32
	log      zerolog.Logger

	// writeTimeout bounds each send on connections that support deadlines
	writeTimeout time.Duration

	w          io.Writer
	controller net.IP

	status    StatusSnapshot
	autostart int
}

func newSession(cfg Config, log zerolog.Logger) *Session {
	return &Session{
		streams:  cfg.Streams,
		outputs:  cfg.Outputs,
		codecs:   cfg.Codecs,
		streamer: cfg.Streamer,
		clock:    cfg.Clock,
		log:      log,

		writeTimeout: cfg.WriteTimeout,
	}
}

// attach points the session at a new connection
func (s *Session) attach(w io.Writer, controller net.IP) {
	s.w = w
	s.controller = controller
}

var errNotConnected = errors.New("slimproto: session has no connection")

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

func (s *Session) send(m Outbound) error {
	if s.w == nil {
		return errNotConnected
	}
	if d, ok := s.w.(writeDeadliner); ok && s.writeTimeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	return WriteMessage(s.w, m)
}

func (s *Session) sendHelo(h Helo) error {
	h.BytesReceived = s.status.BytesReceived
	s.log.Info().Bool("reconnect", h.Reconnect).Msg("HELO")
	s.log.Debug().Str("capabilities", h.Capabilities).Msg("HELO capabilities")
	return s.send(h)
}

func (s *Session) sendStat(event string, serverTimestamp [4]byte) error {
	s.log.Info().Str("event", event).Msg("STAT")
	return s.send(s.status.stat(event, serverTimestamp))
}

func (s *Session) sendDsco(reason DisconnectReason) error {
	s.log.Info().Uint8("reason", uint8(reason)).Msg("DSCO")
	return s.send(Dsco{Reason: reason})
}

func (s *Session) sendResp(header []byte) error {
	s.log.Info().Int("len", len(header)).Msg("RESP")
	return s.send(Resp{Header: header})
}
