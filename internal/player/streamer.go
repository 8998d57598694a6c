// ABOUTME: HTTP media stream fetcher feeding the stream buffer
// ABOUTME: Sends the controller-supplied request, captures the response header and buffers the body
package player

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Resonate-Protocol/squeeze-go/pkg/slimproto"
	"github.com/rs/zerolog"
)

const (
	// maxHeaderSize bounds the buffered HTTP response header
	maxHeaderSize = 4096

	dialTimeout = 10 * time.Second
	idleTimeout = 30 * time.Second

	// pollInterval is the back-off while a buffer is full or empty
	pollInterval = 10 * time.Millisecond

	readChunk = 4096
)

var headerEnd = []byte("\r\n\r\n")

// Streamer fetches one media stream at a time into the stream buffer
type Streamer struct {
	streams *slimproto.StreamCell
	log     zerolog.Logger

	// OnDisconnect runs after the controller stops the stream
	OnDisconnect func()

	mu   sync.Mutex
	conn net.Conn
	gen  uint64
}

// NewStreamer creates a streamer writing into streams
func NewStreamer(streams *slimproto.StreamCell, logger zerolog.Logger) *Streamer {
	return &Streamer{
		streams: streams,
		log:     logger.With().Str("component", "stream").Logger(),
	}
}

// Connect starts fetching from ip:port. The request is sent verbatim.
func (s *Streamer) Connect(ip net.IP, port uint16, header []byte) {
	s.mu.Lock()
	s.closeLocked()
	s.gen++
	gen := s.gen
	s.streams.Update(func(st *slimproto.StreamShared) {
		st.State = slimproto.StreamingWait
		st.Header = nil
		st.HeaderSent = false
		st.BytesReceived = 0
	})
	s.mu.Unlock()

	addr := net.JoinHostPort(ip.String(), strconv.Itoa(int(port)))
	s.log.Info().Str("addr", addr).Msg("connecting stream")
	go s.fetch(gen, addr, append([]byte(nil), header...))
}

// Disconnect closes the current stream and marks it stopped
func (s *Streamer) Disconnect() {
	s.mu.Lock()
	s.closeLocked()
	s.gen++
	s.streams.Update(func(st *slimproto.StreamShared) {
		st.State = slimproto.StreamStopped
	})
	s.mu.Unlock()

	if s.OnDisconnect != nil {
		s.OnDisconnect()
	}
}

func (s *Streamer) closeLocked() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// current runs fn under the streamer lock if gen is still the live stream
func (s *Streamer) current(gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	fn()
	return true
}

func (s *Streamer) finish(gen uint64, reason slimproto.DisconnectReason, err error) {
	s.current(gen, func() {
		s.closeLocked()
		s.streams.Update(func(st *slimproto.StreamShared) {
			st.State = slimproto.StreamDisconnected
			st.Disconnect = reason
		})
		s.log.Info().Err(err).Uint8("reason", uint8(reason)).Msg("stream ended")
	})
}

func (s *Streamer) fetch(gen uint64, addr string, request []byte) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		s.finish(gen, slimproto.DisconnectUnreachable, err)
		return
	}
	if !s.current(gen, func() { s.conn = conn }) {
		conn.Close()
		return
	}

	if _, err := conn.Write(request); err != nil {
		s.finish(gen, slimproto.DisconnectLocal, err)
		return
	}

	r := bufio.NewReaderSize(conn, readChunk)
	header, err := readHeader(conn, r)
	if err != nil {
		s.finish(gen, failureReason(err), err)
		return
	}
	s.current(gen, func() {
		s.streams.Update(func(st *slimproto.StreamShared) {
			st.Header = header
			st.HeaderSent = false
			st.State = slimproto.StreamingHTTP
		})
	})
	s.log.Debug().Int("len", len(header)).Msg("stream header received")

	buf := make([]byte, readChunk)
	for {
		free := slimproto.View(s.streams, func(st *slimproto.StreamShared) int {
			return st.Buffer.Free()
		})
		if free == 0 {
			time.Sleep(pollInterval)
			if !s.current(gen, func() {}) {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		n, err := r.Read(buf[:min(free, len(buf))])
		if n > 0 {
			live := s.current(gen, func() {
				s.streams.Update(func(st *slimproto.StreamShared) {
					st.Buffer.Write(buf[:n])
					st.BytesReceived += uint64(n)
				})
			})
			if !live {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.finish(gen, slimproto.DisconnectOK, nil)
			} else {
				s.finish(gen, failureReason(err), err)
			}
			return
		}
	}
}

// readHeader reads up to and including the blank line ending the response header
func readHeader(conn net.Conn, r *bufio.Reader) ([]byte, error) {
	header := make([]byte, 0, 512)
	for !bytes.HasSuffix(header, headerEnd) {
		if len(header) >= maxHeaderSize {
			return nil, errHeaderTooLarge
		}
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		header = append(header, b)
	}
	return header, nil
}

var errHeaderTooLarge = errors.New("stream header too large")

func failureReason(err error) slimproto.DisconnectReason {
	switch {
	case errors.Is(err, errHeaderTooLarge):
		return slimproto.DisconnectLocal
	case errors.Is(err, os.ErrDeadlineExceeded):
		return slimproto.DisconnectTimeout
	default:
		return slimproto.DisconnectRemote
	}
}
