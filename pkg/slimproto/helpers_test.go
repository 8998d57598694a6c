// ABOUTME: Shared fixtures for slimproto tests
// ABOUTME: Fake collaborators, a manual clock and wire helpers
package slimproto

import (
	"bytes"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type openCall struct {
	format, sampleSize, sampleRate, channels, endianness byte
}

type fakeCodecs struct {
	mu    sync.Mutex
	calls []openCall
}

func (f *fakeCodecs) Open(format, sampleSize, sampleRate, channels, endianness byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, openCall{format, sampleSize, sampleRate, channels, endianness})
}

func (f *fakeCodecs) opened() []openCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openCall(nil), f.calls...)
}

type connectCall struct {
	ip     net.IP
	port   uint16
	header []byte
}

type fakeStreamer struct {
	mu          sync.Mutex
	connects    []connectCall
	disconnects int
}

func (f *fakeStreamer) Connect(ip net.IP, port uint16, header []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, connectCall{ip, port, header})
}

func (f *fakeStreamer) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeStreamer) connected() []connectCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]connectCall(nil), f.connects...)
}

type manualClock struct {
	mu  sync.Mutex
	now uint32
}

func (c *manualClock) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(ms uint32) {
	c.mu.Lock()
	c.now += ms
	c.mu.Unlock()
}

// testSession builds a session writing into out
func testSession(t *testing.T) (*Session, *bytes.Buffer, *fakeCodecs, *fakeStreamer, *manualClock) {
	t.Helper()
	codecs := &fakeCodecs{}
	streamer := &fakeStreamer{}
	clock := &manualClock{now: 10000}
	cfg := Config{
		Streams:  NewStreamCell(1024),
		Outputs:  NewOutputCell(4096, 48000),
		Codecs:   codecs,
		Streamer: streamer,
		Clock:    clock.Now,
	}
	s := newSession(cfg, zerolog.Nop())
	out := &bytes.Buffer{}
	s.attach(out, net.IPv4(10, 0, 0, 5).To4())
	s.status.Jiffies = clock.Now()
	return s, out, codecs, streamer, clock
}

type outMsg struct {
	opcode  string
	payload []byte
}

// event returns the STAT event code, or "" for other messages
func (m outMsg) event() string {
	if m.opcode != "STAT" || len(m.payload) < 4 {
		return ""
	}
	return string(m.payload[:4])
}

// readOutbound parses one client-to-controller message
func readOutbound(r io.Reader) (outMsg, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return outMsg{}, err
	}
	payload := make([]byte, UnpackU32(hdr[4:8]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return outMsg{}, err
	}
	return outMsg{opcode: string(hdr[:4]), payload: payload}, nil
}

func drainOutbound(t *testing.T, buf *bytes.Buffer) []outMsg {
	t.Helper()
	var msgs []outMsg
	for buf.Len() > 0 {
		m, err := readOutbound(buf)
		if err != nil {
			t.Fatalf("malformed outbound stream: %v", err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func events(msgs []outMsg) []string {
	var out []string
	for _, m := range msgs {
		if e := m.event(); e != "" {
			out = append(out, e)
		} else {
			out = append(out, m.opcode)
		}
	}
	return out
}

// inboundFrame encodes a controller-to-client frame
func inboundFrame(opcode string, payload []byte) []byte {
	b := make([]byte, 2, 2+4+len(payload))
	PackU16(b, uint16(4+len(payload)))
	b = append(b, opcode...)
	return append(b, payload...)
}

func strmPayload(command, autostart byte, ip [4]byte, port uint16, header string) []byte {
	p := make([]byte, strmFixedLen, strmFixedLen+len(header))
	p[0] = command
	p[1] = autostart
	p[2] = 'm'
	p[3] = '1'
	p[4] = '3'
	p[5] = '2'
	p[6] = '1'
	PackU16(p[18:20], port)
	copy(p[20:24], ip[:])
	return append(p, header...)
}
