// ABOUTME: Tests for session send helpers
// ABOUTME: Write deadlines on stalled connections and sends without a connection
package slimproto

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"
)

func TestSendTimesOutOnStalledController(t *testing.T) {
	s, _, _, _, _ := testSession(t)
	s.writeTimeout = 50 * time.Millisecond

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	// server never reads
	s.attach(client, nil)

	start := time.Now()
	err := s.sendStat("STMt", [4]byte{})
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("send blocked for %v", elapsed)
	}
}

func TestSendWithinDeadline(t *testing.T) {
	s, _, _, _, _ := testSession(t)
	s.writeTimeout = time.Second

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	s.attach(client, nil)

	result := make(chan outMsg, 1)
	go func() {
		m, err := readOutbound(server)
		if err != nil {
			t.Errorf("read failed: %v", err)
		}
		result <- m
	}()

	if err := s.sendDsco(DisconnectTimeout); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	m := <-result
	if m.opcode != "DSCO" || len(m.payload) != 1 || m.payload[0] != byte(DisconnectTimeout) {
		t.Errorf("unexpected message %+v", m)
	}
}

func TestSendWithoutConnection(t *testing.T) {
	s, _, _, _, _ := testSession(t)
	s.attach(nil, nil)

	if err := s.sendStat("STMt", [4]byte{}); !errors.Is(err, errNotConnected) {
		t.Errorf("expected errNotConnected, got %v", err)
	}
}

func TestNewClientDefaultsWriteTimeout(t *testing.T) {
	c, err := NewClient(Config{
		Server:   "127.0.0.1",
		Streams:  NewStreamCell(1024),
		Outputs:  NewOutputCell(1024, 44100),
		Codecs:   &fakeCodecs{},
		Streamer: &fakeStreamer{},
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.session.writeTimeout != DefaultWriteTimeout {
		t.Errorf("expected %v, got %v", DefaultWriteTimeout, c.session.writeTimeout)
	}
}
