// ABOUTME: Shared fixtures for player tests
// ABOUTME: Polling helper and a one-shot HTTP-like media server
package player

import (
	"bufio"
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/Resonate-Protocol/squeeze-go/pkg/slimproto"
)

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// mediaServer accepts one connection, records the request header and
// answers with response followed by body
type mediaServer struct {
	ln      net.Listener
	request chan []byte
}

func newMediaServer(t *testing.T, response string, body []byte, keepOpen bool) *mediaServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	m := &mediaServer{ln: ln, request: make(chan []byte, 1)}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		var req []byte
		for !bytes.HasSuffix(req, []byte("\r\n\r\n")) {
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			req = append(req, b)
		}
		m.request <- req

		conn.Write([]byte(response))
		conn.Write(body)
		if keepOpen {
			// hold until the client closes
			conn.Read(make([]byte, 1))
		}
	}()
	return m
}

func (m *mediaServer) addr() (net.IP, uint16) {
	a := m.ln.Addr().(*net.TCPAddr)
	return a.IP, uint16(a.Port)
}

func streamState(c *slimproto.StreamCell) slimproto.StreamShared {
	return slimproto.View(c, func(st *slimproto.StreamShared) slimproto.StreamShared {
		cp := *st
		cp.Buffer = nil
		return cp
	})
}

func decodeState(c *slimproto.OutputCell) slimproto.DecodeState {
	return slimproto.View(c, func(o *slimproto.OutputShared) slimproto.DecodeState {
		return o.Decode
	})
}
