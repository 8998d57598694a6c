// ABOUTME: Tests for inbound command dispatch
// ABOUTME: strm sub-commands, cont autostart law, audg gains and unknown opcodes
package slimproto

import (
	"net"
	"slices"
	"testing"
)

func dispatchFrame(t *testing.T, s *Session, opcode string, payload []byte) {
	t.Helper()
	var msg Message
	copy(msg.Opcode[:], opcode)
	msg.Payload = payload
	if err := s.dispatch(msg); err != nil {
		t.Fatalf("dispatch %s: %v", opcode, err)
	}
}

func TestParseOpcode(t *testing.T) {
	tests := []struct {
		tag      string
		expected Opcode
	}{
		{"strm", OpStrm},
		{"cont", OpCont},
		{"audg", OpAudg},
		{"aude", OpAude},
		{"STRM", OpUnknown},
		{"str\x00", OpUnknown},
		{"vers", OpUnknown},
	}
	for _, tt := range tests {
		var tag [4]byte
		copy(tag[:], tt.tag)
		if got := ParseOpcode(tag); got != tt.expected {
			t.Errorf("%q: expected %d, got %d", tt.tag, tt.expected, got)
		}
	}
}

func TestStrmTimingEchoesProbe(t *testing.T) {
	s, out, _, _, _ := testSession(t)

	p := strmPayload('t', '0', [4]byte{}, 0, "")
	copy(p[14:18], []byte{0x11, 0x22, 0x33, 0x44})
	dispatchFrame(t, s, "strm", p)

	msgs := drainOutbound(t, out)
	if len(msgs) != 1 || msgs[0].event() != "STMt" {
		t.Fatalf("expected one STMt, got %v", events(msgs))
	}
	if got := msgs[0].payload[47:51]; string(got) != "\x11\x22\x33\x44" {
		t.Errorf("probe not echoed: %v", got)
	}
}

func TestStrmFlushAndQuit(t *testing.T) {
	for _, cmd := range []byte{'q', 'f'} {
		t.Run(string(cmd), func(t *testing.T) {
			s, out, _, streamer, _ := testSession(t)
			s.streams.Update(func(st *StreamShared) { st.Buffer.Write([]byte("encoded")) })
			s.outputs.Update(func(o *OutputShared) { o.Buffer.Write([]byte("pcm")) })

			dispatchFrame(t, s, "strm", strmPayload(cmd, '0', [4]byte{}, 0, ""))

			if streamer.disconnects != 1 {
				t.Errorf("expected one disconnect, got %d", streamer.disconnects)
			}
			if used := View(s.streams, func(st *StreamShared) int { return st.Buffer.Used() }); used != 0 {
				t.Errorf("stream buffer not flushed: %d", used)
			}
			if used := View(s.outputs, func(o *OutputShared) int { return o.Buffer.Used() }); used != 0 {
				t.Errorf("output buffer not flushed: %d", used)
			}
			if out.Len() != 0 {
				t.Errorf("expected no direct status event, got %v", events(drainOutbound(t, out)))
			}
		})
	}
}

func TestStrmPauseUnpause(t *testing.T) {
	s, out, _, _, _ := testSession(t)
	s.outputs.Update(func(o *OutputShared) { o.State = OutputRunning })

	dispatchFrame(t, s, "strm", strmPayload('p', '0', [4]byte{}, 0, ""))
	if st := View(s.outputs, func(o *OutputShared) OutputState { return o.State }); st != OutputStopped {
		t.Fatalf("expected output stopped after pause, got %v", st)
	}
	if out.Len() != 0 {
		t.Fatalf("pause should not emit")
	}

	dispatchFrame(t, s, "strm", strmPayload('u', '0', [4]byte{}, 0, ""))
	state, decode := View(s.outputs, func(o *OutputShared) OutputState { return o.State }),
		View(s.outputs, func(o *OutputShared) DecodeState { return o.Decode })
	if state != OutputRunning || decode != DecodeRunning {
		t.Errorf("expected running/running after unpause, got %v/%v", state, decode)
	}
	if got := events(drainOutbound(t, out)); !slices.Equal(got, []string{"STMr"}) {
		t.Errorf("expected STMr, got %v", got)
	}
}

func TestStrmSkipAheadIsNoop(t *testing.T) {
	s, out, codecs, streamer, _ := testSession(t)
	before := View(s.outputs, func(o *OutputShared) OutputShared { return *o })

	dispatchFrame(t, s, "strm", strmPayload('a', '0', [4]byte{}, 0, ""))

	after := View(s.outputs, func(o *OutputShared) OutputShared { return *o })
	if before != after {
		t.Errorf("skip ahead changed output state")
	}
	if out.Len() != 0 || len(codecs.opened()) != 0 || len(streamer.connected()) != 0 {
		t.Errorf("skip ahead had side effects")
	}
}

func TestStrmUnknownCommand(t *testing.T) {
	s, out, _, _, _ := testSession(t)
	dispatchFrame(t, s, "strm", strmPayload('z', '0', [4]byte{}, 0, ""))
	if out.Len() != 0 {
		t.Errorf("unknown sub-command should not emit")
	}
}

func TestStrmStart(t *testing.T) {
	s, out, codecs, streamer, clock := testSession(t)
	clock.Advance(50)

	header := "GET /stream.mp3?player=1 HTTP/1.0\r\n\r\n"
	dispatchFrame(t, s, "strm", strmPayload('s', '1', [4]byte{192, 168, 1, 20}, 9000, header))

	if got := events(drainOutbound(t, out)); !slices.Equal(got, []string{"STMf", "STMc"}) {
		t.Fatalf("expected STMf then STMc, got %v", got)
	}

	calls := codecs.opened()
	if len(calls) != 1 || calls[0] != (openCall{'m', '1', '3', '2', '1'}) {
		t.Errorf("unexpected codec open: %+v", calls)
	}

	conns := streamer.connected()
	if len(conns) != 1 {
		t.Fatalf("expected one stream connect, got %d", len(conns))
	}
	if !conns[0].ip.Equal(net.IPv4(192, 168, 1, 20)) || conns[0].port != 9000 || string(conns[0].header) != header {
		t.Errorf("unexpected stream connect: %v:%d %q", conns[0].ip, conns[0].port, conns[0].header)
	}

	if st := View(s.outputs, func(o *OutputShared) OutputState { return o.State }); st != OutputRunning {
		t.Errorf("expected output running, got %v", st)
	}
	if s.autostart != 1 {
		t.Errorf("expected autostart 1, got %d", s.autostart)
	}
	if s.status.Jiffies != clock.Now() {
		t.Errorf("expected tick clock reset to %d, got %d", clock.Now(), s.status.Jiffies)
	}
}

func TestStrmStartZeroAddressUsesController(t *testing.T) {
	s, _, _, streamer, _ := testSession(t)
	dispatchFrame(t, s, "strm", strmPayload('s', '0', [4]byte{}, 9000, ""))

	conns := streamer.connected()
	if len(conns) != 1 || !conns[0].ip.Equal(net.IPv4(10, 0, 0, 5)) {
		t.Fatalf("expected controller address substitution, got %+v", conns)
	}
}

func TestContAutostartLaw(t *testing.T) {
	tests := []struct {
		start    int
		expected []int
	}{
		{3, []int{1, 1}},
		{2, []int{0, 0}},
		{1, []int{1}},
		{0, []int{0}},
	}

	for _, tt := range tests {
		s, _, _, _, _ := testSession(t)
		s.autostart = tt.start
		for i, want := range tt.expected {
			dispatchFrame(t, s, "cont", nil)
			if s.autostart != want {
				t.Errorf("start %d, cont #%d: expected %d, got %d", tt.start, i+1, want, s.autostart)
			}
		}
	}
}

func TestAudgSetsGains(t *testing.T) {
	s, out, _, _, _ := testSession(t)

	p := make([]byte, audgPayloadLen)
	PackU32(p[10:14], 0x00008000)
	PackU32(p[14:18], 0x0001a000)
	dispatchFrame(t, s, "audg", p)

	left, right := View(s.outputs, func(o *OutputShared) uint32 { return o.GainLeft }),
		View(s.outputs, func(o *OutputShared) uint32 { return o.GainRight })
	if left != 0x00008000 || right != 0x0001a000 {
		t.Errorf("expected gains 0x8000/0x1a000, got %#x/%#x", left, right)
	}
	if out.Len() != 0 {
		t.Errorf("audg should not emit")
	}
}

func TestUnknownOpcodeIgnored(t *testing.T) {
	s, out, _, _, _ := testSession(t)
	dispatchFrame(t, s, "vers", []byte("7.7.3"))
	dispatchFrame(t, s, "aude", []byte{1, 1})
	dispatchFrame(t, s, "strm", []byte{'s'}) // short payload is discarded
	if out.Len() != 0 {
		t.Errorf("ignored messages should not emit")
	}
}
