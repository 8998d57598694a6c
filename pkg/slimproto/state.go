// ABOUTME: Shared playback state observed by the SlimProto core
// ABOUTME: Two lock-protected cells for stream and output state plus the status snapshot
package slimproto

import (
	"sync"

	"github.com/Resonate-Protocol/squeeze-go/pkg/audio"
)

// StreamState is the media stream fetcher's state
type StreamState int

const (
	StreamStopped StreamState = iota
	StreamingWait
	StreamingHTTP
	StreamDisconnected
)

func (s StreamState) String() string {
	switch s {
	case StreamStopped:
		return "stopped"
	case StreamingWait:
		return "waiting"
	case StreamingHTTP:
		return "streaming"
	case StreamDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// DisconnectReason is the DSCO reason code
type DisconnectReason uint8

const (
	DisconnectOK DisconnectReason = iota
	DisconnectLocal
	DisconnectRemote
	DisconnectUnreachable
	DisconnectTimeout
)

// DecodeState is the decoder's state
type DecodeState int

const (
	DecodeStopped DecodeState = iota
	DecodeRunning
	DecodeComplete
)

func (s DecodeState) String() string {
	switch s {
	case DecodeStopped:
		return "stopped"
	case DecodeRunning:
		return "running"
	case DecodeComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// OutputState is the output device's state
type OutputState int

const (
	OutputStopped OutputState = iota
	OutputRunning
)

func (s OutputState) String() string {
	if s == OutputRunning {
		return "running"
	}
	return "stopped"
}

// StreamShared is the state guarded by the stream lock
type StreamShared struct {
	State         StreamState
	Disconnect    DisconnectReason
	Header        []byte
	HeaderSent    bool
	BytesReceived uint64
	Buffer        *audio.RingBuffer
}

// OutputShared is the state guarded by the output lock.
// Decode state lives here because the decoder and output hand off under it.
type OutputShared struct {
	State             OutputState
	Decode            DecodeState
	TrackStarted      bool
	GainLeft          uint32
	GainRight         uint32
	MaxSampleRate     uint32
	FramesPlayed      uint32
	CurrentSampleRate uint32
	Buffer            *audio.RingBuffer

	// NewTrack is set by the decoder when it writes the first frames of a
	// track; the output raises TrackStarted once TrackBoundary bytes of the
	// previous track have been played.
	NewTrack      bool
	TrackBoundary int
}

// Cell holds a value behind a mutex. All access goes through Update or View,
// so the lock can never leak past the callback.
type Cell[T any] struct {
	mu sync.Mutex
	v  T
}

// NewCell wraps v in a cell
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// Update runs fn with the lock held. fn must not block or perform I/O.
func (c *Cell[T]) Update(fn func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.v)
}

// View runs fn with the lock held and returns its result, which should be a
// copy: act on it only after View returns.
func View[T, R any](c *Cell[T], fn func(*T) R) R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(&c.v)
}

type (
	StreamCell = Cell[StreamShared]
	OutputCell = Cell[OutputShared]
)

// NewStreamCell creates the stream state with a buffer of bufferSize bytes
func NewStreamCell(bufferSize int) *StreamCell {
	return NewCell(StreamShared{Buffer: audio.NewRingBuffer(bufferSize)})
}

// NewOutputCell creates the output state with a buffer of bufferSize bytes
func NewOutputCell(bufferSize int, maxSampleRate uint32) *OutputCell {
	return NewCell(OutputShared{
		GainLeft:      audio.UnityGain,
		GainRight:     audio.UnityGain,
		MaxSampleRate: maxSampleRate,
		Buffer:        audio.NewRingBuffer(bufferSize),
	})
}

// FlushStream empties the stream buffer
func FlushStream(c *StreamCell) {
	c.Update(func(s *StreamShared) { s.Buffer.Flush() })
}

// FlushOutput empties the output buffer and forgets any pending track start
func FlushOutput(c *OutputCell) {
	c.Update(func(o *OutputShared) {
		o.Buffer.Flush()
		o.NewTrack = false
		o.TrackBoundary = 0
	})
}

// StatusSnapshot is the status reporter's private copy of shared state.
// It is only touched by the connection goroutine.
type StatusSnapshot struct {
	Jiffies           uint32
	StreamFull        uint32
	StreamSize        uint32
	BytesReceived     uint64
	OutputFull        uint32
	OutputSize        uint32
	FramesPlayed      uint32
	CurrentSampleRate uint32
	LastHeartbeat     uint32
	StreamState       StreamState
}

// stat builds a STAT message for event from the snapshot
func (s StatusSnapshot) stat(event string, serverTimestamp [4]byte) Stat {
	secs, millis := elapsed(s.FramesPlayed, s.CurrentSampleRate)
	return Stat{
		Event:                event,
		StreamBufferSize:     s.StreamSize,
		StreamBufferFullness: s.StreamFull,
		BytesReceived:        s.BytesReceived,
		Jiffies:              s.Jiffies,
		OutputBufferSize:     s.OutputSize,
		OutputBufferFullness: s.OutputFull,
		ElapsedSeconds:       secs,
		ElapsedMilliseconds:  millis,
		ServerTimestamp:      serverTimestamp,
	}
}
