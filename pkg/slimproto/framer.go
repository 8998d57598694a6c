// ABOUTME: SlimProto transport framing
// ABOUTME: Inbound u16-length frames and outbound opcode+u32-length messages
package slimproto

import (
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the largest inbound frame accepted from the controller
const MaxFrameSize = 4096

// ErrFrameTooLarge is a fatal protocol violation; the connection must be dropped
var ErrFrameTooLarge = errors.New("slimproto: inbound frame too large")

// Message is one inbound controller message
type Message struct {
	Opcode  [4]byte
	Payload []byte
}

// Framer splits the controller byte stream into messages.
//
// Partial reads are kept across calls, so a read that fails with a
// deadline timeout can be retried without losing bytes.
type Framer struct {
	r      io.Reader
	length [2]byte
	buf    [MaxFrameSize]byte
	got    int
	expect int // -1 while the length prefix is incomplete
}

// NewFramer creates a framer reading from r
func NewFramer(r io.Reader) *Framer {
	return &Framer{r: r, expect: -1}
}

// Next blocks until a complete message has been read or r returns an error
func (f *Framer) Next() (Message, error) {
	for {
		if f.expect < 0 {
			n, err := f.r.Read(f.length[f.got:])
			f.got += n
			if f.got == len(f.length) {
				f.got = 0
				f.expect = int(UnpackU16(f.length[:]))
				if f.expect > MaxFrameSize {
					size := f.expect
					f.expect = -1
					return Message{}, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, MaxFrameSize)
				}
				if f.expect == 0 {
					f.expect = -1
				}
				continue
			}
			if err != nil {
				return Message{}, err
			}
			continue
		}

		n, err := f.r.Read(f.buf[f.got:f.expect])
		f.got += n
		if f.got == f.expect {
			msg := f.message()
			f.got = 0
			f.expect = -1
			return msg, nil
		}
		if err != nil {
			return Message{}, err
		}
	}
}

// message copies the completed frame out of the reusable buffer
func (f *Framer) message() Message {
	var msg Message
	frame := f.buf[:f.got]
	copy(msg.Opcode[:], frame)
	if len(frame) > len(msg.Opcode) {
		msg.Payload = append([]byte(nil), frame[len(msg.Opcode):]...)
	}
	return msg
}

// WriteMessage frames m as opcode, u32 length of the remainder, payload
func WriteMessage(w io.Writer, m Outbound) error {
	payload := m.payload()
	buf := make([]byte, 8+len(payload))
	copy(buf[0:4], m.Opcode())
	PackU32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	return writeFull(w, buf)
}

func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
