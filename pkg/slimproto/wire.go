// ABOUTME: SlimProto wire codec
// ABOUTME: Big-endian integer packing and fixed-layout message encode/decode
package slimproto

import (
	"encoding/binary"
	"errors"
	"net"
)

const (
	// Port is the controller's SlimProto TCP port, also used for UDP discovery
	Port = 3483

	heloFixedLen   = 36 // deviceid..lang, excluding the 8-byte header
	statPayloadLen = 53
	strmFixedLen   = 24 // command..server_ip, excluding the opcode
	audgPayloadLen = 18

	// signalStrengthWired is reported by players without a wireless interface
	signalStrengthWired = 0xffff

	// heloReconnect is set in the wlan_channellist field after the first connection
	heloReconnect = 0x4000
)

// ErrShortPayload is returned when an inbound payload is shorter than its fixed layout
var ErrShortPayload = errors.New("slimproto: payload shorter than fixed layout")

// PackU32 writes v into b[0:4] in network byte order
func PackU32(b []byte, v uint32) {
	binary.BigEndian.PutUint32(b, v)
}

// PackU16 writes v into b[0:2] in network byte order
func PackU16(b []byte, v uint16) {
	binary.BigEndian.PutUint16(b, v)
}

// UnpackU32 reads a network byte order uint32 from b[0:4]
func UnpackU32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// UnpackU16 reads a network byte order uint16 from b[0:2]
func UnpackU16(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}

// Outbound is a message sent from the player to the controller
type Outbound interface {
	// Opcode returns the 4-byte ASCII message tag
	Opcode() string
	payload() []byte
}

// Helo is the handshake sent after every successful connect
type Helo struct {
	DeviceID      uint8
	Revision      uint8
	MAC           [6]byte
	UUID          [16]byte
	Reconnect     bool
	BytesReceived uint64
	Language      [2]byte
	Capabilities  string
}

func (Helo) Opcode() string { return "HELO" }

func (h Helo) payload() []byte {
	b := make([]byte, heloFixedLen, heloFixedLen+len(h.Capabilities))
	b[0] = h.DeviceID
	b[1] = h.Revision
	copy(b[2:8], h.MAC[:])
	copy(b[8:24], h.UUID[:])
	if h.Reconnect {
		PackU16(b[24:26], heloReconnect)
	}
	PackU32(b[26:30], uint32(h.BytesReceived>>32))
	PackU32(b[30:34], uint32(h.BytesReceived))
	copy(b[34:36], h.Language[:])
	return append(b, h.Capabilities...)
}

// Stat reports a playback or buffer event to the controller
type Stat struct {
	Event                string // exactly 4 ASCII bytes, e.g. "STMt"
	StreamBufferSize     uint32
	StreamBufferFullness uint32
	BytesReceived        uint64
	Jiffies              uint32
	OutputBufferSize     uint32
	OutputBufferFullness uint32
	ElapsedSeconds       uint32
	ElapsedMilliseconds  uint32
	// ServerTimestamp is echoed in the controller's own byte order
	ServerTimestamp [4]byte
}

func (Stat) Opcode() string { return "STAT" }

func (s Stat) payload() []byte {
	b := make([]byte, statPayloadLen)
	copy(b[0:4], s.Event)
	// num_crlf, mas_initialized, mas_mode stay zero
	PackU32(b[7:11], s.StreamBufferSize)
	PackU32(b[11:15], s.StreamBufferFullness)
	PackU32(b[15:19], uint32(s.BytesReceived>>32))
	PackU32(b[19:23], uint32(s.BytesReceived))
	PackU16(b[23:25], signalStrengthWired)
	PackU32(b[25:29], s.Jiffies)
	PackU32(b[29:33], s.OutputBufferSize)
	PackU32(b[33:37], s.OutputBufferFullness)
	PackU32(b[37:41], s.ElapsedSeconds)
	// voltage b[41:43]
	PackU32(b[43:47], s.ElapsedMilliseconds)
	copy(b[47:51], s.ServerTimestamp[:])
	// error_code b[51:53]
	return b
}

// Dsco tells the controller the stream connection closed
type Dsco struct {
	Reason DisconnectReason
}

func (Dsco) Opcode() string { return "DSCO" }

func (d Dsco) payload() []byte {
	return []byte{byte(d.Reason)}
}

// Resp forwards the HTTP response header block of the current stream
type Resp struct {
	Header []byte
}

func (Resp) Opcode() string { return "RESP" }

func (r Resp) payload() []byte {
	return r.Header
}

// Strm is the decoded stream control command
type Strm struct {
	Command          byte
	Autostart        byte
	Format           byte
	PCMSampleSize    byte
	PCMSampleRate    byte
	PCMChannels      byte
	PCMEndianness    byte
	Threshold        byte
	SpdifEnable      byte
	TransitionPeriod byte
	TransitionType   byte
	Flags            byte
	OutputThreshold  byte
	Slaves           byte
	// ReplayGain doubles as the timing probe for 't'; kept in wire order
	ReplayGain [4]byte
	ServerPort uint16
	ServerIP   net.IP
	Header     []byte
}

// DecodeStrm interprets a strm payload (opcode already stripped)
func DecodeStrm(p []byte) (Strm, error) {
	if len(p) < strmFixedLen {
		return Strm{}, ErrShortPayload
	}
	s := Strm{
		Command:          p[0],
		Autostart:        p[1],
		Format:           p[2],
		PCMSampleSize:    p[3],
		PCMSampleRate:    p[4],
		PCMChannels:      p[5],
		PCMEndianness:    p[6],
		Threshold:        p[7],
		SpdifEnable:      p[8],
		TransitionPeriod: p[9],
		TransitionType:   p[10],
		Flags:            p[11],
		OutputThreshold:  p[12],
		Slaves:           p[13],
		ServerPort:       UnpackU16(p[18:20]),
		ServerIP:         net.IPv4(p[20], p[21], p[22], p[23]).To4(),
	}
	copy(s.ReplayGain[:], p[14:18])
	if len(p) > strmFixedLen {
		s.Header = append([]byte(nil), p[strmFixedLen:]...)
	}
	return s, nil
}

// Audg is the decoded gain command. Gains are 16.16 fixed point.
type Audg struct {
	OldGainLeft  uint32
	OldGainRight uint32
	Adjust       byte
	Preamp       byte
	GainLeft     uint32
	GainRight    uint32
}

// DecodeAudg interprets an audg payload (opcode already stripped)
func DecodeAudg(p []byte) (Audg, error) {
	if len(p) < audgPayloadLen {
		return Audg{}, ErrShortPayload
	}
	return Audg{
		OldGainLeft:  UnpackU32(p[0:4]),
		OldGainRight: UnpackU32(p[4:8]),
		Adjust:       p[8],
		Preamp:       p[9],
		GainLeft:     UnpackU32(p[10:14]),
		GainRight:    UnpackU32(p[14:18]),
	}, nil
}

// elapsed converts a frame count to whole seconds and milliseconds of playback
func elapsed(frames, sampleRate uint32) (seconds, millis uint32) {
	if sampleRate == 0 {
		return 0, 0
	}
	return frames / sampleRate, uint32(uint64(frames) * 1000 / uint64(sampleRate))
}
