// ABOUTME: Interfaces for the subsystems the SlimProto core drives
// ABOUTME: Codec selection and the media stream fetcher
package slimproto

import "net"

// CodecOpener prepares the decoder for the next stream. Arguments are the
// raw strm bytes; unsupported values are the implementation's concern.
type CodecOpener interface {
	Open(format, sampleSize, sampleRate, channels, endianness byte)
}

// Streamer fetches media from the server named in a strm command and feeds
// the stream buffer. Both calls must return promptly; fetching happens elsewhere.
type Streamer interface {
	Connect(ip net.IP, port uint16, header []byte)
	Disconnect()
}
