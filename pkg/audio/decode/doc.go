// ABOUTME: Audio decoder package for the formats a controller can stream
// ABOUTME: Provides the Decoder interface and PCM, MP3 and FLAC implementations
// Package decode provides streaming audio decoders.
//
// Supports: PCM (8, 16, 24 and 32-bit, either byte order), MP3, FLAC
//
// Decoders pull encoded bytes from an io.Reader and return int32 samples
// in 24-bit range.
//
// Example:
//
//	decoder, err := decode.New(body, audio.Format{Codec: "mp3"})
//	samples, err := decoder.Decode()
package decode
