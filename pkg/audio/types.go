// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, the output frame layout and sample conversions
package audio

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// OutputChannels is the channel count of the shared output buffer
	OutputChannels = 2
	// FrameBytes is one interleaved s16le stereo frame in the output buffer
	FrameBytes = OutputChannels * 2

	// UnityGain is 1.0 in the controller's 16.16 fixed point gain format
	UnityGain = 0x10000
)

// Format describes a decoded stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
	BigEndian  bool
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// ApplyGain scales a 16-bit sample by a 16.16 fixed point gain, clipping at full scale
func ApplyGain(sample int16, gain uint32) int16 {
	if gain == UnityGain {
		return sample
	}
	scaled := (int64(sample) * int64(gain)) >> 16
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}
