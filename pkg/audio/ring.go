// ABOUTME: Byte ring buffer shared between the streaming, decode and output stages
// ABOUTME: Not safe for concurrent use; callers hold the owning state lock
package audio

// RingBuffer is a fixed-capacity FIFO of bytes
type RingBuffer struct {
	buffer   []byte
	readPos  int
	writePos int
	count    int
}

// NewRingBuffer creates a ring buffer with given capacity in bytes
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{buffer: make([]byte, capacity)}
}

// Write copies as much of p as fits and returns the number of bytes stored
func (rb *RingBuffer) Write(p []byte) int {
	written := 0
	for written < len(p) && rb.count < len(rb.buffer) {
		end := len(rb.buffer)
		if rb.readPos > rb.writePos || rb.count == len(rb.buffer) {
			end = rb.readPos
		}
		n := copy(rb.buffer[rb.writePos:end], p[written:])
		if n == 0 {
			break
		}
		rb.writePos = (rb.writePos + n) % len(rb.buffer)
		rb.count += n
		written += n
	}
	return written
}

// Read moves up to len(p) bytes out of the buffer
func (rb *RingBuffer) Read(p []byte) int {
	read := 0
	for read < len(p) && rb.count > 0 {
		end := len(rb.buffer)
		if rb.writePos > rb.readPos {
			end = rb.writePos
		}
		n := copy(p[read:], rb.buffer[rb.readPos:end])
		rb.readPos = (rb.readPos + n) % len(rb.buffer)
		rb.count -= n
		read += n
	}
	return read
}

// Used returns the number of buffered bytes
func (rb *RingBuffer) Used() int {
	return rb.count
}

// Free returns the number of bytes that can be written
func (rb *RingBuffer) Free() int {
	return len(rb.buffer) - rb.count
}

// Size returns the capacity
func (rb *RingBuffer) Size() int {
	return len(rb.buffer)
}

// Flush discards all buffered bytes
func (rb *RingBuffer) Flush() {
	rb.readPos = 0
	rb.writePos = 0
	rb.count = 0
}
