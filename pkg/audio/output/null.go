// ABOUTME: Device-less audio output
// ABOUTME: Drains the source in real time so playback progresses without a sound card
package output

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// nullPeriod is how much audio the null output consumes per wakeup
const nullPeriod = 20 * time.Millisecond

// Null discards audio at the rate a real device would consume it
type Null struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewNull creates a new Null output
func NewNull() Output {
	return &Null{}
}

// Open starts draining src
func (n *Null) Open(sampleRate, channels int, src io.Reader) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid format: %dHz %d channels", sampleRate, channels)
	}
	n.Close()

	n.mu.Lock()
	defer n.mu.Unlock()
	n.stop = make(chan struct{})
	n.done = make(chan struct{})

	chunk := make([]byte, sampleRate*channels*2*int(nullPeriod/time.Millisecond)/1000)
	go n.drain(src, chunk, n.stop, n.done)
	return nil
}

func (n *Null) drain(src io.Reader, chunk []byte, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(nullPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		if _, err := io.ReadFull(src, chunk); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return
		}
	}
}

// Close stops draining and waits for the drain goroutine
func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stop != nil {
		close(n.stop)
		<-n.done
		n.stop = nil
	}
	return nil
}
