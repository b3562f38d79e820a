package camera

import (
	"image"
	"sync"
	"time"
)

// frameBuffer holds the most recent decoded frame from the grab loop.
// The capture goroutine overwrites it at device speed; readers (preview
// streaming, the compositor) take whatever is newest. A sequence number
// lets readers skip frames they have already seen.
type frameBuffer struct {
	mu    sync.RWMutex
	frame image.Image
	seq   uint64
	stamp time.Time
}

func newFrameBuffer() *frameBuffer {
	return &frameBuffer{}
}

// write stores a new frame. Called only from the grab loop.
func (b *frameBuffer) write(frame image.Image) {
	b.mu.Lock()
	b.frame = frame
	b.seq++
	b.stamp = time.Now()
	b.mu.Unlock()
}

// read returns the latest frame and its sequence number.
// ok is false until the first frame has arrived.
func (b *frameBuffer) read() (frame image.Image, seq uint64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frame, b.seq, b.frame != nil
}

// readNewer returns the latest frame only if it is newer than lastSeen,
// avoiding redundant preview encodes.
func (b *frameBuffer) readNewer(lastSeen uint64) (frame image.Image, seq uint64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.frame == nil || b.seq <= lastSeen {
		return nil, lastSeen, false
	}
	return b.frame, b.seq, true
}

// age returns how old the latest frame is, or a negative duration
// if no frame has arrived yet.
func (b *frameBuffer) age() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.frame == nil {
		return -1
	}
	return time.Since(b.stamp)
}
