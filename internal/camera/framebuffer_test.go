package camera

import (
	"image"
	"testing"
)

func TestFrameBuffer_EmptyUntilFirstWrite(t *testing.T) {
	buf := newFrameBuffer()
	if _, _, ok := buf.read(); ok {
		t.Error("read on empty buffer should report not ok")
	}
	if buf.age() >= 0 {
		t.Error("age on empty buffer should be negative")
	}
}

func TestFrameBuffer_ReadReturnsLatest(t *testing.T) {
	buf := newFrameBuffer()
	first := image.NewRGBA(image.Rect(0, 0, 2, 2))
	second := image.NewRGBA(image.Rect(0, 0, 4, 4))

	buf.write(first)
	buf.write(second)

	frame, seq, ok := buf.read()
	if !ok {
		t.Fatal("expected a frame")
	}
	if frame != second {
		t.Error("read should return the most recent frame")
	}
	if seq != 2 {
		t.Errorf("seq = %d, want 2", seq)
	}
}

func TestFrameBuffer_ReadNewerSkipsSeenFrames(t *testing.T) {
	buf := newFrameBuffer()
	buf.write(image.NewRGBA(image.Rect(0, 0, 2, 2)))

	frame, seq, ok := buf.readNewer(0)
	if !ok || frame == nil {
		t.Fatal("first readNewer should deliver the frame")
	}

	if _, _, ok := buf.readNewer(seq); ok {
		t.Error("readNewer with current seq should report nothing new")
	}

	buf.write(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	if _, next, ok := buf.readNewer(seq); !ok || next != seq+1 {
		t.Errorf("readNewer after write: ok=%v seq=%d, want ok with seq %d", ok, next, seq+1)
	}
}
