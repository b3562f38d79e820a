package camera

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/Chandru0712/SelfieBooth/internal/config"
	"github.com/Chandru0712/SelfieBooth/internal/debug"
)

// LocalSource is a live webcam opened through gocv. It owns the device
// exclusively: a background grab loop keeps the latest decoded frame in a
// buffer for preview and capture, and Release stops the loop and closes
// the device.
type LocalSource struct {
	deviceID int
	cap      *gocv.VideoCapture
	buf      *frameBuffer
	mirror   bool

	width  int
	height int

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// constraints carries the negotiated acquisition hints for a local device.
// A zero value means "no hints at all" (the minimal-constraints retry).
type constraints struct {
	Width  int
	Height int
	FPS    int
}

// idealConstraints builds the preferred constraint set from config:
// resolution ideally 1920x1080 (clamped by the configured max), frame
// rate ideally 60 with a floor of 30.
func idealConstraints(cfg *config.Config) constraints {
	c := constraints{
		Width:  cfg.Camera.IdealWidth,
		Height: cfg.Camera.IdealHeight,
		FPS:    cfg.Camera.IdealFPS,
	}
	if c.Width > cfg.Camera.MaxWidth {
		c.Width = cfg.Camera.MaxWidth
	}
	if c.Height > cfg.Camera.MaxHeight {
		c.Height = cfg.Camera.MaxHeight
	}
	return c
}

// openLocal opens the device, applies constraints, and waits for the first
// decodable frame before declaring the source ready. On warmup timeout the
// device is closed and an error surfaces; the caller decides whether to
// retry with minimal constraints.
func openLocal(ctx context.Context, deviceID int, cons constraints, mirror bool, warmup time.Duration) (*LocalSource, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, classifyOpenError(deviceID, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("device %d: %w", deviceID, ErrNoDevice)
	}

	if cons != (constraints{}) {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(cons.Width))
		cap.Set(gocv.VideoCaptureFrameHeight, float64(cons.Height))
		cap.Set(gocv.VideoCaptureFPS, float64(cons.FPS))

		gotW := int(cap.Get(gocv.VideoCaptureFrameWidth))
		gotH := int(cap.Get(gocv.VideoCaptureFrameHeight))
		debug.Verbose("Device %d negotiated %dx%d (asked %dx%d @ %d fps)",
			deviceID, gotW, gotH, cons.Width, cons.Height, cons.FPS)
		if gotW <= 0 || gotH <= 0 {
			cap.Close()
			return nil, fmt.Errorf("device %d rejected %dx%d: %w",
				deviceID, cons.Width, cons.Height, ErrConstraints)
		}
	}

	s := &LocalSource{
		deviceID: deviceID,
		cap:      cap,
		buf:      newFrameBuffer(),
		mirror:   mirror,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	// Warmup: the source is not ready until the device delivers a frame
	// with usable dimensions, bounded by the configured timeout.
	first, err := s.warmupFrame(ctx, warmup)
	if err != nil {
		s.closeDevice()
		return nil, err
	}
	bounds := first.Bounds()
	s.width = bounds.Dx()
	s.height = bounds.Dy()
	s.buf.write(first)

	go s.grabLoop()

	debug.Source("local", debug.Fmt("device %d, %dx%d", deviceID, s.width, s.height))
	return s, nil
}

// warmupFrame polls the device for the first decodable frame.
func (s *LocalSource) warmupFrame(ctx context.Context, timeout time.Duration) (image.Image, error) {
	deadline := time.Now().Add(timeout)
	mat := gocv.NewMat()
	defer mat.Close()

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.cap.Read(&mat) && !mat.Empty() {
			img, err := mat.ToImage()
			if err == nil && img.Bounds().Dx() > 0 && img.Bounds().Dy() > 0 {
				return img, nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil, fmt.Errorf("device %d after %v: %w", s.deviceID, timeout, ErrSurfaceTimeout)
}

// grabLoop reads frames at device speed into the buffer until stopped.
// Readers never touch the device directly.
func (s *LocalSource) grabLoop() {
	defer close(s.done)
	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		if !s.cap.Read(&mat) || mat.Empty() {
			debug.Trace("Device %d: empty read", s.deviceID)
			time.Sleep(20 * time.Millisecond)
			continue
		}
		img, err := mat.ToImage()
		if err != nil {
			debug.Trace("Device %d: frame decode failed: %v", s.deviceID, err)
			continue
		}
		s.buf.write(img)
	}
}

// Frame returns the latest grabbed frame. The buffer always holds a frame
// after a successful warmup, so this only fails once released.
func (s *LocalSource) Frame(ctx context.Context) (image.Image, error) {
	select {
	case <-s.stop:
		return nil, ErrReleased
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame, _, ok := s.buf.read()
	if !ok {
		return nil, fmt.Errorf("device %d: %w", s.deviceID, ErrSurfaceTimeout)
	}
	return frame, nil
}

// PreviewFrame returns the latest buffered frame for preview streaming.
func (s *LocalSource) PreviewFrame() (image.Image, uint64, bool) {
	return s.buf.read()
}

// PreviewFrameNewer returns the latest frame only if newer than lastSeen.
func (s *LocalSource) PreviewFrameNewer(lastSeen uint64) (image.Image, uint64, bool) {
	return s.buf.readNewer(lastSeen)
}

// NativeSize returns the negotiated frame dimensions.
func (s *LocalSource) NativeSize() (int, int) {
	return s.width, s.height
}

// Mirrored reports whether this source is a self-facing camera.
func (s *LocalSource) Mirrored() bool {
	return s.mirror
}

// Kind returns KindLocal.
func (s *LocalSource) Kind() Kind {
	return KindLocal
}

// Release stops the grab loop and closes the device. Safe to call twice.
func (s *LocalSource) Release() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
		err = s.closeDevice()
		debug.Source("local", debug.Fmt("device %d released", s.deviceID))
	})
	return err
}

func (s *LocalSource) closeDevice() error {
	if s.cap == nil {
		return nil
	}
	err := s.cap.Close()
	s.cap = nil
	return err
}

// classifyOpenError maps a device-open failure onto the camera error
// taxonomy. gocv surfaces backend messages as opaque strings, so this is
// a best-effort substring match with ErrNoDevice as the fallback.
func classifyOpenError(deviceID int, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized"):
		return fmt.Errorf("device %d: %w: %v", deviceID, ErrPermissionDenied, err)
	case strings.Contains(msg, "busy") || strings.Contains(msg, "in use"):
		return fmt.Errorf("device %d: %w: %v", deviceID, ErrDeviceBusy, err)
	default:
		return fmt.Errorf("device %d: %w: %v", deviceID, ErrNoDevice, err)
	}
}
