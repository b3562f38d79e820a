package camera

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"sync"
	"time"

	// Snapshot endpoints serve JPEG; some IP camera apps fall back to PNG.
	_ "image/jpeg"
	_ "image/png"

	"github.com/Chandru0712/SelfieBooth/internal/debug"
)

// RemoteSource consumes a phone acting as an IP camera. It owns no device
// handle and no stream lifecycle: the preview is the {base}/video endpoint
// (an MJPEG resource the web layer proxies straight to the kiosk page), and
// each capture fetches one fresh still from {base}/shot.jpg.
type RemoteSource struct {
	previewURL  string
	snapshotURL string
	client      *http.Client

	mu       sync.Mutex
	width    int
	height   int
	released bool
}

// NewRemoteSource builds a remote source from the configured endpoints.
// Nothing is fetched here: acquisition cannot fail in remote mode, only
// individual captures can.
func NewRemoteSource(previewURL, snapshotURL string) *RemoteSource {
	return &RemoteSource{
		previewURL:  previewURL,
		snapshotURL: snapshotURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Frame fetches one fresh still from the snapshot endpoint. A cache-busting
// query parameter defeats any client or proxy cache: the continuously-
// refreshing preview resource is never used for capture because it does not
// expose a pixel-stable frame.
func (s *RemoteSource) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return nil, ErrReleased
	}

	url := s.snapshotURL + "?t=" + strconv.FormatInt(time.Now().UnixNano(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot endpoint returned %s", resp.Status)
	}

	img, format, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	debug.Verbose("Remote snapshot: %s %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())

	s.mu.Lock()
	s.width = img.Bounds().Dx()
	s.height = img.Bounds().Dy()
	s.mu.Unlock()

	return img, nil
}

// NativeSize returns the dimensions of the most recently fetched snapshot,
// or zeros before the first fetch.
func (s *RemoteSource) NativeSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Mirrored always returns false: a phone camera's framing is operator-
// controlled, not a selfie mirror.
func (s *RemoteSource) Mirrored() bool {
	return false
}

// Kind returns KindRemote.
func (s *RemoteSource) Kind() Kind {
	return KindRemote
}

// PreviewURL returns the continuous preview endpoint for proxying.
func (s *RemoteSource) PreviewURL() string {
	return s.previewURL
}

// Release marks the source released and drops idle connections.
// Safe to call twice.
func (s *RemoteSource) Release() error {
	s.mu.Lock()
	already := s.released
	s.released = true
	s.mu.Unlock()
	if !already {
		s.client.CloseIdleConnections()
		debug.Source("remote", "released")
	}
	return nil
}
