// Package booth contains the high-level capture flow: countdown,
// shutter, composition, persistence, and event fan-out to the kiosk UI.
package booth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Chandru0712/SelfieBooth/internal/camera"
	"github.com/Chandru0712/SelfieBooth/internal/debug"
	"github.com/Chandru0712/SelfieBooth/internal/logic/compose"
	"github.com/Chandru0712/SelfieBooth/internal/store"
)

// ErrCaptureBusy is returned when a capture is requested while another
// one is still running. The kiosk has one camera; captures never overlap.
var ErrCaptureBusy = errors.New("capture already in progress")

// Event is fanned out to connected kiosk UIs over the event hub.
type Event struct {
	Type      string `json:"type"` // countdown, shutter, review
	Remaining int    `json:"remaining,omitempty"`
	PhotoID   string `json:"photo_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Publisher receives booth events. The web hub implements this.
type Publisher interface {
	Publish(ev Event)
}

// SourceProvider hands out the active camera source, initializing it on
// first use. *camera.Manager satisfies this.
type SourceProvider interface {
	Initialize(ctx context.Context) (camera.Source, error)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ev Event)

func (f PublisherFunc) Publish(ev Event) { f(ev) }

// SnapRequest describes one capture.
type SnapRequest struct {
	SessionID string
	Zoom      float64
	Filter    compose.Filter
	FrameID   string
}

// Booth ties the camera manager, the compositor, and the record store
// together and serializes captures.
type Booth struct {
	manager    SourceProvider
	compositor *compose.Compositor
	records    *store.Store
	events     Publisher

	busy atomic.Bool
}

func New(m SourceProvider, c *compose.Compositor, s *store.Store, events Publisher) *Booth {
	if events == nil {
		events = PublisherFunc(func(Event) {})
	}
	return &Booth{
		manager:    m,
		compositor: c,
		records:    s,
		events:     events,
	}
}

// Snap performs one capture: grab a frame from the current source,
// compose it, persist it, and broadcast the review event. A second
// capture while one is running is rejected with ErrCaptureBusy.
// The review event is emitted on failure too, so the kiosk UI always
// leaves the countdown screen.
func (b *Booth) Snap(ctx context.Context, req SnapRequest) (*store.Photo, error) {
	if !b.busy.CompareAndSwap(false, true) {
		return nil, ErrCaptureBusy
	}
	defer b.busy.Store(false)

	debug.Section("Capture")
	src, err := b.manager.Initialize(ctx)
	if err != nil {
		b.review(req.SessionID, nil, err)
		return nil, fmt.Errorf("camera not ready: %w", err)
	}

	b.events.Publish(Event{Type: "shutter", SessionID: req.SessionID})

	result, err := b.compositor.Capture(ctx, src, compose.Options{
		Zoom:    req.Zoom,
		Filter:  req.Filter,
		FrameID: req.FrameID,
	})
	if err != nil {
		b.review(req.SessionID, nil, err)
		return nil, err
	}
	debug.Shot(result.Width, result.Height, result.FrameID)

	photo, err := b.records.SavePhoto(req.SessionID, result.PNG, store.PhotoMeta{
		FrameID: result.FrameID,
		Width:   result.Width,
		Height:  result.Height,
		TakenAt: result.TakenAt,
	})
	if err != nil {
		b.review(req.SessionID, nil, err)
		return nil, err
	}

	b.review(req.SessionID, photo, nil)
	return photo, nil
}

// Countdown broadcasts one tick per remaining second, then performs
// exactly one capture. Cancelling the context during the countdown
// aborts without capturing.
func (b *Booth) Countdown(ctx context.Context, seconds int, req SnapRequest) (*store.Photo, error) {
	if seconds < 0 {
		seconds = 0
	}
	debug.Section("Countdown")

	for remaining := seconds; remaining > 0; remaining-- {
		debug.Countdown(remaining)
		b.events.Publish(Event{Type: "countdown", Remaining: remaining, SessionID: req.SessionID})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return b.Snap(ctx, req)
}

// Busy reports whether a capture is currently running.
func (b *Booth) Busy() bool {
	return b.busy.Load()
}

func (b *Booth) review(sessionID string, photo *store.Photo, err error) {
	ev := Event{Type: "review", SessionID: sessionID}
	if photo != nil {
		ev.PhotoID = photo.ID
		ev.Width = photo.Width
		ev.Height = photo.Height
	}
	if err != nil {
		ev.Error = err.Error()
		debug.Error(err)
	}
	b.events.Publish(ev)
}
