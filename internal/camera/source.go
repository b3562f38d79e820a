package camera

import (
	"context"
	"errors"
	"image"
)

// Kind identifies the variant of a live source.
type Kind string

const (
	// KindLocal is a physically attached webcam owned by this process.
	KindLocal Kind = "local"
	// KindRemote is a phone/IP camera reached over HTTP.
	KindRemote Kind = "remote"
)

// Source is the capability shared by all live sources. The compositor only
// ever talks to this interface; it never branches on the concrete type.
type Source interface {
	// Frame returns a capture-safe still: for a local source the latest
	// grabbed frame, for a remote source a freshly fetched snapshot
	// (never the continuously-refreshing preview resource).
	Frame(ctx context.Context) (image.Image, error)

	// NativeSize returns the source's native pixel dimensions.
	// Both are zero when not yet known (remote source before first fetch).
	NativeSize() (width, height int)

	// Mirrored reports whether captures from this source should be
	// horizontally flipped. Only a self-facing local camera mirrors.
	Mirrored() bool

	// Kind returns the source variant.
	Kind() Kind

	// Release stops and discards the underlying device or connection.
	// It is idempotent.
	Release() error
}

// previewBuffered is implemented by sources that keep a live preview frame
// in memory (local capture loop).
type previewBuffered interface {
	PreviewFrame() (image.Image, uint64, bool)
}

// previewProxied is implemented by sources whose preview is an external
// stream the web layer should proxy instead of re-encoding.
type previewProxied interface {
	PreviewURL() string
}

// Camera error taxonomy. Callers classify with errors.Is; everything else
// that bubbles up from the device layer stays wrapped underneath.
var (
	ErrPermissionDenied = errors.New("camera access denied")
	ErrNoDevice         = errors.New("no camera device found")
	ErrDeviceBusy       = errors.New("camera device already in use")
	ErrConstraints      = errors.New("camera constraints unsatisfiable")
	ErrSurfaceTimeout   = errors.New("timed out waiting for first frame")
	ErrReleased         = errors.New("camera source released")
	ErrRemoteMode       = errors.New("operation not applicable to a remote source")
)
