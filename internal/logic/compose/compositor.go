// Package compose turns one live source frame plus an optional decorative
// overlay into a single correctly-cropped, correctly-scaled, correctly-
// mirrored still image.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/Chandru0712/SelfieBooth/internal/camera"
	"github.com/Chandru0712/SelfieBooth/internal/debug"
	"github.com/Chandru0712/SelfieBooth/internal/frames"
	"github.com/Chandru0712/SelfieBooth/internal/logic/geometry"
)

// Capture error taxonomy.
var (
	ErrSourceUnavailable = errors.New("live source unavailable")
	ErrFrameAssetLoad    = errors.New("frame asset failed to load")
	ErrEncode            = errors.New("output encode failed")
	ErrBadOptions        = errors.New("invalid capture options")
)

// Options parameterizes one capture.
type Options struct {
	Zoom    float64 // digital zoom factor, >= 1; 0 means 1
	Filter  Filter  // tone transform for the photo layer
	FrameID string  // selected frame asset, "" or "none" for no frame
}

// Result is an encoded still image plus metadata. It is immutable once
// produced; the compositor retains nothing after returning it.
type Result struct {
	PNG     []byte
	Width   int
	Height  int
	FrameID string // "" when no frame was applied
	TakenAt time.Time
}

// Compositor produces capture results from a live source and the frame
// catalog. It holds no per-capture state: the output surface is a private,
// single-use resource per call.
type Compositor struct {
	catalog   *frames.Catalog
	fallbackW int
	fallbackH int
	maxZoom   float64
}

// New creates a compositor. fallbackW/fallbackH are the target dimensions
// of last resort, used when neither a frame asset nor the source reports a
// native size.
func New(catalog *frames.Catalog, fallbackW, fallbackH int, maxZoom float64) *Compositor {
	return &Compositor{
		catalog:   catalog,
		fallbackW: fallbackW,
		fallbackH: fallbackH,
		maxZoom:   maxZoom,
	}
}

// Capture produces one still:
//
//  1. obtain a capture-safe drawable from the source (for remote sources a
//     freshly fetched snapshot, never the live preview resource)
//  2. resolve target dimensions: selected frame's native size, else the
//     drawable's own size, else the configured fallback
//  3. cover-fit crop, digital zoom, draw (mirrored iff the source is a
//     self-facing local camera), filter the photo layer
//  4. stretch the frame artwork to exactly the target size on top
//  5. encode losslessly
func (c *Compositor) Capture(ctx context.Context, src camera.Source, opts Options) (*Result, error) {
	zoom := opts.Zoom
	if zoom == 0 {
		zoom = 1
	}
	if zoom < 1 || math.IsNaN(zoom) || math.IsInf(zoom, 0) || (c.maxZoom > 0 && zoom > c.maxZoom) {
		return nil, fmt.Errorf("%w: zoom %g out of range [1, %g]", ErrBadOptions, zoom, c.maxZoom)
	}
	if !opts.Filter.Valid() {
		return nil, fmt.Errorf("%w: unknown filter %q", ErrBadOptions, opts.Filter)
	}
	frameID := opts.FrameID
	if frameID == frames.NoFrameID {
		frameID = ""
	}
	if frameID != "" {
		if _, ok := c.catalog.Get(frameID); !ok {
			return nil, fmt.Errorf("%w: unknown frame %q", ErrBadOptions, frameID)
		}
	}

	drawable, err := src.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	srcW := drawable.Bounds().Dx()
	srcH := drawable.Bounds().Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, fmt.Errorf("%w: drawable reports %dx%d", ErrSourceUnavailable, srcW, srcH)
	}

	tgtW, tgtH := srcW, srcH
	if frameID != "" {
		dims, err := c.catalog.Dimensions(ctx, frameID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFrameAssetLoad, err)
		}
		tgtW, tgtH = dims.Width, dims.Height
	}
	if tgtW <= 0 || tgtH <= 0 {
		tgtW, tgtH = c.fallbackW, c.fallbackH
	}
	debug.Verbose("Capture target %dx%d from source %dx%d (frame: %q, zoom: %g, filter: %q)",
		tgtW, tgtH, srcW, srcH, frameID, zoom, opts.Filter)

	crop, err := geometry.CoverCrop(srcW, srcH, tgtW, tgtH)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOptions, err)
	}
	crop, err = crop.Zoom(zoom)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOptions, err)
	}
	debug.Crop(crop.X, crop.Y, crop.W, crop.H)

	out := image.NewRGBA(image.Rect(0, 0, tgtW, tgtH))
	srcRect := image.Rect(
		int(math.Round(crop.X)),
		int(math.Round(crop.Y)),
		int(math.Round(crop.X+crop.W)),
		int(math.Round(crop.Y+crop.H)),
	)
	// The crop aspect equals the target aspect by construction, so this
	// scale fills the surface completely with no letterboxing.
	xdraw.CatmullRom.Scale(out, out.Bounds(), drawable, srcRect, xdraw.Src, nil)

	if src.Mirrored() {
		mirrorHorizontal(out)
	}
	applyFilter(out, opts.Filter)

	if frameID != "" {
		art, err := c.catalog.Artwork(ctx, frameID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFrameAssetLoad, err)
		}
		// Frame art is pre-authored for its own canvas: stretch to exactly
		// the target size, never cover-crop, never filter.
		xdraw.CatmullRom.Scale(out, out.Bounds(), art, art.Bounds(), xdraw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	debug.Shot(tgtW, tgtH, frameID)
	return &Result{
		PNG:     buf.Bytes(),
		Width:   tgtW,
		Height:  tgtH,
		FrameID: frameID,
		TakenAt: time.Now(),
	}, nil
}

// mirrorHorizontal flips the image in place around its vertical axis, so
// the output matches what the user expects from a mirror-like preview.
func mirrorHorizontal(img *image.RGBA) {
	bounds := img.Bounds()
	w := bounds.Dx()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y) : img.PixOffset(bounds.Min.X, y)+w*4]
		for left, right := 0, w-1; left < right; left, right = left+1, right-1 {
			li, ri := left*4, right*4
			row[li], row[ri] = row[ri], row[li]
			row[li+1], row[ri+1] = row[ri+1], row[li+1]
			row[li+2], row[ri+2] = row[ri+2], row[li+2]
			row[li+3], row[ri+3] = row[ri+3], row[li+3]
		}
	}
}
