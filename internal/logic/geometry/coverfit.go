package geometry

import "fmt"

// Rect is a floating-point rectangle inside a source image,
// expressed in source pixel coordinates.
type Rect struct {
	X float64 // left offset
	Y float64 // top offset
	W float64 // width
	H float64 // height
}

// Ratio returns the width/height ratio of the rectangle.
func (r Rect) Ratio() float64 {
	return r.W / r.H
}

// Within reports whether the rectangle lies entirely inside a
// width x height source, with a small tolerance for float rounding.
func (r Rect) Within(width, height float64) bool {
	const eps = 1e-6
	return r.X >= -eps && r.Y >= -eps &&
		r.X+r.W <= width+eps && r.Y+r.H <= height+eps
}

// CoverCrop computes the centered crop of a srcW x srcH source whose aspect
// ratio equals exactly tgtW/tgtH, trimming even margins from the longer axis.
// This is the cover-fit policy: the crop always fills the full target with
// source content, never letterboxes, and never crops from a corner.
//
// If the source is relatively wider than the target, the full source height
// is kept and the width is trimmed; otherwise the full width is kept and the
// height is trimmed.
func CoverCrop(srcW, srcH, tgtW, tgtH int) (Rect, error) {
	if srcW <= 0 || srcH <= 0 {
		return Rect{}, fmt.Errorf("source dimensions must be positive, got %dx%d", srcW, srcH)
	}
	if tgtW <= 0 || tgtH <= 0 {
		return Rect{}, fmt.Errorf("target dimensions must be positive, got %dx%d", tgtW, tgtH)
	}

	sw := float64(srcW)
	sh := float64(srcH)
	sourceRatio := sw / sh
	targetRatio := float64(tgtW) / float64(tgtH)

	var crop Rect
	if sourceRatio > targetRatio {
		// Source relatively wider: keep full height, trim width evenly.
		crop.H = sh
		crop.W = sh * targetRatio
		crop.X = (sw - crop.W) / 2
		crop.Y = 0
	} else {
		// Source relatively taller (or equal): keep full width, trim height.
		crop.W = sw
		crop.H = sw / targetRatio
		crop.X = 0
		crop.Y = (sh - crop.H) / 2
	}

	return crop, nil
}

// Zoom shrinks the rectangle by a digital zoom factor z >= 1, re-centering
// the smaller region within the original rectangle. z = 1 is a no-op.
func (r Rect) Zoom(z float64) (Rect, error) {
	if z < 1 {
		return Rect{}, fmt.Errorf("zoom factor must be >= 1, got %g", z)
	}
	if z == 1 {
		return r, nil
	}

	zw := r.W / z
	zh := r.H / z
	return Rect{
		X: r.X + (r.W-zw)/2,
		Y: r.Y + (r.H-zh)/2,
		W: zw,
		H: zh,
	}, nil
}
