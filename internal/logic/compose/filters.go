package compose

import "image"

// Filter names a pure per-pixel tone transform applied to the photo layer
// during the draw. The frame overlay is never filtered.
type Filter string

const (
	FilterNone      Filter = ""
	FilterGrayscale Filter = "grayscale"
	FilterSepia     Filter = "sepia"
	FilterWarm      Filter = "warm"
	FilterCool      Filter = "cool"
)

// Filters lists the selectable filters in display order.
var Filters = []Filter{FilterNone, FilterGrayscale, FilterSepia, FilterWarm, FilterCool}

// Valid reports whether f is a known filter.
func (f Filter) Valid() bool {
	switch f {
	case FilterNone, FilterGrayscale, FilterSepia, FilterWarm, FilterCool:
		return true
	default:
		return false
	}
}

// applyFilter transforms the photo layer in place. FilterNone is a no-op.
func applyFilter(img *image.RGBA, f Filter) {
	if f == FilterNone {
		return
	}

	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		r := float64(pix[i])
		g := float64(pix[i+1])
		b := float64(pix[i+2])

		switch f {
		case FilterGrayscale:
			// Rec. 601 luma weights.
			y := 0.299*r + 0.587*g + 0.114*b
			r, g, b = y, y, y
		case FilterSepia:
			r, g, b =
				0.393*r+0.769*g+0.189*b,
				0.349*r+0.686*g+0.168*b,
				0.272*r+0.534*g+0.131*b
		case FilterWarm:
			// Mild saturation/contrast push toward reds.
			r = (r-128)*1.1 + 128 + 12
			g = (g-128)*1.05 + 128
			b = (b-128)*1.05 + 128 - 12
		case FilterCool:
			// Shift hue toward blues.
			r = r - 14
			b = b + 14
		}

		pix[i] = clampByte(r)
		pix[i+1] = clampByte(g)
		pix[i+2] = clampByte(b)
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
