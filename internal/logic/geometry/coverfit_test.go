package geometry

import (
	"math"
	"testing"
)

const epsilon = 1e-9 // tolerance for float comparisons (pixels / ratios)

func TestCoverCrop_InvalidDimensions(t *testing.T) {
	cases := []struct {
		name                   string
		srcW, srcH, tgtW, tgtH int
	}{
		{"zero_source_width", 0, 1080, 1080, 1920},
		{"zero_source_height", 1920, 0, 1080, 1920},
		{"zero_target_width", 1920, 1080, 0, 1920},
		{"zero_target_height", 1920, 1080, 1080, 0},
		{"negative_source", -1920, 1080, 1080, 1920},
		{"negative_target", 1920, 1080, 1080, -1920},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := CoverCrop(tc.srcW, tc.srcH, tc.tgtW, tc.tgtH); err == nil {
				t.Error("expected error for non-positive dimension, got nil")
			}
		})
	}
}

// Landscape 1920x1080 source into a portrait 1080x1920 target:
// full height kept, width trimmed to 1080*(1080/1920) = 607.5, centered.
func TestCoverCrop_WideSourcePortraitTarget(t *testing.T) {
	crop, err := CoverCrop(1920, 1080, 1080, 1920)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantW := 1080.0 * (1080.0 / 1920.0)
	if math.Abs(crop.W-wantW) > epsilon {
		t.Errorf("crop.W = %v, want %v", crop.W, wantW)
	}
	if crop.H != 1080 {
		t.Errorf("crop.H = %v, want full source height 1080", crop.H)
	}
	if math.Abs(crop.X-(1920-wantW)/2) > epsilon {
		t.Errorf("crop.X = %v, want centered %v", crop.X, (1920-wantW)/2)
	}
	if crop.Y != 0 {
		t.Errorf("crop.Y = %v, want 0", crop.Y)
	}
}

// Portrait 1080x1920 source into a landscape target: full width kept.
func TestCoverCrop_TallSourceLandscapeTarget(t *testing.T) {
	crop, err := CoverCrop(1080, 1920, 1920, 1080)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if crop.W != 1080 {
		t.Errorf("crop.W = %v, want full source width 1080", crop.W)
	}
	wantH := 1080.0 / (1920.0 / 1080.0)
	if math.Abs(crop.H-wantH) > epsilon {
		t.Errorf("crop.H = %v, want %v", crop.H, wantH)
	}
	if crop.X != 0 {
		t.Errorf("crop.X = %v, want 0", crop.X)
	}
	if math.Abs(crop.Y-(1920-wantH)/2) > epsilon {
		t.Errorf("crop.Y = %v, want centered %v", crop.Y, (1920-wantH)/2)
	}
}

// When target aspect equals source aspect, the crop is the full source frame.
func TestCoverCrop_EqualAspect_NoOp(t *testing.T) {
	cases := []struct {
		name                   string
		srcW, srcH, tgtW, tgtH int
	}{
		{"identical", 1920, 1080, 1920, 1080},
		{"scaled_down", 1920, 1080, 960, 540},
		{"scaled_up", 640, 480, 1280, 960},
		{"square", 512, 512, 100, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			crop, err := CoverCrop(tc.srcW, tc.srcH, tc.tgtW, tc.tgtH)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := Rect{0, 0, float64(tc.srcW), float64(tc.srcH)}
			if math.Abs(crop.X-want.X) > epsilon || math.Abs(crop.Y-want.Y) > epsilon ||
				math.Abs(crop.W-want.W) > epsilon || math.Abs(crop.H-want.H) > epsilon {
				t.Errorf("crop = %+v, want full source %+v", crop, want)
			}
		})
	}
}

// Property: for any positive dimensions the crop ratio equals the target
// ratio and the crop lies inside the source.
func TestCoverCrop_RatioAndBoundsProperty(t *testing.T) {
	sources := [][2]int{{1920, 1080}, {1080, 1920}, {640, 480}, {2560, 1440}, {3, 7}, {4000, 50}}
	targets := [][2]int{{1080, 1920}, {1920, 1080}, {1000, 1000}, {799, 601}, {1, 3}}

	for _, s := range sources {
		for _, tgt := range targets {
			crop, err := CoverCrop(s[0], s[1], tgt[0], tgt[1])
			if err != nil {
				t.Fatalf("CoverCrop(%v, %v): %v", s, tgt, err)
			}

			wantRatio := float64(tgt[0]) / float64(tgt[1])
			if math.Abs(crop.Ratio()-wantRatio) > 1e-9 {
				t.Errorf("CoverCrop(%v, %v): ratio %v, want %v", s, tgt, crop.Ratio(), wantRatio)
			}
			if !crop.Within(float64(s[0]), float64(s[1])) {
				t.Errorf("CoverCrop(%v, %v): crop %+v extends outside source", s, tgt, crop)
			}
			// Center crop: even margins on the trimmed axis.
			leftMargin := crop.X
			rightMargin := float64(s[0]) - crop.X - crop.W
			topMargin := crop.Y
			bottomMargin := float64(s[1]) - crop.Y - crop.H
			if math.Abs(leftMargin-rightMargin) > 1e-9 {
				t.Errorf("CoverCrop(%v, %v): uneven horizontal margins %v vs %v", s, tgt, leftMargin, rightMargin)
			}
			if math.Abs(topMargin-bottomMargin) > 1e-9 {
				t.Errorf("CoverCrop(%v, %v): uneven vertical margins %v vs %v", s, tgt, topMargin, bottomMargin)
			}
		}
	}
}

func TestZoom_One_NoOp(t *testing.T) {
	crop, _ := CoverCrop(1920, 1080, 1080, 1920)
	zoomed, err := crop.Zoom(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zoomed != crop {
		t.Errorf("zoom 1 changed the rect: %+v -> %+v", crop, zoomed)
	}
}

func TestZoom_BelowOne_Rejected(t *testing.T) {
	crop, _ := CoverCrop(1920, 1080, 1920, 1080)
	for _, z := range []float64{0, 0.5, 0.999, -2} {
		if _, err := crop.Zoom(z); err == nil {
			t.Errorf("zoom %g: expected error, got nil", z)
		}
	}
}

// Property: zoom z shrinks each dimension by exactly 1/z and keeps the
// center identical to the unzoomed crop.
func TestZoom_ShrinkAndCenterProperty(t *testing.T) {
	crop, _ := CoverCrop(1920, 1080, 1080, 1920)
	zooms := []float64{1.5, 2, 3, 4.5}

	for _, z := range zooms {
		zoomed, err := crop.Zoom(z)
		if err != nil {
			t.Fatalf("zoom %g: %v", z, err)
		}

		if math.Abs(zoomed.W-crop.W/z) > epsilon {
			t.Errorf("zoom %g: W = %v, want %v", z, zoomed.W, crop.W/z)
		}
		if math.Abs(zoomed.H-crop.H/z) > epsilon {
			t.Errorf("zoom %g: H = %v, want %v", z, zoomed.H, crop.H/z)
		}

		origCX := crop.X + crop.W/2
		origCY := crop.Y + crop.H/2
		zoomCX := zoomed.X + zoomed.W/2
		zoomCY := zoomed.Y + zoomed.H/2
		if math.Abs(origCX-zoomCX) > epsilon || math.Abs(origCY-zoomCY) > epsilon {
			t.Errorf("zoom %g: center moved from (%v,%v) to (%v,%v)", z, origCX, origCY, zoomCX, zoomCY)
		}

		// A zoomed crop is still inside the original crop, hence the source.
		if zoomed.X < crop.X || zoomed.Y < crop.Y ||
			zoomed.X+zoomed.W > crop.X+crop.W+epsilon ||
			zoomed.Y+zoomed.H > crop.Y+crop.H+epsilon {
			t.Errorf("zoom %g: zoomed rect %+v escapes original %+v", z, zoomed, crop)
		}
	}
}

func TestZoom_PreservesRatio(t *testing.T) {
	crop, _ := CoverCrop(2560, 1440, 1080, 1920)
	zoomed, err := crop.Zoom(2.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(zoomed.Ratio()-crop.Ratio()) > epsilon {
		t.Errorf("zoom changed aspect ratio: %v -> %v", crop.Ratio(), zoomed.Ratio())
	}
}
