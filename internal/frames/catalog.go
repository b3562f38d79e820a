// Package frames manages the decorative overlay assets drawn on top of
// captured photos: discovery from disk, category listings, and lazy
// resolution of each asset's native pixel dimensions.
package frames

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	"github.com/Chandru0712/SelfieBooth/internal/debug"
)

// Category is a closed enumeration of frame groupings.
type Category string

const (
	CategoryChildren Category = "children"
	CategoryAdult    Category = "adult"
	CategoryProverb  Category = "proverb"
	CategoryCollage  Category = "collage"
	CategoryNone     Category = "none"
)

// Categories lists every category in display order. CategoryNone is the
// implicit "no frame" grouping and holds only the sentinel.
var Categories = []Category{
	CategoryChildren,
	CategoryAdult,
	CategoryProverb,
	CategoryCollage,
	CategoryNone,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// NoFrameID identifies the "no frame" sentinel present in every listing.
// Selecting it makes the capture target fall back to the source's native
// dimensions.
const NoFrameID = "none"

// Asset is a named decorative overlay. Its native pixel dimensions are not
// part of the struct: they are only known after the image is decoded, so
// they resolve asynchronously through Catalog.Dimensions.
type Asset struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Path     string   `json:"-"`
}

// NoFrame is the sentinel entry included in every category listing.
var NoFrame = Asset{ID: NoFrameID, Name: "No frame", Category: CategoryNone}

// Dimensions is an asset's native pixel size.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// dimFlight is a single-flight memoization slot for one asset's dimensions.
type dimFlight struct {
	ready chan struct{}
	dims  Dimensions
	err   error
}

// artFlight is the equivalent slot for fully decoded artwork.
type artFlight struct {
	ready chan struct{}
	img   image.Image
	err   error
}

// Catalog indexes the frame assets found under a directory tree laid out
// as <dir>/<category>/<name>.png.
type Catalog struct {
	assets     map[string]Asset
	byCategory map[Category][]Asset

	mu   sync.Mutex
	dims map[string]*dimFlight
	art  map[string]*artFlight
}

// NewCatalog scans the directory tree and indexes the assets. Unknown
// subdirectories and non-image files are skipped. A missing directory
// yields an empty (but usable) catalog: every listing still carries the
// "no frame" sentinel.
func NewCatalog(dir string) (*Catalog, error) {
	c := &Catalog{
		assets:     make(map[string]Asset),
		byCategory: make(map[Category][]Asset),
		dims:       make(map[string]*dimFlight),
		art:        make(map[string]*artFlight),
	}

	for _, cat := range Categories {
		if cat == CategoryNone {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(dir, string(cat)))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("scan frames category %s: %w", cat, err)
		}

		var found []Asset
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
				continue
			}
			base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			asset := Asset{
				ID:       string(cat) + "/" + base,
				Name:     strings.ReplaceAll(base, "_", " "),
				Category: cat,
				Path:     filepath.Join(dir, string(cat), entry.Name()),
			}
			found = append(found, asset)
			c.assets[asset.ID] = asset
		}
		sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
		c.byCategory[cat] = found
		debug.Verbose("Frames category %s: %d assets", cat, len(found))
	}

	debug.Info("Frame catalog loaded: %d assets", len(c.assets))
	return c, nil
}

// List returns the assets of a category plus the "no frame" sentinel,
// which every listing always includes.
func (c *Catalog) List(cat Category) []Asset {
	real := c.byCategory[cat]
	out := make([]Asset, 0, len(real)+1)
	out = append(out, real...)
	out = append(out, NoFrame)
	return out
}

// DefaultSelection returns the asset selected when a category is entered:
// the first real asset, or the sentinel when the category is empty.
func (c *Catalog) DefaultSelection(cat Category) Asset {
	if real := c.byCategory[cat]; len(real) > 0 {
		return real[0]
	}
	return NoFrame
}

// Get looks up an asset by id. The empty id and NoFrameID both resolve to
// the sentinel.
func (c *Catalog) Get(id string) (Asset, bool) {
	if id == "" || id == NoFrameID {
		return NoFrame, true
	}
	asset, ok := c.assets[id]
	return asset, ok
}

// Dimensions resolves an asset's native pixel size by decoding the image
// header. The result is memoized per asset id and resolution is single-
// flight: concurrent callers for the same id share one decode. Failures
// are not cached, so a later call can retry.
func (c *Catalog) Dimensions(ctx context.Context, id string) (Dimensions, error) {
	asset, ok := c.Get(id)
	if !ok {
		return Dimensions{}, fmt.Errorf("unknown frame asset %q", id)
	}
	if asset.ID == NoFrameID {
		return Dimensions{}, fmt.Errorf("the no-frame sentinel has no native dimensions")
	}

	c.mu.Lock()
	flight, running := c.dims[id]
	if !running {
		flight = &dimFlight{ready: make(chan struct{})}
		c.dims[id] = flight
		go c.resolveDims(asset, flight)
	}
	c.mu.Unlock()

	select {
	case <-flight.ready:
	case <-ctx.Done():
		return Dimensions{}, ctx.Err()
	}
	return flight.dims, flight.err
}

func (c *Catalog) resolveDims(asset Asset, flight *dimFlight) {
	defer close(flight.ready)

	f, err := os.Open(asset.Path)
	if err != nil {
		flight.err = fmt.Errorf("open frame %s: %w", asset.ID, err)
	} else {
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			flight.err = fmt.Errorf("decode frame %s: %w", asset.ID, err)
		} else {
			flight.dims = Dimensions{Width: cfg.Width, Height: cfg.Height}
			debug.Verbose("Frame %s native size: %dx%d", asset.ID, cfg.Width, cfg.Height)
		}
	}

	if flight.err != nil {
		c.mu.Lock()
		delete(c.dims, asset.ID)
		c.mu.Unlock()
	}
}

// Artwork returns the fully decoded overlay image for compositing,
// memoized the same way as Dimensions.
func (c *Catalog) Artwork(ctx context.Context, id string) (image.Image, error) {
	asset, ok := c.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown frame asset %q", id)
	}
	if asset.ID == NoFrameID {
		return nil, fmt.Errorf("the no-frame sentinel has no artwork")
	}

	c.mu.Lock()
	flight, running := c.art[id]
	if !running {
		flight = &artFlight{ready: make(chan struct{})}
		c.art[id] = flight
		go c.resolveArt(asset, flight)
	}
	c.mu.Unlock()

	select {
	case <-flight.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return flight.img, flight.err
}

func (c *Catalog) resolveArt(asset Asset, flight *artFlight) {
	defer close(flight.ready)

	f, err := os.Open(asset.Path)
	if err != nil {
		flight.err = fmt.Errorf("open frame %s: %w", asset.ID, err)
	} else {
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			flight.err = fmt.Errorf("decode frame %s: %w", asset.ID, err)
		} else {
			flight.img = img
		}
	}

	if flight.err != nil {
		c.mu.Lock()
		delete(c.art, asset.ID)
		c.mu.Unlock()
	}
}
