package icongen

import (
	"bytes"
	"fmt"
	"image"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// DefaultReferenceSize is the edge length, in SVG user units, the logo is
// authored at.
const DefaultReferenceSize = 64

// MaxIconSize is the largest edge an ICO directory entry can describe.
const MaxIconSize = 256

// Sizes are the edge lengths written into every container, ascending.
var Sizes = []int{16, 32, 48, 64, 128, 256}

// RasterOptions control how a source is parsed.
type RasterOptions struct {
	// ReferenceSize is the source edge length that maps to scale 1.
	// Zero takes the width of the viewBox.
	ReferenceSize float64

	// Strict rejects documents containing unsupported SVG elements
	// instead of skipping them.
	Strict bool
}

// Source is a parsed SVG document. It is not modified after ParseSource
// returns, so RenderAt may be called for several sizes in any order.
type Source struct {
	icon      *oksvg.SvgIcon
	reference float64
}

// ParseSource parses an SVG document once.
func ParseSource(data []byte, opts RasterOptions) (*Source, error) {
	mode := oksvg.WarnErrorMode
	if opts.Strict {
		mode = oksvg.StrictErrorMode
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		return nil, fmt.Errorf("%w: missing viewBox", ErrInvalidSource)
	}

	ref := opts.ReferenceSize
	if ref <= 0 {
		ref = icon.ViewBox.W
	}
	return &Source{icon: icon, reference: ref}, nil
}

// ReferenceSize returns the edge length that renders at scale 1.
func (s *Source) ReferenceSize() float64 { return s.reference }

// RenderAt rasterizes the source into a size×size image using a uniform
// scale of size/ReferenceSize anchored at the origin.
func (s *Source) RenderAt(size int) (*image.RGBA, error) {
	if size <= 0 || size > MaxIconSize {
		return nil, fmt.Errorf("%w: %dx%d", ErrAllocate, size, size)
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	scale := float64(size) / s.reference
	icon := *s.icon
	icon.Transform = rasterx.Identity.Scale(scale, scale)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	dasher := rasterx.NewDasher(size, size, scanner)
	icon.Draw(dasher, 1.0)
	return img, nil
}
