// Package render turns logical pages into displayable bitmaps.
//
// The compositor is a pure function of its inputs: it holds no state and is
// safe to call from any goroutine as long as the pages themselves are.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/quireader/quire/document"
)

// Func renders an ordered set of logical pages into one bitmap with the
// given pixel height. Implementations composite pages left to right at
// equal height and preserve each page's aspect ratio.
type Func func(pages []document.Page, targetHeight int) (image.Image, error)

// ErrNoPages is returned when Compose is called with an empty page set.
var ErrNoPages = errors.New("render: no pages to compose")

var background = image.NewUniform(color.White)

// Compose is the default Func. Pages are scaled to targetHeight, laid out
// left to right and drawn over an opaque white ground. Raster sources often
// crop their white margins, and scaling can leave a short column or row
// uncovered; the ground fill keeps both from showing through as
// transparency.
func Compose(pages []document.Page, targetHeight int) (image.Image, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if targetHeight <= 0 {
		return nil, fmt.Errorf("render: invalid target height %d", targetHeight)
	}

	rendered := make([]image.Image, len(pages))
	totalWidth := 0
	for i, p := range pages {
		w, h := p.Size()
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("render: page %d has invalid intrinsic size %gx%g", i, w, h)
		}
		img, err := p.RenderAt(float64(targetHeight) / h)
		if err != nil {
			return nil, fmt.Errorf("render: page %d: %w", i, err)
		}
		rendered[i] = img
		totalWidth += int(math.Round(w * float64(targetHeight) / h))
	}

	dst := image.NewRGBA(image.Rect(0, 0, totalWidth, targetHeight))
	draw.Draw(dst, dst.Bounds(), background, image.Point{}, draw.Src)

	x := 0
	for i, img := range rendered {
		b := img.Bounds()
		w, h := pages[i].Size()
		wantW := int(math.Round(w * float64(targetHeight) / h))
		target := image.Rect(x, 0, x+wantW, targetHeight)
		if b.Dx() == wantW && b.Dy() == targetHeight {
			draw.Draw(dst, target, img, b.Min, draw.Over)
		} else {
			// The page rasterized to a slightly different size than the
			// layout expected (rounding inside the source). Resample to fit.
			xdraw.CatmullRom.Scale(dst, target, img, b, xdraw.Over, nil)
		}
		x += wantW
	}

	return dst, nil
}

// Scale resamples src by the given factor. Shared by raster-backed page
// implementations whose RenderAt is just a resize of a decoded image.
func Scale(src image.Image, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("render: invalid scale %g", scale)
	}
	b := src.Bounds()
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst, nil
}
