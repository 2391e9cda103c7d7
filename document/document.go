// Package document defines the adapter contracts between a paginated
// document source and the quire render core.
//
// A Document is random access by page number and exclusively owned by the
// cache worker once a session is opened: implementations do not need to be
// safe for concurrent use unless stated otherwise.
package document

import (
	"errors"
	"image"
)

// ErrPageNotFound is returned when a page number is out of the document's
// range or the page data is unreadable.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrPageNotFound)`.
var ErrPageNotFound = errors.New("document: page not found")

// Document is a random-access provider of logical pages.
type Document interface {
	// Page returns the page with the given zero-based number.
	// It returns ErrPageNotFound for numbers outside [0, PageCount).
	// Safe to call repeatedly for the same number.
	Page(number int) (Page, error)

	// PageCount returns the number of logical pages.
	PageCount() int
}

// Page is a handle to one logical page.
type Page interface {
	// Size returns the intrinsic size of the page in its native units
	// (points for typeset sources, pixels for raster sources).
	Size() (width, height float64)

	// RenderAt rasterizes the page at the given scale relative to its
	// intrinsic size. scale must be positive.
	RenderAt(scale float64) (image.Image, error)
}
