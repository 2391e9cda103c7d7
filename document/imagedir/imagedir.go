// Package imagedir provides a document backed by a directory of page
// images, one file per page, ordered by filename.
package imagedir

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/quireader/quire/document"
	"github.com/quireader/quire/render"
)

// Document is a directory of page images. Pages decode lazily on access;
// the document holds no pixel data itself.
type Document struct {
	dir   string
	files []string
}

var _ document.Document = (*Document)(nil)

// Open scans dir for page images (.png, .jpg, .jpeg) and orders them by
// filename. It fails when the directory holds no page images at all.
func Open(dir string) (*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("imagedir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("imagedir: no page images in %s", dir)
	}
	sort.Strings(files)

	return &Document{dir: dir, files: files}, nil
}

// PageCount returns the number of page images found at Open.
func (d *Document) PageCount() int { return len(d.files) }

// Page returns the page with the given zero-based number.
func (d *Document) Page(number int) (document.Page, error) {
	if number < 0 || number >= len(d.files) {
		return nil, fmt.Errorf("%w: page %d of %d", document.ErrPageNotFound, number, len(d.files))
	}
	return &page{path: filepath.Join(d.dir, d.files[number])}, nil
}

// page decodes its file on every call. The cache above keeps rendered
// bitmaps around, so repeated decodes only happen on cache misses.
type page struct {
	path string
}

func (p *page) Size() (width, height float64) {
	f, err := os.Open(p.path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return float64(cfg.Width), float64(cfg.Height)
}

func (p *page) RenderAt(scale float64) (image.Image, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("imagedir: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imagedir: decode %s: %w", filepath.Base(p.path), err)
	}
	return render.Scale(src, scale)
}
