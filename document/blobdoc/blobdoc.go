// Package blobdoc provides a document whose page images live in a
// blobstore (local directory, MinIO, S3) under a common prefix.
//
// Pages are fetched on access; Preload warms a set of pages concurrently
// before a session starts pulling them from the worker goroutine.
package blobdoc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path"
	"strings"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/sync/errgroup"

	"github.com/quireader/quire/blobstore"
	"github.com/quireader/quire/document"
	"github.com/quireader/quire/render"
)

// preloadParallelism bounds concurrent store fetches during Preload.
const preloadParallelism = 4

// Document is a blobstore-backed page provider. The context given to Open
// scopes every fetch the document makes for its lifetime.
type Document struct {
	ctx   context.Context
	store blobstore.Store
	keys  []string

	mu   sync.Mutex
	memo map[int][]byte // fetched page bytes, by page number
}

var _ document.Document = (*Document)(nil)

// Open lists page images under prefix and orders them by name. The listing
// order is the page order; zero-padded numeric names give the natural
// sequence.
func Open(ctx context.Context, store blobstore.Store, prefix string) (*Document, error) {
	names, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("blobdoc: list %q: %w", prefix, err)
	}

	var keys []string
	for _, name := range names {
		switch strings.ToLower(path.Ext(name)) {
		case ".png", ".jpg", ".jpeg":
			keys = append(keys, name)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("blobdoc: no page images under %q", prefix)
	}

	return &Document{
		ctx:   ctx,
		store: store,
		keys:  keys,
		memo:  make(map[int][]byte),
	}, nil
}

// PageCount returns the number of page images found at Open.
func (d *Document) PageCount() int { return len(d.keys) }

// Page returns the page with the given zero-based number. The page's bytes
// are fetched lazily on first render.
func (d *Document) Page(number int) (document.Page, error) {
	if number < 0 || number >= len(d.keys) {
		return nil, fmt.Errorf("%w: page %d of %d", document.ErrPageNotFound, number, len(d.keys))
	}
	return &page{doc: d, number: number}, nil
}

// Preload fetches the given pages into the document's memo, up to
// preloadParallelism at a time. Out-of-range numbers are skipped; a fetch
// error aborts the batch.
func (d *Document) Preload(ctx context.Context, pageNumbers []int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadParallelism)

	for _, n := range pageNumbers {
		if n < 0 || n >= len(d.keys) {
			continue
		}
		g.Go(func() error {
			_, err := d.fetch(ctx, n)
			return err
		})
	}
	return g.Wait()
}

func (d *Document) fetch(ctx context.Context, number int) ([]byte, error) {
	d.mu.Lock()
	data, ok := d.memo[number]
	d.mu.Unlock()
	if ok {
		return data, nil
	}

	data, err := d.store.Get(ctx, d.keys[number])
	if err != nil {
		return nil, fmt.Errorf("blobdoc: fetch %s: %w", d.keys[number], err)
	}

	d.mu.Lock()
	d.memo[number] = data
	d.mu.Unlock()
	return data, nil
}

type page struct {
	doc    *Document
	number int
}

func (p *page) Size() (width, height float64) {
	data, err := p.doc.fetch(p.doc.ctx, p.number)
	if err != nil {
		return 0, 0
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return float64(cfg.Width), float64(cfg.Height)
}

func (p *page) RenderAt(scale float64) (image.Image, error) {
	data, err := p.doc.fetch(p.doc.ctx, p.number)
	if err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("blobdoc: decode %s: %w", p.doc.keys[p.number], err)
	}
	return render.Scale(src, scale)
}
