package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/quireader/quire/document"
	"github.com/quireader/quire/render"
)

// Reader is a parsed bundle. It implements document.Document; frames are
// read and decompressed lazily per page.
type Reader struct {
	r       io.ReaderAt
	closer  io.Closer
	codec   Codec
	entries []indexEntry
}

var _ document.Document = (*Reader)(nil)

// NewReader parses a bundle from r. size is the total byte length.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	if size < headerSize {
		return nil, fmt.Errorf("%w: truncated header", ErrBadFormat)
	}
	hdr := make([]byte, headerSize)
	if _, err := r.ReadAt(hdr, 0); err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadFormat)
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, v)
	}
	codec := Codec(hdr[6])
	switch codec {
	case CodecNone, CodecLZ4, CodecZSTD:
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrBadFormat, hdr[6])
	}

	count := int(binary.LittleEndian.Uint32(hdr[8:12]))
	if count <= 0 {
		return nil, fmt.Errorf("%w: empty bundle", ErrBadFormat)
	}
	idxLen := count * indexEntrySize
	if size < int64(headerSize+idxLen) {
		return nil, fmt.Errorf("%w: truncated index", ErrBadFormat)
	}

	idx := make([]byte, idxLen)
	if _, err := r.ReadAt(idx, headerSize); err != nil {
		return nil, err
	}
	entries := make([]indexEntry, count)
	for i := range entries {
		e := parseIndexEntry(idx[i*indexEntrySize:])
		if int64(e.offset)+int64(e.compressed) > size {
			return nil, fmt.Errorf("%w: frame %d out of bounds", ErrBadFormat, i)
		}
		entries[i] = e
	}

	return &Reader{r: r, codec: codec, entries: entries}, nil
}

// OpenFile opens a bundle file. Close the reader to release the file.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	br, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	br.closer = f
	return br, nil
}

// OpenBytes parses a bundle held in memory, e.g. fetched from a blobstore.
func OpenBytes(data []byte) (*Reader, error) {
	return NewReader(bytes.NewReader(data), int64(len(data)))
}

// Codec returns the bundle's frame compression codec.
func (r *Reader) Codec() Codec { return r.codec }

// PageCount returns the number of pages in the bundle.
func (r *Reader) PageCount() int { return len(r.entries) }

// Page returns the page with the given zero-based number.
func (r *Reader) Page(number int) (document.Page, error) {
	if number < 0 || number >= len(r.entries) {
		return nil, fmt.Errorf("%w: page %d of %d", document.ErrPageNotFound, number, len(r.entries))
	}
	return &bundlePage{r: r, number: number}, nil
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Reader) frame(number int) ([]byte, error) {
	e := r.entries[number]
	buf := make([]byte, e.compressed)
	if _, err := r.r.ReadAt(buf, int64(e.offset)); err != nil {
		return nil, err
	}
	return decompressFrame(buf, int(e.uncompressed), r.codec)
}

type bundlePage struct {
	r      *Reader
	number int
}

func (p *bundlePage) Size() (width, height float64) {
	e := p.r.entries[p.number]
	return float64(e.width), float64(e.height)
}

func (p *bundlePage) RenderAt(scale float64) (image.Image, error) {
	data, err := p.r.frame(p.number)
	if err != nil {
		return nil, fmt.Errorf("bundle: read page %d: %w", p.number, err)
	}
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("bundle: decode page %d: %w", p.number, err)
	}
	return render.Scale(src, scale)
}
