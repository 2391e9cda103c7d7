package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/quireader/quire/document"
)

// Write packs every page of doc into a bundle on w, rasterizing each page
// at its intrinsic size and storing it as a compressed PNG frame.
func Write(w io.Writer, doc document.Document, codec Codec) error {
	count := doc.PageCount()
	if count == 0 {
		return fmt.Errorf("bundle: document has no pages")
	}

	entries := make([]indexEntry, count)
	frames := make([][]byte, count)
	offset := uint64(headerSize + count*indexEntrySize)

	for i := 0; i < count; i++ {
		page, err := doc.Page(i)
		if err != nil {
			return fmt.Errorf("bundle: page %d: %w", i, err)
		}
		img, err := page.RenderAt(1)
		if err != nil {
			return fmt.Errorf("bundle: render page %d: %w", i, err)
		}

		var raw bytes.Buffer
		if err := png.Encode(&raw, img); err != nil {
			return fmt.Errorf("bundle: encode page %d: %w", i, err)
		}
		frame, err := compressFrame(raw.Bytes(), codec)
		if err != nil {
			return fmt.Errorf("bundle: compress page %d: %w", i, err)
		}

		w0, h0 := page.Size()
		entries[i] = indexEntry{
			offset:       offset,
			compressed:   uint32(len(frame)),
			uncompressed: uint32(raw.Len()),
			width:        uint32(math.Round(w0)),
			height:       uint32(math.Round(h0)),
		}
		frames[i] = frame
		offset += uint64(len(frame))
	}

	hdr := make([]byte, headerSize)
	copy(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:6], formatVersion)
	hdr[6] = byte(codec)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(count))
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	idx := make([]byte, count*indexEntrySize)
	for i, e := range entries {
		putIndexEntry(idx[i*indexEntrySize:], e)
	}
	if _, err := w.Write(idx); err != nil {
		return err
	}

	for _, frame := range frames {
		if _, err := w.Write(frame); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile is a convenience wrapper around Write for a file path.
func WriteFile(path string, doc document.Document, codec Codec) (err error) {
	f, cerr := os.Create(path)
	if cerr != nil {
		return cerr
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return Write(f, doc, codec)
}
