// Package bundle implements a single-file container for a paginated
// document: one compressed PNG frame per page plus a fixed-size index, so
// a whole score travels as one object through any blobstore.
//
// Layout, all integers little-endian:
//
//	[0:4]   magic "QUIB"
//	[4:6]   format version (currently 1)
//	[6]     compression codec (0 none, 1 lz4, 2 zstd)
//	[7]     reserved
//	[8:12]  page count
//	then per page: offset uint64, compressed length uint32,
//	uncompressed length uint32, width uint32, height uint32
//	then the frames, back to back
//
// Frames are compressed independently so a reader can decode one page
// without touching the rest of the file.
package bundle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies the per-frame compression algorithm.
type Codec uint8

const (
	// CodecNone stores frames uncompressed.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression (fast).
	CodecLZ4 Codec = 1
	// CodecZSTD uses zstd block compression (better ratio).
	CodecZSTD Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

const (
	magic         = "QUIB"
	formatVersion = 1

	headerSize     = 12
	indexEntrySize = 24
)

// ErrBadFormat reports a file that is not a valid bundle.
var ErrBadFormat = errors.New("bundle: bad format")

type indexEntry struct {
	offset       uint64
	compressed   uint32
	uncompressed uint32
	width        uint32
	height       uint32
}

func compressFrame(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 || n >= len(data) {
			// Incompressible; keep the frame raw. The index records equal
			// compressed/uncompressed lengths, which is how the reader
			// recognizes a stored frame.
			return data, nil
		}
		return buf[:n], nil
	case CodecZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		out := enc.EncodeAll(data, nil)
		if len(out) >= len(data) {
			return data, nil
		}
		return out, nil
	default:
		return nil, fmt.Errorf("bundle: unknown codec %d", codec)
	}
}

func decompressFrame(data []byte, uncompressed int, codec Codec) ([]byte, error) {
	if codec == CodecNone || len(data) == uncompressed {
		return data, nil
	}
	switch codec {
	case CodecLZ4:
		out := make([]byte, uncompressed)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, err
		}
		if n != uncompressed {
			return nil, fmt.Errorf("%w: frame length mismatch", ErrBadFormat)
		}
		return out, nil
	case CodecZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, make([]byte, 0, uncompressed))
		if err != nil {
			return nil, err
		}
		if len(out) != uncompressed {
			return nil, fmt.Errorf("%w: frame length mismatch", ErrBadFormat)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("bundle: unknown codec %d", codec)
	}
}

func putIndexEntry(b []byte, e indexEntry) {
	binary.LittleEndian.PutUint64(b[0:8], e.offset)
	binary.LittleEndian.PutUint32(b[8:12], e.compressed)
	binary.LittleEndian.PutUint32(b[12:16], e.uncompressed)
	binary.LittleEndian.PutUint32(b[16:20], e.width)
	binary.LittleEndian.PutUint32(b[20:24], e.height)
}

func parseIndexEntry(b []byte) indexEntry {
	return indexEntry{
		offset:       binary.LittleEndian.Uint64(b[0:8]),
		compressed:   binary.LittleEndian.Uint32(b[8:12]),
		uncompressed: binary.LittleEndian.Uint32(b[12:16]),
		width:        binary.LittleEndian.Uint32(b[16:20]),
		height:       binary.LittleEndian.Uint32(b[20:24]),
	}
}
