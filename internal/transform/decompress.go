package transform

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Decompressor attempts to inflate a stored value.
type Decompressor interface {
	Decompress(b []byte) ([]byte, error)
}

// DecompressorFunc adapts a function to the Decompressor interface.
type DecompressorFunc func(b []byte) ([]byte, error)

// Decompress calls f(b).
func (f DecompressorFunc) Decompress(b []byte) ([]byte, error) {
	return f(b)
}

// ErrTooLarge is returned when an inflated value exceeds the size cap.
var ErrTooLarge = errors.New("inflated value exceeds size limit")

// ZlibDecompressor inflates zlib streams, falling back to gzip.
type ZlibDecompressor struct {
	// MaxSize caps the inflated size. Zero means 64 MiB.
	MaxSize int64
}

const defaultMaxInflated = 64 << 20

// Decompress returns the inflated bytes, or the zlib error when b is
// neither a zlib nor a gzip stream.
func (z ZlibDecompressor) Decompress(b []byte) ([]byte, error) {
	limit := z.MaxSize
	if limit <= 0 {
		limit = defaultMaxInflated
	}

	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err == nil {
		out, readErr := readLimited(zr, limit)
		if readErr == nil {
			return out, nil
		}
		err = readErr
	}

	if gr, gzErr := gzip.NewReader(bytes.NewReader(b)); gzErr == nil {
		if out, readErr := readLimited(gr, limit); readErr == nil {
			return out, nil
		}
	}
	return nil, err
}

func readLimited(r io.ReadCloser, limit int64) ([]byte, error) {
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, ErrTooLarge
	}
	return out, nil
}
