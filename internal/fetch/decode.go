package fetch

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// readBody decodes a response body by its Content-Encoding and enforces max
// on the decoded size. max <= 0 disables the limit.
func readBody(r io.Reader, encoding string, max int64) ([]byte, error) {
	decoded, closeFn, err := decoder(r, encoding)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	if max <= 0 {
		return io.ReadAll(decoded)
	}

	body, err := io.ReadAll(io.LimitReader(decoded, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("body exceeds %d bytes", max)
	}
	return body, nil
}

func decoder(r io.Reader, encoding string) (io.Reader, func(), error) {
	switch encoding {
	case "", "identity":
		return r, func() {}, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
