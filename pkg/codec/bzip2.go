package codec

import (
	"compress/bzip2"
	"io"
)

// NewBzip2 returns an adapter decoding bzip2 streams. Concatenated streams are
// handled by the reader itself.
func NewBzip2(w WriterFunc, o Options) (Adapter, error) {
	return newStreamDecoder(Bzip2, w, o, func(src io.Reader) (io.Reader, error) {
		return bzip2.NewReader(src), nil
	})
}
