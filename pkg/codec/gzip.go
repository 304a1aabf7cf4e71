package codec

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// NewGzip returns an adapter decoding gzip members, including concatenated ones.
func NewGzip(w WriterFunc, o Options) (Adapter, error) {
	return newStreamDecoder(Gzip, w, o, newGzipMembers)
}

// gzipMembers reads one gzip member at a time so a member's tail is returned
// before the header of the next one is waited for.
type gzipMembers struct {
	src  io.Reader
	zr   *gzip.Reader
	next bool
}

func newGzipMembers(src io.Reader) (io.Reader, error) {
	zr, err := gzip.NewReader(src)
	if err != nil {
		return nil, err
	}
	zr.Multistream(false)
	return &gzipMembers{src: src, zr: zr}, nil
}

func (g *gzipMembers) Read(p []byte) (int, error) {
	for {
		if g.next {
			// io.EOF here is a clean end between members
			if err := g.zr.Reset(g.src); err != nil {
				return 0, err
			}
			g.zr.Multistream(false)
			g.next = false
		}
		n, err := g.zr.Read(p)
		if err == io.EOF {
			g.next = true
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}
