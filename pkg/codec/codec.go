package codec

import (
	"errors"
	"fmt"
)

const (
	GzipFileExt  = ".gz"
	Bzip2FileExt = ".bz2"
)

// DefaultScratchSize is the size of the output window filled per decode step.
const DefaultScratchSize = 16 * 1024

var (
	ErrUnrecognized = errors.New("unrecognized stream header")
	ErrClosed       = errors.New("decoder is closed")
)

// Format is the compression container detected from the stream start.
type Format int

const (
	Unrecognized Format = iota
	Gzip
	Bzip2
)

func (f Format) String() string {
	switch f {
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	default:
		return "unrecognized"
	}
}

// ProbeSize is the number of leading bytes Classify looks at.
const ProbeSize = 2

// Classify selects the codec from the first two bytes of a stream.
func Classify(probe [ProbeSize]byte) Format {
	switch {
	case probe[0] == 0x1F && probe[1] == 0x8B:
		return Gzip
	case probe[0] == 0x42 && probe[1] == 0x5A: // "BZ"
		return Bzip2
	default:
		return Unrecognized
	}
}

// WriterFunc receives decoded bytes. p is only valid for the duration of the call.
type WriterFunc func(p []byte)

// Adapter feeds compressed chunks to one decompression context.
//
// Decode consumes the whole chunk and calls the WriterFunc zero or more times,
// synchronously, before returning. Close releases the context; both methods
// return ErrClosed afterwards. An Adapter is not safe for concurrent use.
type Adapter interface {
	Decode(chunk []byte) error
	Close() error
	Format() Format
}

type Options struct {
	// ScratchSize is the output window per decode step, DefaultScratchSize when zero.
	ScratchSize int
}

func (o Options) scratchSize() (int, error) {
	if o.ScratchSize == 0 {
		return DefaultScratchSize, nil
	}
	if o.ScratchSize < 0 {
		return 0, fmt.Errorf("invalid scratch size: %d", o.ScratchSize)
	}
	return o.ScratchSize, nil
}

// NewAdapter constructs the adapter variant for f.
func NewAdapter(f Format, w WriterFunc, o Options) (Adapter, error) {
	switch f {
	case Gzip:
		return NewGzip(w, o)
	case Bzip2:
		return NewBzip2(w, o)
	default:
		return nil, fmt.Errorf("cannot create decoder: %w", ErrUnrecognized)
	}
}

// FileExtension returns the conventional file extension of f.
func (f Format) FileExtension() string {
	switch f {
	case Gzip:
		return GzipFileExt
	case Bzip2:
		return Bzip2FileExt
	default:
		return ""
	}
}
