package pipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hashmap-kz/gzdec/pkg/codec"
	"github.com/hashmap-kz/gzdec/pkg/element"
)

const (
	DefaultChunkSize = 64 * 1024
	DefaultMaxQueued = 64
)

// ErrIncomplete means the stream was decoded with gaps: some buffers failed to
// decode or the stream was truncated.
var ErrIncomplete = errors.New("decoded output is incomplete")

type Options struct {
	Name        string
	Logger      *slog.Logger
	ChunkSize   int // bytes per submitted buffer
	ScratchSize int
	Passthrough bool

	// MaxQueued bounds the input buffers waiting in the element.
	MaxQueued int
}

type Result struct {
	Format codec.Format
	Stats  element.Stats
}

// writerSink forwards decoded buffers to an io.Writer. After the first write
// error all further buffers are refused.
type writerSink struct {
	w    io.Writer
	err  error
	once sync.Once
	done chan struct{}
}

func newWriterSink(w io.Writer) *writerSink {
	return &writerSink{w: w, done: make(chan struct{})}
}

func (s *writerSink) Forward(buf []byte) error {
	if s.err != nil {
		return s.err
	}
	if _, err := s.w.Write(buf); err != nil {
		s.err = fmt.Errorf("cannot write decoded data: %w", err)
		return s.err
	}
	return nil
}

func (s *writerSink) ForwardEndOfStream() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Decode reads compressed data from src, pushes it through an element and writes
// the decoded bytes to dst. It returns once the end of stream reached dst.
func Decode(ctx context.Context, src io.Reader, dst io.Writer, opts Options) (*Result, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxQueued <= 0 {
		opts.MaxQueued = DefaultMaxQueued
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sink := newWriterSink(dst)
	e, err := element.New(sink, element.Options{
		Name:        opts.Name,
		Logger:      opts.Logger,
		ScratchSize: opts.ScratchSize,
		Passthrough: opts.Passthrough,
	})
	if err != nil {
		return nil, err
	}
	if err := e.SetState(element.Playing); err != nil {
		return nil, err
	}

	runErr := feed(ctx, e, src, opts)
	if runErr == nil {
		select {
		case <-sink.done:
		case <-ctx.Done():
			runErr = ctx.Err()
		}
	}

	// the sink is only touched by the output worker, which is joined here
	if err := e.SetState(element.Inert); err != nil {
		return nil, err
	}

	res := &Result{Format: e.Format(), Stats: e.Stats()}
	switch {
	case runErr != nil:
		return res, runErr
	case e.Err() != nil:
		return res, e.Err()
	case sink.err != nil:
		return res, sink.err
	case res.Stats.DecodeFailures > 0:
		return res, fmt.Errorf("%w: %d decode failures", ErrIncomplete, res.Stats.DecodeFailures)
	}
	return res, nil
}

func feed(ctx context.Context, e *element.Element, src io.Reader, opts Options) error {
	for {
		if err := waitQueue(ctx, e, opts.MaxQueued); err != nil {
			return err
		}

		buf := make([]byte, opts.ChunkSize)
		n, err := src.Read(buf)
		if n > 0 {
			if subErr := e.Submit(buf[:n]); subErr != nil {
				return subErr
			}
		}
		if errors.Is(err, io.EOF) {
			e.NotifyEndOfInput()
			return nil
		}
		if err != nil {
			return fmt.Errorf("cannot read compressed data: %w", err)
		}
	}
}

func waitQueue(ctx context.Context, e *element.Element, limit int) error {
	if e.QueuedInput() < limit {
		return ctx.Err()
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for e.QueuedInput() >= limit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// DecodedReader streams the output of a background Decode.
type DecodedReader struct {
	pr     *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
	res    *Result
	err    error
}

// DecodeToReader runs Decode in a goroutine and exposes the decoded bytes as a
// reader, for consumers such as storage uploads. Decode errors surface from Read.
func DecodeToReader(ctx context.Context, src io.Reader, opts Options) *DecodedReader {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	d := &DecodedReader{pr: pr, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(d.done)
		d.res, d.err = Decode(ctx, src, pw, opts)
		_ = pw.CloseWithError(d.err)
	}()
	return d
}

func (d *DecodedReader) Read(p []byte) (int, error) {
	return d.pr.Read(p)
}

// Close stops the decoding and waits for it.
func (d *DecodedReader) Close() error {
	d.cancel()
	err := d.pr.Close()
	<-d.done
	return err
}

// Result waits for the decoding to finish and returns its outcome.
func (d *DecodedReader) Result() (*Result, error) {
	<-d.done
	return d.res, d.err
}
