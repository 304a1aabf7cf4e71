package codec

import (
	"errors"
	"fmt"
	"io"
)

type eventKind int

const (
	evOutput eventKind = iota
	evNeedInput
	evFailed
)

type event struct {
	kind eventKind
	data []byte
	err  error
}

// streamDecoder turns a pull-style decompressing reader into the push-style Adapter.
//
// The reader runs on a helper goroutine that owns it. Decode hands a chunk over and
// then serves the goroutine's events until it asks for more input, so every writer
// call happens on the caller's goroutine and Decode returns only once the chunk
// has been consumed. Output the codec still holds back is delivered by later calls.
type streamDecoder struct {
	format    Format
	write     WriterFunc
	newReader func(io.Reader) (io.Reader, error)
	scratch   []byte

	feed   chan []byte
	events chan event
	resume chan struct{}
	done   chan struct{}

	started bool
	closed  bool
	failed  bool

	// written by the helper goroutine before done is closed
	endErr error
}

var _ Adapter = (*streamDecoder)(nil)

func newStreamDecoder(f Format, w WriterFunc, o Options, newReader func(io.Reader) (io.Reader, error)) (*streamDecoder, error) {
	if w == nil {
		return nil, errors.New("writer func is nil")
	}
	size, err := o.scratchSize()
	if err != nil {
		return nil, err
	}
	return &streamDecoder{
		format:    f,
		write:     w,
		newReader: newReader,
		scratch:   make([]byte, size),
		feed:      make(chan []byte),
		events:    make(chan event),
		resume:    make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

func (s *streamDecoder) Format() Format {
	return s.format
}

func (s *streamDecoder) Decode(chunk []byte) error {
	if s.closed {
		return ErrClosed
	}
	if !s.started {
		s.started = true
		go s.run()
	}

	s.feed <- chunk
	for {
		ev := <-s.events
		switch ev.kind {
		case evOutput:
			s.write(ev.data)
			s.resume <- struct{}{}
		case evNeedInput:
			return nil
		case evFailed:
			s.failed = true
			return fmt.Errorf("%s decode: %w", s.format, ev.err)
		}
	}
}

// Close ends the input and releases the codec. It reports a stream that stopped in
// the middle of a member, unless Decode already returned an error for it.
func (s *streamDecoder) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	if !s.started {
		return nil
	}
	close(s.feed)
	<-s.done

	if s.failed || s.endErr == nil || errors.Is(s.endErr, io.EOF) {
		return nil
	}
	return fmt.Errorf("%s stream truncated: %w", s.format, s.endErr)
}

func (s *streamDecoder) run() {
	defer close(s.done)

	src := &chunkSource{s: s}
	r, err := s.newReader(src)
	if err == nil {
		err = s.pump(r, src)
	}
	s.endErr = err

	if src.eof {
		return
	}
	if err != nil && !errors.Is(err, io.EOF) {
		// the chunk being decoded gets the error, so do all later ones
		s.events <- event{kind: evFailed, err: err}
		for range s.feed {
			s.events <- event{kind: evFailed, err: err}
		}
		return
	}
	// finished: anything after the end of the stream is ignored
	s.events <- event{kind: evNeedInput}
	for range s.feed {
		s.events <- event{kind: evNeedInput}
	}
}

func (s *streamDecoder) pump(r io.Reader, src *chunkSource) error {
	for {
		n, err := r.Read(s.scratch)
		// nobody serves events once the feed is closed
		if n > 0 && !src.eof {
			s.events <- event{kind: evOutput, data: s.scratch[:n]}
			<-s.resume
		}
		if err != nil {
			return err
		}
	}
}

// chunkSource is the reader side of the feed channel. It implements io.ByteReader
// so the codecs read it directly instead of buffering ahead of the current chunk.
type chunkSource struct {
	s    *streamDecoder
	cur  []byte
	seen bool
	eof  bool
}

func (c *chunkSource) next() bool {
	for len(c.cur) == 0 {
		if c.eof {
			return false
		}
		if c.seen {
			c.s.events <- event{kind: evNeedInput}
		}
		chunk, ok := <-c.s.feed
		if !ok {
			c.eof = true
			return false
		}
		c.seen = true
		c.cur = chunk
	}
	return true
}

func (c *chunkSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !c.next() {
		return 0, io.EOF
	}
	n := copy(p, c.cur)
	c.cur = c.cur[n:]
	return n, nil
}

func (c *chunkSource) ReadByte() (byte, error) {
	if !c.next() {
		return 0, io.EOF
	}
	b := c.cur[0]
	c.cur = c.cur[1:]
	return b, nil
}
