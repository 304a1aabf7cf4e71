package element

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hashmap-kz/gzdec/pkg/codec"
	"github.com/hashmap-kz/gzdec/pkg/queue"
	"github.com/hashmap-kz/gzdec/pkg/task"
)

var ErrEndOfStream = errors.New("end of input already signaled")

// Sink receives the element output. Both methods are called from the output
// worker goroutine only, in stream order.
type Sink interface {
	Forward(buf []byte) error
	ForwardEndOfStream() error
}

type Options struct {
	// Name is a free label used in logs.
	Name   string
	Logger *slog.Logger

	// ScratchSize is the codec output window, see codec.Options.
	ScratchSize int

	// Passthrough forwards input buffers unchanged, without classification.
	Passthrough bool

	// OnError is called on the input worker goroutine when the stream fails
	// for good (unrecognized header, decoder construction error).
	OnError func(error)
}

// Element decodes a gzip or bzip2 byte stream pushed in arbitrary buffers.
//
// Input buffers go through Submit to the input worker, which classifies the
// stream, decodes and queues the result for the output worker. The output worker
// forwards buffers to the Sink, followed by exactly one end-of-stream once
// NotifyEndOfInput was called and everything before it has been delivered.
// Workers are driven by SetState.
type Element struct {
	id   string
	sink Sink
	opts Options
	log  *slog.Logger

	in      *queue.Queue[[]byte]
	out     *queue.Queue[[]byte]
	inTask  *task.Task
	outTask *task.Task

	eos eosState

	// owned by the input worker, reset by the controller while it is stopped
	probe    [codec.ProbeSize]byte
	probeLen int
	held     [][]byte
	adapter  codec.Adapter
	failed   bool
	finished bool

	mu     sync.Mutex // guards format and err
	format codec.Format
	err    error

	stateMu sync.Mutex
	state   State

	stats counters
}

func New(sink Sink, opts Options) (*Element, error) {
	if sink == nil {
		return nil, errors.New("sink is nil")
	}
	if opts.ScratchSize < 0 {
		return nil, fmt.Errorf("invalid scratch size: %d", opts.ScratchSize)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	id := uuid.NewString()
	e := &Element{
		id:   id,
		sink: sink,
		opts: opts,
		log: opts.Logger.With(
			slog.String("module", "element"),
			slog.String("id", id),
		),
		in:  queue.New[[]byte](),
		out: queue.New[[]byte](),
	}
	if opts.Name != "" {
		e.log = e.log.With(slog.String("name", opts.Name))
	}
	e.inTask = task.New("input", e.inputIteration, e.log)
	e.outTask = task.New("output", e.outputIteration, e.log)
	return e, nil
}

func (e *Element) ID() string {
	return e.id
}

// Submit queues a compressed buffer. The element takes ownership of buf.
// It never blocks and returns ErrEndOfStream once NotifyEndOfInput was called.
// Submit and NotifyEndOfInput are meant to be called by a single feeder.
func (e *Element) Submit(buf []byte) error {
	if e.eos.closed() {
		e.stats.dropped.Add(1)
		e.log.Warn("buffer submitted after end of input, dropped", slog.Int("size", len(buf)))
		return ErrEndOfStream
	}
	e.stats.buffersIn.Add(1)
	e.stats.bytesIn.Add(uint64(len(buf)))
	e.in.Append(buf)
	return nil
}

// NotifyEndOfInput records that no more buffers will be submitted.
func (e *Element) NotifyEndOfInput() {
	if !e.eos.setPending() {
		e.log.Debug("duplicate end of input ignored")
		return
	}
	e.log.Debug("end of input received")
	e.in.SignalResume()
}

// QueuedInput returns the number of buffers waiting for the input worker.
func (e *Element) QueuedInput() int {
	return e.in.Len()
}

// Format returns the detected format, Unrecognized until classification.
func (e *Element) Format() codec.Format {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.format
}

// Err returns the error that made the stream fail, if any.
func (e *Element) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// EndOfStreamSent reports whether the end-of-stream was dispatched to the sink.
func (e *Element) EndOfStreamSent() bool {
	return e.eos.isDispatched()
}

func (e *Element) fail(err error) {
	e.failed = true
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()

	e.log.Error("stream failed", slog.Any("err", err))
	if e.opts.OnError != nil {
		e.opts.OnError(err)
	}
}

// reset prepares a new stream. Workers must be stopped.
func (e *Element) reset() {
	e.closeAdapter()
	e.probe = [codec.ProbeSize]byte{}
	e.probeLen = 0
	e.held = nil
	e.failed = false
	e.finished = false

	e.mu.Lock()
	e.format = codec.Unrecognized
	e.err = nil
	e.mu.Unlock()

	e.eos.reset()
	e.stats.reset()
}

func (e *Element) closeAdapter() {
	if e.adapter == nil {
		return
	}
	if err := e.adapter.Close(); err != nil {
		e.stats.decodeFailures.Add(1)
		e.log.Warn("decoder closed with error", slog.Any("err", err))
	}
	e.adapter = nil
}

// dropQueued discards whatever is left in both queues. Workers must be stopped.
func (e *Element) dropQueued() {
	n := len(e.in.Drain()) + len(e.out.Drain()) + len(e.held)
	e.held = nil
	if n > 0 {
		e.stats.dropped.Add(uint64(n))
		e.log.Debug("queued buffers dropped", slog.Int("count", n))
	}
}
