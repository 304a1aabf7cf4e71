package element

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashmap-kz/gzdec/pkg/codec"
	"github.com/hashmap-kz/gzdec/pkg/loggr"
)

// inputIteration is one quantum of the input worker: decode one buffer, or wait.
func (e *Element) inputIteration() {
	if buf, ok := e.in.Pop(); ok {
		e.consume(buf)
		return
	}

	// Both checks run under the input queue lock, so the queue is known to be
	// empty and Submit is already refusing buffers when the token is pending.
	var finish, drained bool
	e.in.Park(func() bool {
		if !e.finished && e.eos.isPending() {
			finish = true
			return true
		}
		drained = e.eos.markDrained()
		return drained
	})

	switch {
	case finish:
		e.finishInput()
	case drained:
		e.log.Debug("input drained")
		e.out.SignalResume()
	}
}

func (e *Element) consume(buf []byte) {
	e.log.Log(context.Background(), loggr.LevelTrace, "input buffer", slog.Int("size", len(buf)))

	switch {
	case e.opts.Passthrough:
		e.push(buf)
	case e.failed:
		e.stats.dropped.Add(1)
	case e.adapter != nil:
		e.decode(buf)
	default:
		if !e.classify(buf) {
			return
		}
		held := e.held
		e.held = nil
		for _, b := range held {
			e.decode(b)
		}
	}
}

// classify feeds the probe and creates the adapter once the probe is full. buf is
// held until then. It returns true when the adapter is ready for the held buffers.
func (e *Element) classify(buf []byte) bool {
	e.held = append(e.held, buf)
	e.probeLen += copy(e.probe[e.probeLen:], buf)
	if e.probeLen < codec.ProbeSize {
		return false
	}

	f := codec.Classify(e.probe)
	if f == codec.Unrecognized {
		e.stats.dropped.Add(uint64(len(e.held)))
		e.held = nil
		e.fail(fmt.Errorf("%w: % x", codec.ErrUnrecognized, e.probe[:]))
		return false
	}

	adapter, err := codec.NewAdapter(f, e.push, codec.Options{ScratchSize: e.opts.ScratchSize})
	if err != nil {
		e.stats.dropped.Add(uint64(len(e.held)))
		e.held = nil
		e.fail(fmt.Errorf("cannot create %s decoder: %w", f, err))
		return false
	}
	e.adapter = adapter

	e.mu.Lock()
	e.format = f
	e.mu.Unlock()

	e.log.Info("stream format detected", slog.String("format", f.String()))
	return true
}

func (e *Element) decode(buf []byte) {
	if err := e.adapter.Decode(buf); err != nil {
		e.stats.decodeFailures.Add(1)
		e.log.Warn("cannot decode buffer",
			slog.Int("size", len(buf)),
			slog.Any("err", err),
		)
	}
}

// push copies codec output into a new buffer for the output worker.
func (e *Element) push(p []byte) {
	buf := make([]byte, len(p))
	copy(buf, p)
	e.out.Append(buf)
}

// finishInput runs once all input was consumed and no more will arrive.
func (e *Element) finishInput() {
	e.finished = true

	switch {
	case e.failed || e.opts.Passthrough:
	case e.adapter != nil:
		// the stream is complete: a codec still waiting for data is truncated
		e.closeAdapter()
	case len(e.held) > 0:
		e.stats.dropped.Add(uint64(len(e.held)))
		e.held = nil
		e.fail(fmt.Errorf("%w: stream too short to classify", codec.ErrUnrecognized))
	default:
		e.log.Debug("empty stream")
	}
}

// outputIteration is one quantum of the output worker: forward one buffer, or
// dispatch end-of-stream, or wait.
func (e *Element) outputIteration() {
	if buf, ok := e.out.Pop(); ok {
		e.forward(buf)
		return
	}

	var eos bool
	e.out.Park(func() bool {
		eos = e.eos.take()
		return eos
	})
	if !eos {
		return
	}

	e.log.Debug("forwarding end of stream")
	if err := e.sink.ForwardEndOfStream(); err != nil {
		e.stats.forwardFailures.Add(1)
		e.log.Warn("cannot forward end of stream", slog.Any("err", err))
	}
}

func (e *Element) forward(buf []byte) {
	if err := e.sink.Forward(buf); err != nil {
		e.stats.forwardFailures.Add(1)
		e.log.Warn("cannot forward buffer",
			slog.Int("size", len(buf)),
			slog.Any("err", err),
		)
		return
	}
	e.stats.buffersOut.Add(1)
	e.stats.bytesOut.Add(uint64(len(buf)))
}
