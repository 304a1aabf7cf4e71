package element

import "sync/atomic"

// Stats is a point-in-time snapshot of the element counters.
type Stats struct {
	BuffersIn  uint64
	BytesIn    uint64
	BuffersOut uint64 // forwarded to the sink
	BytesOut   uint64

	DecodeFailures  uint64
	ForwardFailures uint64
	Dropped         uint64 // input or output buffers discarded
}

type counters struct {
	buffersIn       atomic.Uint64
	bytesIn         atomic.Uint64
	buffersOut      atomic.Uint64
	bytesOut        atomic.Uint64
	decodeFailures  atomic.Uint64
	forwardFailures atomic.Uint64
	dropped         atomic.Uint64
}

func (c *counters) reset() {
	c.buffersIn.Store(0)
	c.bytesIn.Store(0)
	c.buffersOut.Store(0)
	c.bytesOut.Store(0)
	c.decodeFailures.Store(0)
	c.forwardFailures.Store(0)
	c.dropped.Store(0)
}

// Stats returns the counters of the current stream. They are reset on Inert→Ready.
func (e *Element) Stats() Stats {
	return Stats{
		BuffersIn:       e.stats.buffersIn.Load(),
		BytesIn:         e.stats.bytesIn.Load(),
		BuffersOut:      e.stats.buffersOut.Load(),
		BytesOut:        e.stats.bytesOut.Load(),
		DecodeFailures:  e.stats.decodeFailures.Load(),
		ForwardFailures: e.stats.forwardFailures.Load(),
		Dropped:         e.stats.dropped.Load(),
	}
}
