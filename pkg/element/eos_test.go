package element

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEOSState_Sequence(t *testing.T) {
	var s eosState

	assert.False(t, s.markDrained(), "drained without a token")
	assert.False(t, s.take())

	assert.True(t, s.setPending())
	assert.False(t, s.setPending(), "duplicate token accepted")
	assert.True(t, s.closed())
	assert.False(t, s.take(), "dispatch before drain")

	assert.True(t, s.markDrained())
	assert.False(t, s.markDrained(), "drained twice")

	assert.True(t, s.take())
	assert.False(t, s.take(), "dispatched twice")
	assert.True(t, s.isDispatched())
	assert.False(t, s.setPending(), "token accepted after dispatch")

	s.reset()
	assert.False(t, s.closed())
	assert.False(t, s.isDispatched())
	assert.True(t, s.setPending())
}

func TestEOSState_TakeOnceUnderContention(t *testing.T) {
	var s eosState
	s.setPending()
	s.markDrained()

	var taken atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.take() {
				taken.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), taken.Load())
}
