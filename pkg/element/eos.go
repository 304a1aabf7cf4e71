package element

import "sync"

// eosState tracks the end-of-stream token between NotifyEndOfInput, the input
// worker and the output worker. The worker checks run inside queue.Park idle
// callbacks, so the lock order is queue lock then eosState.mu.
type eosState struct {
	mu         sync.Mutex
	pending    bool // token received, not dispatched yet
	drained    bool // input queue empty with the token pending: nothing more will be decoded
	dispatched bool
}

// setPending records the token. It reports false for a duplicate.
func (s *eosState) setPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending || s.dispatched {
		return false
	}
	s.pending = true
	return true
}

func (s *eosState) isPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// closed reports whether a token was received, dispatched or not.
func (s *eosState) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending || s.dispatched
}

// markDrained sets the drained flag if a token is pending. It returns true only
// for the call that flipped it.
func (s *eosState) markDrained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending || s.drained {
		return false
	}
	s.drained = true
	return true
}

// take hands the token over for dispatch, at most once.
func (s *eosState) take() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.drained || !s.pending {
		return false
	}
	s.pending = false
	s.dispatched = true
	return true
}

func (s *eosState) isDispatched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatched
}

func (s *eosState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	s.drained = false
	s.dispatched = false
}
