package task

import (
	"log/slog"
	"sync"
)

type State int

const (
	Stopped State = iota
	Paused
	Started
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Paused:
		return "paused"
	case Started:
		return "started"
	default:
		return "unknown"
	}
}

// Task runs fn repeatedly on its own goroutine until stopped.
//
// Between two iterations the goroutine checks the requested state: Paused parks it
// (and acknowledges the park so WaitParked can return), Stopped makes it exit.
// A Task can be restarted after Join.
//
// fn must return in bounded time once whatever it blocks on has been woken up;
// the owner is responsible for waking it (see queue.SignalResume) before waiting.
type Task struct {
	name string
	fn   func()
	log  *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	running bool // goroutine alive
	parked  bool // goroutine sits in the pause gate
	done    chan struct{}
}

func New(name string, fn func(), log *slog.Logger) *Task {
	if log == nil {
		log = slog.Default()
	}
	t := &Task{
		name: name,
		fn:   fn,
		log:  log,
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start makes the goroutine run iterations, spawning it if needed.
func (t *Task) Start() {
	t.setState(Started)
}

// Pause asks the goroutine to park after its current iteration. A stopped task gets
// a goroutine created directly in the parked state.
//
// Pause does not wait; use WaitParked for that.
func (t *Task) Pause() {
	t.setState(Paused)
}

// Stop asks the goroutine to exit after its current iteration. Use Join to wait.
func (t *Task) Stop() {
	t.mu.Lock()
	t.state = Stopped
	t.cond.Broadcast()
	t.mu.Unlock()
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = s
	if !t.running {
		t.running = true
		t.parked = false
		t.done = make(chan struct{})
		go t.loop(t.done)
	}
	t.cond.Broadcast()
}

// WaitParked blocks until the goroutine is outside fn: parked, exited, or never
// started. It returns immediately if the task is currently started.
func (t *Task) WaitParked() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.state == Paused && t.running && !t.parked {
		t.cond.Wait()
	}
}

// Join waits for the goroutine to exit. The task must have been stopped first,
// otherwise Join returns immediately.
func (t *Task) Join() {
	t.mu.Lock()
	if t.state != Stopped || !t.running {
		t.mu.Unlock()
		return
	}
	done := t.done
	t.mu.Unlock()
	<-done
}

func (t *Task) loop(done chan struct{}) {
	defer close(done)
	t.log.Debug("task goroutine started", slog.String("task", t.name))

	for {
		t.mu.Lock()
		for t.state == Paused {
			if !t.parked {
				t.parked = true
				t.cond.Broadcast()
			}
			t.cond.Wait()
		}
		t.parked = false
		if t.state == Stopped {
			t.running = false
			t.cond.Broadcast()
			t.mu.Unlock()
			t.log.Debug("task goroutine exited", slog.String("task", t.name))
			return
		}
		t.mu.Unlock()

		t.fn()
	}
}
