package element

import (
	"errors"
	"fmt"
	"log/slog"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// State is the element lifecycle state. Transitions only move between neighbors.
type State int

const (
	Inert State = iota
	Ready
	Paused
	Playing
)

func (s State) String() string {
	switch s {
	case Inert:
		return "inert"
	case Ready:
		return "ready"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (e *Element) State() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

// SetState walks the element to target one transition at a time. It returns
// once the workers are confirmed in the target configuration.
func (e *Element) SetState(target State) error {
	if target < Inert || target > Playing {
		return fmt.Errorf("%w: unknown state %d", ErrInvalidTransition, int(target))
	}

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	for e.state != target {
		next := e.state + 1
		if target < e.state {
			next = e.state - 1
		}
		if err := e.changeState(e.state, next); err != nil {
			return err
		}
		e.state = next
	}
	return nil
}

// ChangeState performs a single transition, from must be the current state.
func (e *Element) ChangeState(from, to State) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if from != e.state {
		return fmt.Errorf("%w: element is %s, not %s", ErrInvalidTransition, e.state, from)
	}
	if err := e.changeState(from, to); err != nil {
		return err
	}
	e.state = to
	return nil
}

func (e *Element) changeState(from, to State) error {
	e.log.Debug("state change",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)

	switch {
	case from == Inert && to == Ready:
		e.reset()
		e.inTask.Pause()
		e.inTask.WaitParked()

	case from == Ready && to == Paused:
		e.inTask.Start()
		e.outTask.Start()

	case from == Paused && to == Playing:
		e.outTask.Start()

	case from == Playing && to == Paused:
		e.pauseOutput()

	case from == Paused && to == Ready:
		e.pauseOutput()
		e.inTask.Pause()
		e.in.SignalResume()
		e.inTask.WaitParked()

	case from == Ready && to == Inert:
		e.outTask.Stop()
		e.out.SignalResume()
		e.outTask.Join()

		e.inTask.Stop()
		e.in.SignalResume()
		e.inTask.Join()

		e.closeAdapter()
		e.dropQueued()

	default:
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (e *Element) pauseOutput() {
	e.outTask.Pause()
	e.out.SignalResume()
	e.outTask.WaitParked()
}
