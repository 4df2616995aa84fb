package engine

import (
	"fmt"
	"time"
)

// State is the run state of the simulation session.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Scheduler decouples simulation rate from render rate. On each external
// frame signal it accumulates elapsed time and reports how many ticks are
// due, capped per frame so a stall (e.g. a backgrounded tab) cannot cause
// an unbounded catch-up burst.
//
// State machine: Idle → Running ⇄ Paused → Stopped. Stopped is terminal
// for a session; Reset returns to Idle.
type Scheduler struct {
	state      State
	interval   time.Duration // nominal tick interval
	speed      float64       // user speed multiplier, scales the effective interval
	acc        time.Duration
	maxCatchUp int
}

// NewScheduler creates a scheduler with the given nominal tick interval and
// per-frame catch-up cap.
func NewScheduler(interval time.Duration, maxCatchUp int) *Scheduler {
	if maxCatchUp < 1 {
		maxCatchUp = 1
	}
	return &Scheduler{
		state:      StateIdle,
		interval:   interval,
		speed:      1,
		maxCatchUp: maxCatchUp,
	}
}

// State returns the current run state.
func (s *Scheduler) State() State {
	return s.state
}

// Start begins a session. Valid only from Idle.
func (s *Scheduler) Start() error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateRunning
	return nil
}

// Pause suspends tick invocation, preserving all state. Valid only from
// Running; takes effect at the next tick boundary (ticks never tear).
func (s *Scheduler) Pause() error {
	if s.state != StateRunning {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s.state)
	}
	s.state = StatePaused
	s.acc = 0
	return nil
}

// Resume continues a paused session. Valid only from Paused.
func (s *Scheduler) Resume() error {
	if s.state != StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateRunning
	return nil
}

// Stop ends the session. Valid from Running or Paused; terminal until Reset.
func (s *Scheduler) Stop() error {
	if s.state != StateRunning && s.state != StatePaused {
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateStopped
	s.acc = 0
	return nil
}

// Reset returns the scheduler to Idle from any state.
func (s *Scheduler) Reset() {
	s.state = StateIdle
	s.acc = 0
	s.speed = 1
}

// SetSpeed sets the simulation speed multiplier (>0). A multiplier of 2
// halves the effective tick interval.
func (s *Scheduler) SetSpeed(multiplier float64) error {
	if multiplier <= 0 {
		return fmt.Errorf("speed multiplier must be > 0, got %v", multiplier)
	}
	s.speed = multiplier
	return nil
}

// Speed returns the current speed multiplier.
func (s *Scheduler) Speed() float64 {
	return s.speed
}

// EffectiveInterval returns the speed-scaled tick interval.
func (s *Scheduler) EffectiveInterval() time.Duration {
	return time.Duration(float64(s.interval) / s.speed)
}

// Advance accumulates frame time and returns the number of ticks due, zero
// when not running. Excess backlog beyond the catch-up cap is discarded so
// latency spikes stay bounded.
func (s *Scheduler) Advance(elapsed time.Duration) int {
	if s.state != StateRunning {
		return 0
	}

	s.acc += elapsed
	interval := s.EffectiveInterval()
	if interval <= 0 {
		return 0
	}

	n := int(s.acc / interval)
	if n > s.maxCatchUp {
		n = s.maxCatchUp
		s.acc = 0
	} else {
		s.acc -= time.Duration(n) * interval
	}

	return n
}
