package engine

import (
	"errors"
	"testing"
	"time"
)

func TestSchedulerTransitions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(s *Scheduler)
		action  func(s *Scheduler) error
		wantErr bool
		want    State
	}{
		{"start from idle", nil, (*Scheduler).Start, false, StateRunning},
		{"pause from running", func(s *Scheduler) { s.Start() }, (*Scheduler).Pause, false, StatePaused},
		{"resume from paused", func(s *Scheduler) { s.Start(); s.Pause() }, (*Scheduler).Resume, false, StateRunning},
		{"stop from running", func(s *Scheduler) { s.Start() }, (*Scheduler).Stop, false, StateStopped},
		{"stop from paused", func(s *Scheduler) { s.Start(); s.Pause() }, (*Scheduler).Stop, false, StateStopped},
		{"start from running", func(s *Scheduler) { s.Start() }, (*Scheduler).Start, true, StateRunning},
		{"pause from idle", nil, (*Scheduler).Pause, true, StateIdle},
		{"resume from running", func(s *Scheduler) { s.Start() }, (*Scheduler).Resume, true, StateRunning},
		{"resume from stopped", func(s *Scheduler) { s.Start(); s.Stop() }, (*Scheduler).Resume, true, StateStopped},
		{"stop from idle", nil, (*Scheduler).Stop, true, StateIdle},
		{"stop from stopped", func(s *Scheduler) { s.Start(); s.Stop() }, (*Scheduler).Stop, true, StateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(100*time.Millisecond, 5)
			if tt.setup != nil {
				tt.setup(s)
			}
			err := tt.action(s)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("error = %v, want ErrInvalidTransition", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.State() != tt.want {
				t.Errorf("state = %v, want %v", s.State(), tt.want)
			}
		})
	}
}

func TestSchedulerResetReturnsToIdle(t *testing.T) {
	s := NewScheduler(100*time.Millisecond, 5)
	s.Start()
	s.Stop()
	s.Reset()
	if s.State() != StateIdle {
		t.Errorf("state after reset = %v, want idle", s.State())
	}
	if s.Speed() != 1 {
		t.Errorf("speed after reset = %v, want 1", s.Speed())
	}
	if err := s.Start(); err != nil {
		t.Errorf("start after reset: %v", err)
	}
}

func TestAdvanceAccumulates(t *testing.T) {
	s := NewScheduler(100*time.Millisecond, 5)
	s.Start()

	if n := s.Advance(50 * time.Millisecond); n != 0 {
		t.Errorf("Advance(50ms) = %d, want 0", n)
	}
	// 50ms carried over, 50 + 60 = 110 -> one tick, 10ms remainder
	if n := s.Advance(60 * time.Millisecond); n != 1 {
		t.Errorf("Advance(60ms) = %d, want 1", n)
	}
	if n := s.Advance(250 * time.Millisecond); n != 2 {
		t.Errorf("Advance(250ms) = %d, want 2", n)
	}
}

func TestAdvanceCatchUpCap(t *testing.T) {
	s := NewScheduler(100*time.Millisecond, 5)
	s.Start()

	// A 10-tick stall is capped at 5, and the backlog is discarded.
	if n := s.Advance(time.Second); n != 5 {
		t.Errorf("Advance(1s) = %d, want 5", n)
	}
	if n := s.Advance(50 * time.Millisecond); n != 0 {
		t.Errorf("Advance(50ms) after cap = %d, want 0 (backlog discarded)", n)
	}
}

func TestAdvanceNotRunning(t *testing.T) {
	s := NewScheduler(100*time.Millisecond, 5)
	if n := s.Advance(time.Second); n != 0 {
		t.Errorf("Advance while idle = %d, want 0", n)
	}

	s.Start()
	s.Pause()
	if n := s.Advance(time.Second); n != 0 {
		t.Errorf("Advance while paused = %d, want 0", n)
	}

	// Pause clears the accumulator: no ticks owed on resume.
	s.Resume()
	if n := s.Advance(10 * time.Millisecond); n != 0 {
		t.Errorf("Advance after resume = %d, want 0", n)
	}
}

func TestSetSpeed(t *testing.T) {
	s := NewScheduler(100*time.Millisecond, 10)
	s.Start()

	if err := s.SetSpeed(0); err == nil {
		t.Error("SetSpeed(0) should fail")
	}
	if err := s.SetSpeed(-1); err == nil {
		t.Error("SetSpeed(-1) should fail")
	}

	if err := s.SetSpeed(2); err != nil {
		t.Fatalf("SetSpeed(2): %v", err)
	}
	if got := s.EffectiveInterval(); got != 50*time.Millisecond {
		t.Errorf("EffectiveInterval = %v, want 50ms", got)
	}
	if n := s.Advance(100 * time.Millisecond); n != 2 {
		t.Errorf("Advance(100ms) at 2x = %d, want 2", n)
	}

	if err := s.SetSpeed(0.5); err != nil {
		t.Fatalf("SetSpeed(0.5): %v", err)
	}
	if got := s.EffectiveInterval(); got != 200*time.Millisecond {
		t.Errorf("EffectiveInterval = %v, want 200ms", got)
	}
}
