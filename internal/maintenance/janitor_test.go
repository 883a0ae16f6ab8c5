package maintenance

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingResetter struct {
	calls atomic.Int64
	err   error
}

func (c *countingResetter) Reset() error {
	c.calls.Add(1)
	return c.err
}

func TestJanitorRunsOnSchedule(t *testing.T) {
	target := &countingResetter{}
	j, err := NewJanitor(target, "@every 50ms", nil)
	if err != nil {
		t.Fatalf("NewJanitor: %v", err)
	}
	j.Start()
	defer j.Stop()

	deadline := time.After(5 * time.Second)
	for target.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 sweeps, got %d", target.calls.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestJanitorSurvivesResetFailure(t *testing.T) {
	target := &countingResetter{err: errors.New("disk gone")}
	j, err := NewJanitor(target, "@every 50ms", nil)
	if err != nil {
		t.Fatalf("NewJanitor: %v", err)
	}
	j.Start()
	defer j.Stop()

	deadline := time.After(5 * time.Second)
	for target.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweeps should keep running after a failure, got %d", target.calls.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestJanitorBadSchedule(t *testing.T) {
	if _, err := NewJanitor(&countingResetter{}, "not a schedule", nil); err == nil {
		t.Error("expected an error for an invalid schedule")
	}
}
