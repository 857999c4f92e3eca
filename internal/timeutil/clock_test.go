package timeutil

import (
	"testing"
	"time"
)

func TestMockClockNowAndSince(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	if !c.Now().Equal(start) {
		t.Errorf("Now = %v, want %v", c.Now(), start)
	}
	c.Advance(3 * time.Second)
	if got := c.Since(start); got != 3*time.Second {
		t.Errorf("Since = %v, want 3s", got)
	}
}

func TestMockClockTicker(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ch, stop := c.Tick(time.Second)
	defer stop()

	select {
	case <-ch:
		t.Fatal("ticker fired before any advance")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("ticker did not fire after advancing one period")
	}

	stop()
	c.Advance(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestRealClockTick(t *testing.T) {
	ch, stop := RealClock{}.Tick(time.Millisecond)
	defer stop()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("real ticker did not fire within 1s")
	}
}
