package clock

import (
	"testing"
	"time"
)

func TestManualClock_AfterFiresOnAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	ch := c.After(time.Hour)
	select {
	case <-ch:
		t.Fatalf("After fired before Advance")
	default:
	}

	c.Advance(59 * time.Minute)
	select {
	case <-ch:
		t.Fatalf("After fired early")
	default:
	}

	c.Advance(time.Minute)
	select {
	case got := <-ch:
		if !got.Equal(start.Add(time.Hour)) {
			t.Fatalf("fired at %v, want %v", got, start.Add(time.Hour))
		}
	default:
		t.Fatalf("After did not fire at deadline")
	}
	if c.Pending() != 0 {
		t.Fatalf("Pending()=%d, want 0", c.Pending())
	}
}

func TestManualClock_NonPositiveFiresImmediately(t *testing.T) {
	t.Parallel()

	c := NewManualClock(time.Unix(0, 0))
	select {
	case <-c.After(0):
	default:
		t.Fatalf("After(0) did not fire immediately")
	}
}

func TestManualClock_WaitForWaiters(t *testing.T) {
	t.Parallel()

	c := NewManualClock(time.Unix(0, 0))
	done := make(chan struct{})
	go func() {
		<-c.After(time.Second)
		close(done)
	}()

	c.WaitForWaiters(1)
	c.Advance(time.Second)
	<-done
}
