package clock

import (
	"testing"
	"time"
)

func TestFakeClockAdvance(t *testing.T) {
	c := NewFake()
	t0 := c.NowMillis()
	c.Advance(250 * time.Millisecond)
	t1 := c.NowMillis()
	if t1-t0 != 250 {
		t.Fatalf("NowMillis delta = %d, want 250", t1-t0)
	}
}

func TestSystemClockMonotonic(t *testing.T) {
	c := NewSystem()
	a := c.NowMillis()
	time.Sleep(time.Millisecond)
	b := c.NowMillis()
	if b < a {
		t.Fatalf("system clock went backwards: %d -> %d", a, b)
	}
}
