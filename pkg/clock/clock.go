// Package clock provides the stack's single monotonic millisecond time
// source. Every timeout, timer, and sequence-number seed in the core reads
// the time through this package rather than calling time.Now directly, so
// that tests can drive TCP timeouts deterministically with a fake clock.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the narrow interface the rest of the core depends on.
type Clock interface {
	// NowMillis returns a monotonically increasing millisecond counter.
	// It has no defined relationship to wall-clock time; callers only
	// ever compare two readings from the same Clock.
	NowMillis() int64
}

// System wraps clockwork.NewRealClock for production use.
type System struct {
	underlying clockwork.Clock
}

// NewSystem returns a Clock backed by the real wall clock.
func NewSystem() *System {
	return &System{underlying: clockwork.NewRealClock()}
}

func (s *System) NowMillis() int64 {
	return s.underlying.Now().UnixMilli()
}

// Fake wraps clockwork.FakeClock so tests can advance time explicitly
// instead of sleeping, matching how the stack's timeout sweeper (§4.8.6)
// and retransmit timer are specified to behave against a polled clock.
type Fake struct {
	underlying clockwork.FakeClock
}

// NewFake returns a Fake clock started at an arbitrary fixed instant.
func NewFake() *Fake {
	return &Fake{underlying: clockwork.NewFakeClock()}
}

func (f *Fake) NowMillis() int64 {
	return f.underlying.Now().UnixMilli()
}

// Advance moves the fake clock forward by d, as if d had elapsed.
func (f *Fake) Advance(d time.Duration) {
	f.underlying.Advance(d)
}
