package clock

import "time"

// Clock provides time to the application.
// Using an interface enables deterministic tests via a controllable implementation.
type Clock interface {
	Now() time.Time
}

// AlarmClock is a Clock that can also wake a caller after a delay.
// Schedulers depend on it so that "the next day" can be simulated in tests.
type AlarmClock interface {
	Clock
	// After delivers the clock's time on the returned channel once d has elapsed.
	After(d time.Duration) <-chan time.Time
}
