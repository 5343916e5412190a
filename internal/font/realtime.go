package font

import "time"

// SystemClock reads the real clock. time.Now carries a monotonic
// reading, so Sub-based elapsed time is immune to wall-clock jumps.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// TimerScheduler runs callbacks on Go timers. Ticks for one watcher
// never overlap: the next tick is only scheduled after the previous
// one returns.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}
