package font

import (
	"time"

	"fontwatch/internal/errors"
	"fontwatch/internal/logger"
)

// Config carries the tunables for one watch. Zero values fall back to
// the package defaults.
type Config struct {
	Family     string
	Variation  string
	TestString string
	Timeout    time.Duration
	Interval   time.Duration

	// WebkitFallbackBug enables the compensation branch for rendering
	// engines that briefly substitute a requested font name with a
	// system fallback reporting the target font's metrics before the
	// real font is ready.
	WebkitFallbackBug bool
}

// measurement is a recorded probe size. known is false when the probe
// was not measurable at capture time; an unknown measurement never
// equals anything, including another unknown one.
type measurement struct {
	size  Size
	known bool
}

func (m measurement) equals(size Size, ok bool) bool {
	return m.known && ok && m.size == size
}

// diverged reports a definite change: both the recorded and the
// current measurement are present and their geometry differs.
func (m measurement) diverged(size Size, ok bool) bool {
	return m.known && ok && m.size != size
}

// Watcher decides whether a single font family has finished loading by
// comparing rendered test-string measurements against baselines taken
// from two fallback-only stacks. It owns its two rulers exclusively
// and reports exactly one terminal Status through its callback.
//
// Watchers are single-threaded: all transitions happen on scheduler
// ticks, and concurrent watchers share no state.
type Watcher struct {
	clock Clock
	sched Scheduler

	family     string
	variation  string
	testString string
	timeout    time.Duration
	interval   time.Duration
	callback   Callback

	rulerA *Ruler
	rulerB *Ruler

	originalA measurement
	originalB measurement

	// Fallback snapshots taken right after the target stack is applied.
	// Only used by the WebKit fallback-bug branch. When the engine is
	// still rendering identical to this snapshot at the deadline, the
	// target is assumed to be metrics-compatible with its fallback and
	// reported active. That polarity is a known source of potential
	// false positives; it is kept deliberately.
	webkitFallbackBug bool
	fallbackA         measurement
	fallbackB         measurement
	fallbackCaptured  bool

	started   bool
	finished  bool
	startedAt time.Time
	polls     int
}

// NewWatcher builds two fresh rulers on the fallback stacks, inserts
// them and records the fallback-only baselines. The target font is not
// applied until Start.
func NewWatcher(env Environment, clock Clock, sched Scheduler, cfg Config, callback Callback) (*Watcher, error) {
	errFactory := errors.New()

	if env == nil {
		return nil, errFactory.New(ErrNoEnvironment)
	}
	if clock == nil {
		return nil, errFactory.New(ErrNoClock)
	}
	if sched == nil {
		return nil, errFactory.New(ErrNoScheduler)
	}
	if cfg.Family == "" {
		return nil, errFactory.New(ErrNoFamily)
	}
	if callback == nil {
		return nil, errFactory.New(ErrNoCallback)
	}
	if cfg.Timeout < 0 {
		return nil, errFactory.WithData(ErrInvalidTimeout, cfg.Timeout)
	}
	if cfg.Interval < 0 {
		return nil, errFactory.WithData(ErrInvalidInterval, cfg.Interval)
	}

	if cfg.TestString == "" {
		cfg.TestString = DefaultTestString
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}

	w := &Watcher{
		clock:             clock,
		sched:             sched,
		family:            cfg.Family,
		variation:         cfg.Variation,
		testString:        cfg.TestString,
		timeout:           cfg.Timeout,
		interval:          cfg.Interval,
		callback:          callback,
		webkitFallbackBug: cfg.WebkitFallbackBug,
	}

	w.rulerA = NewRuler(env, cfg.TestString)
	w.rulerB = NewRuler(env, cfg.TestString)

	w.rulerA.SetFont(FallbackStackA, cfg.Variation)
	w.rulerB.SetFont(FallbackStackB, cfg.Variation)
	w.rulerA.Insert()
	w.rulerB.Insert()

	w.originalA = measure(w.rulerA)
	w.originalB = measure(w.rulerB)

	return w, nil
}

// Start applies the target stack to both rulers and begins polling.
// The first check runs synchronously, so the callback may fire from
// inside Start when the comparison is already conclusive. Calling
// Start again is a no-op.
func (w *Watcher) Start() {
	if w.started || w.finished {
		return
	}
	w.started = true
	w.startedAt = w.clock.Now()

	w.rulerA.SetFont(w.family+", "+FallbackStackA, w.variation)
	w.rulerB.SetFont(w.family+", "+FallbackStackB, w.variation)

	if w.webkitFallbackBug {
		// Captured before any polling delay so a transient
		// fallback-matching size is not mistaken for "still loading".
		w.fallbackA = measure(w.rulerA)
		w.fallbackB = measure(w.rulerB)
		w.fallbackCaptured = true
	}

	logger.Debug().
		Str("family", w.family).
		Str("variation", w.variation).
		Bool("webkit_fallback_bug", w.webkitFallbackBug).
		Msg("Font watch started")

	w.check()
}

// Polls returns the number of checks performed so far. Stable once the
// callback has fired.
func (w *Watcher) Polls() int {
	return w.polls
}

func (w *Watcher) check() {
	if w.finished {
		return
	}
	w.polls++

	// Both rulers are measured before any comparison so A and B
	// reflect the same logical instant.
	sizeA, okA := w.rulerA.Size()
	sizeB, okB := w.rulerB.Size()
	elapsed := w.clock.Now().Sub(w.startedAt)

	if w.webkitFallbackBug {
		w.checkWithFallbackBug(sizeA, okA, sizeB, okB, elapsed)
		return
	}

	switch {
	case elapsed >= w.timeout:
		w.finish(StatusInactive, elapsed)
	case w.originalA.diverged(sizeA, okA) || w.originalB.diverged(sizeB, okB):
		w.finish(StatusActive, elapsed)
	default:
		// Unchanged from the baselines, or not measurable yet.
		w.reschedule()
	}
}

func (w *Watcher) checkWithFallbackBug(sizeA Size, okA bool, sizeB Size, okB bool, elapsed time.Duration) {
	if !w.fallbackCaptured {
		// A tick ran before Start finished capturing the snapshots.
		w.reschedule()
		return
	}

	matchesFallback := w.fallbackA.equals(sizeA, okA) && w.fallbackB.equals(sizeB, okB)

	if elapsed >= w.timeout {
		if matchesFallback {
			// Still rendering identical to the transient fallback
			// snapshot: treated as a metrics-compatible font.
			w.finish(StatusActive, elapsed)
		} else {
			w.finish(StatusInactive, elapsed)
		}
		return
	}

	if !okA || !okB {
		w.reschedule()
		return
	}

	if matchesFallback {
		w.reschedule()
		return
	}

	if w.originalA.equals(sizeA, okA) && w.originalB.equals(sizeB, okB) {
		// Reverted to the pre-load baselines: the load failed.
		w.finish(StatusInactive, elapsed)
		return
	}

	w.finish(StatusActive, elapsed)
}

func (w *Watcher) reschedule() {
	w.sched.Schedule(w.interval, w.check)
}

func (w *Watcher) finish(status Status, elapsed time.Duration) {
	w.finished = true

	w.rulerA.Remove()
	w.rulerB.Remove()

	logger.Debug().
		Str("family", w.family).
		Str("variation", w.variation).
		Str("status", status.String()).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Int("polls", w.polls).
		Msg("Font watch finished")

	w.callback(w.family, w.variation, status)
}

func measure(r *Ruler) measurement {
	size, ok := r.Size()

	return measurement{size: size, known: ok}
}
