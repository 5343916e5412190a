package font

import "time"

// Status is the terminal outcome of a watch.
type Status int

const (
	// StatusActive means the font loaded and is rendering.
	StatusActive Status = iota + 1
	// StatusInactive means the load failed or the watch timed out.
	StatusInactive
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Size is the rendered geometry of a test string, in pixels.
// Sizes compare by exact field-wise equality.
type Size struct {
	Width  int
	Height int
}

// Probe is a single measurable test-string element owned by the host
// environment. A probe reflects the most recently assigned font stack;
// measuring never mutates the assignment.
type Probe interface {
	// SetFont assigns a font stack ("family, fallback, ...") and an
	// opaque variation description to the probe.
	SetFont(familyList, variation string)

	// Measure returns the current rendered geometry of the test string.
	// The second return is false when the probe is not measurable, e.g.
	// before insertion or after removal.
	Measure() (Size, bool)

	// Insert makes the probe measurable.
	Insert()

	// Remove releases the probe. A removed probe is never reused.
	Remove()
}

// Environment creates measurement probes in the host rendering
// environment.
type Environment interface {
	NewProbe(testString string) Probe
}

// Clock is the time source used for timeout accounting. Elapsed time
// is computed with Sub, so implementations should return times that
// carry a monotonic reading.
type Clock interface {
	Now() time.Time
}

// Scheduler invokes fn exactly once, asynchronously, after at least
// the given delay. Callbacks with equal delays run in arrival order.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
}

// Callback receives the terminal outcome for a watched font. It is
// invoked exactly once per watch.
type Callback func(family, variation string, status Status)

const (
	// DefaultTestString has high width variance across common font
	// stacks, which keeps the two rulers distinguishable.
	DefaultTestString = "BESbswy"

	// DefaultTimeout is the wall-clock budget measured from Start.
	DefaultTimeout = 5000 * time.Millisecond

	// DefaultInterval is the fixed poll cadence.
	DefaultInterval = 25 * time.Millisecond
)

// The two fallback stacks are paired with different generic families
// so that, absent the target font, the rulers render at different
// sizes from one another on essentially all platforms.
const (
	FallbackStackA = "arial, 'URW Gothic L', sans-serif"
	FallbackStackB = "Georgia, 'Century Schoolbook L', serif"
)
