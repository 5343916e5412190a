package sim_test

import (
	"testing"
	"time"

	"fontwatch/internal/font"
	"fontwatch/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type scheduledTick struct {
	delay time.Duration
	fn    func()
}

type fakeScheduler struct {
	clock *fakeClock
	queue []scheduledTick
}

func (s *fakeScheduler) Schedule(delay time.Duration, fn func()) {
	s.queue = append(s.queue, scheduledTick{delay: delay, fn: fn})
}

func (s *fakeScheduler) run(limit int) int {
	ran := 0
	for ran < limit && len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.clock.advance(next.delay)
		next.fn()
		ran++
	}

	return ran
}

func TestParseFamilyList(t *testing.T) {
	families := sim.ParseFamilyList("Open Sans, arial, 'URW Gothic L', sans-serif")
	assert.Equal(t, []string{"Open Sans", "arial", "URW Gothic L", "sans-serif"}, families)

	assert.Empty(t, sim.ParseFamilyList(""))
	assert.Equal(t, []string{"Georgia"}, sim.ParseFamilyList(`"Georgia"`))
}

func measureStack(t *testing.T, env *sim.Environment, familyList string) font.Size {
	t.Helper()

	probe := env.NewProbe(font.DefaultTestString)
	probe.SetFont(familyList, "n4")
	probe.Insert()
	size, ok := probe.Measure()
	require.True(t, ok)

	return size
}

func TestFallbackStacksRenderAtDifferentSizes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	env := sim.New(clock, sim.Options{})

	sizeA := measureStack(t, env, font.FallbackStackA)
	sizeB := measureStack(t, env, font.FallbackStackB)

	assert.NotEqual(t, sizeA, sizeB)
}

func TestProbeAbsentBeforeInsertAndAfterRemove(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	env := sim.New(clock, sim.Options{})

	probe := env.NewProbe(font.DefaultTestString)
	probe.SetFont(font.FallbackStackA, "n4")

	_, ok := probe.Measure()
	assert.False(t, ok)

	probe.Insert()
	_, ok = probe.Measure()
	assert.True(t, ok)

	probe.Remove()
	_, ok = probe.Measure()
	assert.False(t, ok)
}

func TestFontLoadsAfterDelay(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	env := sim.New(clock, sim.Options{
		Fonts: []sim.FontSpec{{
			Family: "Open Sans",
			Width:  210,
			Height: 360,
			Delay:  300 * time.Millisecond,
		}},
	})

	probe := env.NewProbe(font.DefaultTestString)
	probe.SetFont("Open Sans, "+font.FallbackStackA, "n4")
	probe.Insert()

	// Pending: the stack's fallback renders.
	pending, ok := probe.Measure()
	require.True(t, ok)
	assert.Equal(t, measureStack(t, env, font.FallbackStackA), pending)

	clock.advance(300 * time.Millisecond)
	loaded, ok := probe.Measure()
	require.True(t, ok)
	glyphs := len([]rune(font.DefaultTestString))
	assert.Equal(t, font.Size{Width: 210 * glyphs, Height: 360}, loaded)
}

func TestFailedFontKeepsFallback(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	env := sim.New(clock, sim.Options{
		Fonts: []sim.FontSpec{{
			Family: "Open Sans",
			Width:  210,
			Height: 360,
			Delay:  100 * time.Millisecond,
			Fail:   true,
		}},
	})

	probe := env.NewProbe(font.DefaultTestString)
	probe.SetFont("Open Sans, "+font.FallbackStackB, "n4")
	probe.Insert()

	fallback := measureStack(t, env, font.FallbackStackB)

	size, _ := probe.Measure()
	assert.Equal(t, fallback, size)

	clock.advance(time.Second)
	size, _ = probe.Measure()
	assert.Equal(t, fallback, size)
}

func TestWebkitBugReportsLastResortWhilePending(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	env := sim.New(clock, sim.Options{
		WebkitBug: true,
		Fonts: []sim.FontSpec{{
			Family: "Open Sans",
			Width:  210,
			Height: 360,
			Delay:  100 * time.Millisecond,
		}},
	})

	probe := env.NewProbe(font.DefaultTestString)
	probe.SetFont("Open Sans, "+font.FallbackStackA, "n4")
	probe.Insert()

	pending, _ := probe.Measure()
	assert.NotEqual(t, measureStack(t, env, font.FallbackStackA), pending)
	assert.NotEqual(t, measureStack(t, env, font.FallbackStackB), pending)

	clock.advance(100 * time.Millisecond)
	glyphs := len([]rune(font.DefaultTestString))
	loaded, _ := probe.Measure()
	assert.Equal(t, font.Size{Width: 210 * glyphs, Height: 360}, loaded)
}

// End-to-end: the watcher against the simulated environment.

func TestWatcherDetectsSimulatedLoad(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	sched := &fakeScheduler{clock: clock}
	env := sim.New(clock, sim.Options{
		Fonts: []sim.FontSpec{{
			Family: "Open Sans",
			Width:  210,
			Height: 360,
			Delay:  300 * time.Millisecond,
		}},
	})

	var status font.Status
	calls := 0
	w, err := font.NewWatcher(env, clock, sched, font.Config{Family: "Open Sans"},
		func(_, _ string, s font.Status) {
			status = s
			calls++
		})
	require.NoError(t, err)

	w.Start()
	sched.run(1000)

	require.Equal(t, 1, calls)
	assert.Equal(t, font.StatusActive, status)
	// One synchronous check plus one poll per 25ms until the 300ms load.
	assert.Equal(t, 13, w.Polls())
}

func TestWatcherTimesOutOnFailedSimulatedLoad(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	sched := &fakeScheduler{clock: clock}
	env := sim.New(clock, sim.Options{
		Fonts: []sim.FontSpec{{
			Family: "Open Sans",
			Width:  210,
			Height: 360,
			Delay:  100 * time.Millisecond,
			Fail:   true,
		}},
	})

	var status font.Status
	calls := 0
	w, err := font.NewWatcher(env, clock, sched,
		font.Config{Family: "Open Sans", Timeout: 200 * time.Millisecond},
		func(_, _ string, s font.Status) {
			status = s
			calls++
		})
	require.NoError(t, err)

	w.Start()
	sched.run(1000)

	require.Equal(t, 1, calls)
	assert.Equal(t, font.StatusInactive, status)
}

func TestWatcherWithWebkitBugDetectsSimulatedLoad(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	sched := &fakeScheduler{clock: clock}
	env := sim.New(clock, sim.Options{
		WebkitBug: true,
		Fonts: []sim.FontSpec{{
			Family: "Open Sans",
			Width:  210,
			Height: 360,
			Delay:  100 * time.Millisecond,
		}},
	})

	var status font.Status
	calls := 0
	w, err := font.NewWatcher(env, clock, sched,
		font.Config{Family: "Open Sans", WebkitFallbackBug: true},
		func(_, _ string, s font.Status) {
			status = s
			calls++
		})
	require.NoError(t, err)

	w.Start()
	sched.run(1000)

	require.Equal(t, 1, calls)
	assert.Equal(t, font.StatusActive, status)
	assert.Equal(t, 5, w.Polls())
}

func TestWatcherWithWebkitBugFailedLoadIsInactive(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	sched := &fakeScheduler{clock: clock}
	env := sim.New(clock, sim.Options{
		WebkitBug: true,
		Fonts: []sim.FontSpec{{
			Family: "Open Sans",
			Width:  210,
			Height: 360,
			Delay:  100 * time.Millisecond,
			Fail:   true,
		}},
	})

	var status font.Status
	calls := 0
	w, err := font.NewWatcher(env, clock, sched,
		font.Config{Family: "Open Sans", WebkitFallbackBug: true, Timeout: time.Second},
		func(_, _ string, s font.Status) {
			status = s
			calls++
		})
	require.NoError(t, err)

	w.Start()
	sched.run(1000)

	require.Equal(t, 1, calls)
	assert.Equal(t, font.StatusInactive, status)
}
