// Package sim is a deterministic stand-in for a browser rendering
// environment: it answers font measurement queries from a scenario of
// simulated font loads instead of a real rendering tree.
package sim

import (
	"strings"
	"time"

	"fontwatch/internal/font"
)

// FontSpec describes one simulated font family. Width is the advance
// per glyph; a rendered test string measures Width times its glyph
// count. The family becomes available Delay after the environment is
// created, or never when Fail is set.
type FontSpec struct {
	Family string
	Width  int
	Height int
	Delay  time.Duration
	Fail   bool
}

type Options struct {
	Fonts []FontSpec

	// WebkitBug reproduces the engine quirk where a stack headed by a
	// still-loading family renders the last-resort font instead of the
	// next family in the stack.
	WebkitBug bool
}

// Environment implements font.Environment. It is immutable after New;
// probes from concurrent watchers may query it in parallel.
type Environment struct {
	clock     font.Clock
	start     time.Time
	fonts     map[string]FontSpec
	webkitBug bool
}

func New(clock font.Clock, opts Options) *Environment {
	fonts := make(map[string]FontSpec, len(opts.Fonts))
	for _, spec := range opts.Fonts {
		fonts[strings.ToLower(spec.Family)] = spec
	}

	return &Environment{
		clock:     clock,
		start:     clock.Now(),
		fonts:     fonts,
		webkitBug: opts.WebkitBug,
	}
}

func (e *Environment) NewProbe(testString string) font.Probe {
	return &probe{env: e, testString: testString}
}

type glyphMetrics struct {
	Width  int
	Height int
}

func (m glyphMetrics) size(glyphs int) font.Size {
	return font.Size{Width: m.Width * glyphs, Height: m.Height}
}

// Per-glyph metrics for the generic fallbacks, chosen so the sans and
// serif stacks render the same string at different sizes.
var (
	sansMetrics       = glyphMetrics{Width: 174, Height: 353}
	serifMetrics      = glyphMetrics{Width: 195, Height: 377}
	lastResortMetrics = glyphMetrics{Width: 163, Height: 360}
)

var stackMetrics = map[string]glyphMetrics{
	"arial":                sansMetrics,
	"urw gothic l":         sansMetrics,
	"sans-serif":           sansMetrics,
	"georgia":              serifMetrics,
	"century schoolbook l": serifMetrics,
	"serif":                serifMetrics,
}

func (e *Environment) resolve(familyList, testString string) font.Size {
	glyphs := len([]rune(testString))

	for _, family := range ParseFamilyList(familyList) {
		key := strings.ToLower(family)

		if m, ok := stackMetrics[key]; ok {
			return m.size(glyphs)
		}

		spec, ok := e.fonts[key]
		if !ok {
			// Unknown family, the engine skips it.
			continue
		}

		elapsed := e.clock.Now().Sub(e.start)
		if elapsed >= spec.Delay {
			if spec.Fail {
				// Load failed, the next family takes over.
				continue
			}
			return font.Size{Width: spec.Width * glyphs, Height: spec.Height}
		}

		if e.webkitBug {
			// The engine accepted the name and renders the last-resort
			// font while the face is still loading.
			return lastResortMetrics.size(glyphs)
		}
		// Still loading without the bug: the next family renders.
	}

	return lastResortMetrics.size(glyphs)
}

// ParseFamilyList splits a CSS-style font-family list into bare family
// names, stripping quotes and whitespace.
func ParseFamilyList(familyList string) []string {
	parts := strings.Split(familyList, ",")
	families := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.Trim(strings.TrimSpace(part), `'"`)
		if name != "" {
			families = append(families, name)
		}
	}

	return families
}

type probe struct {
	env        *Environment
	testString string
	familyList string
	inserted   bool
	removed    bool
}

// SetFont records the stack; the simulator renders every variation at
// the same metrics.
func (p *probe) SetFont(familyList, _ string) {
	p.familyList = familyList
}

func (p *probe) Measure() (font.Size, bool) {
	if !p.inserted || p.removed {
		return font.Size{}, false
	}

	return p.env.resolve(p.familyList, p.testString), true
}

func (p *probe) Insert() {
	p.inserted = true
}

func (p *probe) Remove() {
	p.removed = true
}
