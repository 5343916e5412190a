package font

// Ruler wraps one measurement probe and tracks the font stack
// currently applied to it. A Ruler belongs to exactly one Watcher.
type Ruler struct {
	probe      Probe
	testString string
	familyList string
	inserted   bool
	removed    bool
}

func NewRuler(env Environment, testString string) *Ruler {
	return &Ruler{
		probe:      env.NewProbe(testString),
		testString: testString,
	}
}

func (r *Ruler) TestString() string {
	return r.testString
}

func (r *Ruler) FamilyList() string {
	return r.familyList
}

// SetFont reassigns the probe's font stack. Subsequent measurements
// reflect the new stack; nothing is cached across reassignment.
func (r *Ruler) SetFont(familyList, variation string) {
	r.familyList = familyList
	r.probe.SetFont(familyList, variation)
}

// Size returns the rendered geometry of the test string under the
// currently assigned stack. The second return is false when the probe
// is not currently measurable.
func (r *Ruler) Size() (Size, bool) {
	if !r.inserted || r.removed {
		return Size{}, false
	}

	return r.probe.Measure()
}

// Insert makes the ruler measurable.
func (r *Ruler) Insert() {
	if r.inserted || r.removed {
		return
	}
	r.inserted = true
	r.probe.Insert()
}

// Remove releases the probe. Removal is terminal: the ruler measures
// as absent afterwards and must not be reused.
func (r *Ruler) Remove() {
	if r.removed {
		return
	}
	r.removed = true
	r.probe.Remove()
}
