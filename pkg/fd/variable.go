package fd

import "fmt"

// Var is a variable registered with a store. Both *IntVar and *BoolVar
// implement it.
type Var interface {
	// ID is the variable's name, unique within its store.
	ID() string
	// Index is the variable's position in the store registry.
	Index() int
	// Dom returns the current domain version. Callers outside the variable
	// must treat it as read-only.
	Dom() Domain
	// Level is the stamp of the current domain version.
	Level() int

	Min() int
	Max() int
	Size() int
	Singleton() bool

	// Weight counts the failures this variable took part in.
	Weight() int
	IncreaseWeight()

	// PutModelConstraint attaches c to be rescheduled on ev and every
	// stronger event. It is a no-op on singletons.
	PutModelConstraint(c Constraint, ev Event)
	// PutSearchConstraint attaches c to be rescheduled on every event.
	PutSearchConstraint(c Constraint)
	// RemoveConstraint detaches c at the current level.
	RemoveConstraint(c Constraint)
	// ConstraintCount is the number of attached constraints.
	ConstraintCount() int

	// RemoveLevel drops every domain version stamped at level or above.
	RemoveLevel(level int)

	String() string
}

// IntVar is an integer variable. It owns the head of its domain's version
// chain; older versions are reachable only through Previous links.
type IntVar struct {
	store  *Store
	id     string
	index  int
	dom    Domain
	weight int
}

func (v *IntVar) ID() string      { return v.id }
func (v *IntVar) Index() int      { return v.index }
func (v *IntVar) Dom() Domain     { return v.dom }
func (v *IntVar) Level() int      { return v.dom.Stamp() }
func (v *IntVar) Min() int        { return v.dom.Min() }
func (v *IntVar) Max() int        { return v.dom.Max() }
func (v *IntVar) Size() int       { return v.dom.Size() }
func (v *IntVar) Singleton() bool { return v.dom.Singleton() }
func (v *IntVar) Weight() int     { return v.weight }
func (v *IntVar) IncreaseWeight() { v.weight++ }

// Value returns the value of a grounded variable. It panics otherwise.
func (v *IntVar) Value() int { return v.dom.Value() }

// Store returns the store the variable belongs to.
func (v *IntVar) Store() *Store { return v.store }

func (v *IntVar) String() string {
	return fmt.Sprintf("%s::%s", v.id, v.dom)
}

// narrow applies op to the domain version valid at level. When the current
// version is older than level, op runs on a copy that only becomes the new
// head if op removed something.
func (v *IntVar) narrow(level int, op func(Domain) (Event, error)) error {
	d := v.dom
	if d.Stamp() > level {
		panic(fmt.Sprintf("fd: %s has stamp %d above level %d", v.id, d.Stamp(), level))
	}
	target := d
	if d.Stamp() < level {
		target = d.Clone()
	}
	ev, err := op(target)
	if err != nil {
		return &FailError{Var: v}
	}
	if ev == EventNone {
		return nil
	}
	if target != d {
		v.install(target, level)
	}
	v.domainHasChanged(ev)
	return nil
}

// install makes d the head version at level, succeeding the current head.
func (v *IntVar) install(d Domain, level int) {
	link(d, v.dom, level)
	v.dom = d
	v.store.recordChange(v)
}

// version returns a head version stamped at the current level, creating an
// unchanged copy if needed. Constraint attach and detach go through it so
// that they are undone by level removal.
func (v *IntVar) version() *domainState {
	level := v.store.level
	if v.dom.Stamp() < level {
		v.install(v.dom.Clone(), level)
	}
	return v.dom.state()
}

// domainHasChanged checks that ev agrees with the new domain and schedules
// the attached constraints.
func (v *IntVar) domainHasChanged(ev Event) {
	if (ev == EventGround) != v.dom.Singleton() {
		panic(fmt.Sprintf("fd: event %s inconsistent with domain %s of %s", ev, v.dom, v.id))
	}
	v.store.addChanged(v, ev, v.dom.state().w)
}

// In restricts the variable to [min, max].
func (v *IntVar) In(min, max int) error {
	d := v.dom
	if min <= d.Min() && max >= d.Max() {
		return nil
	}
	if min > max || max < d.Min() || min > d.Max() {
		return &FailError{Var: v}
	}
	return v.narrow(v.store.level, func(t Domain) (Event, error) {
		return t.IntersectAdaptRange(min, max)
	})
}

// InValue grounds the variable to val.
func (v *IntVar) InValue(val int) error {
	if !v.dom.Contains(val) {
		return &FailError{Var: v}
	}
	return v.In(val, val)
}

// InMin removes every value below min.
func (v *IntVar) InMin(min int) error { return v.In(min, MaxInt) }

// InMax removes every value above max.
func (v *IntVar) InMax(max int) error { return v.In(MinInt, max) }

// InDomain restricts the variable to the values of d.
func (v *IntVar) InDomain(d Domain) error {
	if d.ContainsDomain(v.dom) {
		return nil
	}
	if !d.IsIntersecting(v.dom) {
		return &FailError{Var: v}
	}
	return v.narrow(v.store.level, func(t Domain) (Event, error) {
		return t.IntersectAdapt(d)
	})
}

// InComplement removes val.
func (v *IntVar) InComplement(val int) error {
	if !v.dom.Contains(val) {
		return nil
	}
	return v.narrow(v.store.level, func(t Domain) (Event, error) {
		return t.SubtractAdapt(val)
	})
}

// InComplementRange removes every value of [min, max].
func (v *IntVar) InComplementRange(min, max int) error {
	if !v.dom.IsIntersectingRange(min, max) {
		return nil
	}
	return v.narrow(v.store.level, func(t Domain) (Event, error) {
		return t.SubtractAdaptRange(min, max)
	})
}

// InShift restricts the variable to {x + shift | x in d}.
func (v *IntVar) InShift(d Domain, shift int) error {
	if shift == 0 {
		return v.InDomain(d)
	}
	return v.InDomain(&IntervalDomain{intervals: shiftIntervals(d.Intervals(), shift)})
}

func (v *IntVar) PutModelConstraint(c Constraint, ev Event) {
	if v.dom.Singleton() {
		return
	}
	if ev == EventNone || ev > EventGround {
		panic(fmt.Sprintf("fd: cannot attach %s to %s for event %s", c, v.id, ev))
	}
	w := v.version().mutableWatchers()
	w.model[ev-1] = append(w.model[ev-1], c)
}

func (v *IntVar) PutSearchConstraint(c Constraint) {
	if v.dom.Singleton() {
		return
	}
	w := v.version().mutableWatchers()
	w.search = append(w.search, c)
}

func (v *IntVar) RemoveConstraint(c Constraint) {
	if !v.dom.state().w.has(c) {
		return
	}
	v.version().mutableWatchers().remove(c)
}

func (v *IntVar) ConstraintCount() int { return v.dom.state().w.count() }

// RemoveLevel pops every version stamped at level or above.
func (v *IntVar) RemoveLevel(level int) {
	for v.dom.Stamp() >= level && v.dom.Previous() != nil {
		v.dom = v.dom.Previous()
	}
}
