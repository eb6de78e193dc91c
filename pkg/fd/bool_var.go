package fd

import "fmt"

// BoolVar is a 0/1 variable. Every successful change grounds it, so all
// constraints are attached for EventGround and changes go to the store's
// flat boolean log instead of the trail.
type BoolVar struct {
	store  *Store
	id     string
	index  int
	dom    *BoundDomain
	weight int
}

func (b *BoolVar) ID() string      { return b.id }
func (b *BoolVar) Index() int      { return b.index }
func (b *BoolVar) Dom() Domain     { return b.dom }
func (b *BoolVar) Level() int      { return b.dom.Stamp() }
func (b *BoolVar) Min() int        { return b.dom.min }
func (b *BoolVar) Max() int        { return b.dom.max }
func (b *BoolVar) Size() int       { return b.dom.Size() }
func (b *BoolVar) Singleton() bool { return b.dom.Singleton() }
func (b *BoolVar) Weight() int     { return b.weight }
func (b *BoolVar) IncreaseWeight() { b.weight++ }

// IsTrue reports whether the variable is grounded to 1.
func (b *BoolVar) IsTrue() bool { return b.dom.SingletonValue(1) }

// IsFalse reports whether the variable is grounded to 0.
func (b *BoolVar) IsFalse() bool { return b.dom.SingletonValue(0) }

func (b *BoolVar) String() string {
	return fmt.Sprintf("%s::%s", b.id, b.dom)
}

// head returns a version stamped at the current level.
func (b *BoolVar) head() *BoundDomain {
	level := b.store.level
	switch {
	case b.dom.Stamp() > level:
		panic(fmt.Sprintf("fd: %s has stamp %d above level %d", b.id, b.dom.Stamp(), level))
	case b.dom.Stamp() < level:
		d := &BoundDomain{min: b.dom.min, max: b.dom.max}
		link(d, b.dom, level)
		b.dom = d
		b.store.recordBoolChange(b)
	}
	return b.dom
}

// SetValue grounds the variable to val, which must be 0 or 1.
func (b *BoolVar) SetValue(val int) error {
	if !b.dom.Contains(val) {
		return &FailError{Var: b}
	}
	if b.dom.Singleton() {
		return nil
	}
	d := b.head()
	d.min, d.max = val, val
	b.store.addChanged(b, EventGround, d.w)
	return nil
}

func (b *BoolVar) SetTrue() error  { return b.SetValue(1) }
func (b *BoolVar) SetFalse() error { return b.SetValue(0) }

// In restricts the variable to [min, max].
func (b *BoolVar) In(min, max int) error {
	lo, hi := b.dom.min, b.dom.max
	if min > lo {
		lo = min
	}
	if max < hi {
		hi = max
	}
	switch {
	case lo > hi:
		return &FailError{Var: b}
	case lo == b.dom.min && hi == b.dom.max:
		return nil
	default:
		return b.SetValue(lo)
	}
}

// PutModelConstraint attaches c for EventGround whatever ev is.
func (b *BoolVar) PutModelConstraint(c Constraint, _ Event) {
	if b.dom.Singleton() {
		return
	}
	w := b.head().mutableWatchers()
	w.model[EventGround-1] = append(w.model[EventGround-1], c)
}

func (b *BoolVar) PutSearchConstraint(c Constraint) {
	if b.dom.Singleton() {
		return
	}
	w := b.head().mutableWatchers()
	w.search = append(w.search, c)
}

func (b *BoolVar) RemoveConstraint(c Constraint) {
	if !b.dom.w.has(c) {
		return
	}
	b.head().mutableWatchers().remove(c)
}

func (b *BoolVar) ConstraintCount() int { return b.dom.w.count() }

func (b *BoolVar) RemoveLevel(level int) {
	for b.dom.Stamp() >= level && b.dom.previous != nil {
		b.dom = b.dom.previous.(*BoundDomain)
	}
}
