// Package fd implements the propagation core of a finite-domain constraint
// solver: versioned integer domains with three interchangeable encodings,
// variables that mediate pruning and constraint notification, a store that
// runs a multi-priority propagation fixpoint, and an adaptive trail that
// restores domains on backtracking.
//
// # Versioning
//
// A domain version carries the backtracking level (stamp) at which it was
// created and a link to the version it was cloned from. Pruning a variable
// at level L mutates its domain in place when the stamp already equals L,
// and otherwise installs a fresh version with stamp L:
//
//	level 0:  x -> {1..10}                 (stamp 0)
//	level 1:  x.InMax(7)   -> {1..7}       (stamp 1, previous = stamp 0)
//	level 1:  x.InComplement(3) -> {1..2,4..7} (same version, mutated)
//	remove 1: x -> {1..10}                 (the stamp 0 object itself)
//
// # Failure
//
// A pruning operation that would empty a domain returns an error matching
// ErrFail. Constraints return it unchanged from Consistency, the store turns
// it into a false result, and the search layer answers by removing the level.
package fd

import (
	"iter"
	"strings"
)

// Kind identifies a domain encoding.
type Kind uint8

const (
	// KindBound is the single-interval encoding.
	KindBound Kind = iota
	// KindInterval is the sorted multi-interval encoding.
	KindInterval
	// KindSmall is the 64-value bitset encoding.
	KindSmall
)

func (k Kind) String() string {
	switch k {
	case KindBound:
		return "bound"
	case KindInterval:
		return "interval"
	case KindSmall:
		return "small"
	default:
		return "kind(?)"
	}
}

// Domain is a finite set of integers in [MinInt, MaxInt].
//
// The interface is closed: *BoundDomain, *IntervalDomain and *SmallDomain are
// its only implementations. Every operation accepts any encoding as argument.
// Operations on empty domains are total; an empty domain has Size() == 0 and
// Min() > Max().
type Domain interface {
	Kind() Kind
	IsEmpty() bool
	Size() int
	Min() int
	Max() int

	// Singleton reports whether the domain holds exactly one value.
	Singleton() bool
	// SingletonValue reports whether the domain is exactly {v}.
	SingletonValue(v int) bool
	// Value returns the value of a singleton domain. It panics otherwise.
	Value() int

	Contains(v int) bool
	ContainsRange(min, max int) bool
	ContainsDomain(d Domain) bool
	IsIntersecting(d Domain) bool
	IsIntersectingRange(min, max int) bool

	IntervalCount() int
	IntervalAt(i int) Interval
	// Intervals returns a fresh copy of the domain's intervals.
	Intervals() []Interval
	// IntervalSeq enumerates intervals in ascending order.
	IntervalSeq() iter.Seq[Interval]
	// Values enumerates values in ascending order.
	Values() iter.Seq[int]

	// NextValue returns the smallest value greater than v. When v is below
	// the domain it returns Min(); when no such value exists it returns v.
	NextValue(v int) int
	// PreviousValue returns the largest value smaller than v. When v is
	// above the domain it returns Max(); when no such value exists it returns v.
	PreviousValue(v int) int

	// Eq reports value equality regardless of encoding.
	Eq(d Domain) bool

	Intersect(d Domain) Domain
	IntersectRange(min, max int) Domain
	Union(d Domain) Domain
	UnionRange(min, max int) Domain
	Subtract(d Domain) Domain
	SubtractRange(min, max int) Domain
	// Complement is taken with respect to [MinInt, MaxInt].
	Complement() Domain
	// Clone copies the values. The copy shares the constraint lists by
	// reference and has no previous version.
	Clone() Domain

	// IntersectAdapt narrows the receiver in place and reports the event.
	// It returns ErrFail, leaving the receiver unchanged, when the result
	// would be empty.
	IntersectAdapt(d Domain) (Event, error)
	IntersectAdaptRange(min, max int) (Event, error)
	SubtractAdapt(v int) (Event, error)
	SubtractAdaptRange(min, max int) (Event, error)

	// Stamp is the backtracking level at which this version was created.
	Stamp() int
	// Previous is the version this one replaced, or nil.
	Previous() Domain

	String() string

	state() *domainState
}

// domainState is the version bookkeeping shared by all encodings.
type domainState struct {
	stamp    int
	previous Domain
	// w is shared by reference between versions until an attach or detach
	// forces a private copy.
	w    *watchers
	ownW bool
}

func (s *domainState) state() *domainState { return s }

// Stamp returns the level at which the version was created.
func (s *domainState) Stamp() int { return s.stamp }

// Previous returns the version this one replaced.
func (s *domainState) Previous() Domain { return s.previous }

// shared returns bookkeeping for a copy that references the same constraints.
func (s *domainState) shared() domainState {
	return domainState{stamp: s.stamp, w: s.w}
}

// link turns d into the successor of old at level.
func link(d, old Domain, level int) {
	st := d.state()
	st.stamp = level
	st.previous = old
	st.w = old.state().w
	st.ownW = false
}

// mutableWatchers returns watchers private to this version.
func (s *domainState) mutableWatchers() *watchers {
	if s.w == nil {
		s.w = &watchers{}
		s.ownW = true
		return s.w
	}
	if !s.ownW {
		s.w = s.w.clone()
		s.ownW = true
	}
	return s.w
}

// watchers holds the constraints attached to a domain.
type watchers struct {
	// model[e-1] holds constraints registered for event e.
	model  [numEventClasses][]Constraint
	search []Constraint
}

func (w *watchers) clone() *watchers {
	c := &watchers{}
	for i := range w.model {
		c.model[i] = append([]Constraint(nil), w.model[i]...)
	}
	c.search = append([]Constraint(nil), w.search...)
	return c
}

func (w *watchers) count() int {
	if w == nil {
		return 0
	}
	n := len(w.search)
	for i := range w.model {
		n += len(w.model[i])
	}
	return n
}

func (w *watchers) has(c Constraint) bool {
	if w == nil {
		return false
	}
	for i := range w.model {
		for _, x := range w.model[i] {
			if x == c {
				return true
			}
		}
	}
	for _, x := range w.search {
		if x == c {
			return true
		}
	}
	return false
}

func removeConstraint(list []Constraint, c Constraint) []Constraint {
	out := list[:0]
	for _, x := range list {
		if x != c {
			out = append(out, x)
		}
	}
	return out
}

func (w *watchers) remove(c Constraint) {
	for i := range w.model {
		w.model[i] = removeConstraint(w.model[i], c)
	}
	w.search = removeConstraint(w.search, c)
}

// formatIntervals renders a domain as {1..3,5,8..9}.
func formatIntervals(seq iter.Seq[Interval]) string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for iv := range seq {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(iv.String())
	}
	b.WriteByte('}')
	return b.String()
}

func valuesOf(seq iter.Seq[Interval]) iter.Seq[int] {
	return func(yield func(int) bool) {
		for iv := range seq {
			for v := iv.Min; v <= iv.Max; v++ {
				if !yield(v) {
					return
				}
			}
		}
	}
}

func sliceSeq(ivs []Interval) iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		for _, iv := range ivs {
			if !yield(iv) {
				return
			}
		}
	}
}

// intervalsOf returns d's intervals, avoiding a copy for interval domains.
// The result must not be modified.
func intervalsOf(d Domain) []Interval {
	if id, ok := d.(*IntervalDomain); ok {
		return id.intervals
	}
	return d.Intervals()
}

// fromIntervals builds the narrowest exact encoding for a normalized list.
func fromIntervals(ivs []Interval) Domain {
	switch len(ivs) {
	case 0:
		return &IntervalDomain{}
	case 1:
		return &BoundDomain{min: ivs[0].Min, max: ivs[0].Max}
	default:
		return &IntervalDomain{intervals: ivs}
	}
}

// ToIntervalDomain converts any encoding to a multi-interval domain.
func ToIntervalDomain(d Domain) *IntervalDomain {
	return &IntervalDomain{intervals: d.Intervals(), domainState: d.state().shared()}
}

// EmptyDomain returns an empty domain of the given encoding.
func EmptyDomain(k Kind) Domain {
	switch k {
	case KindBound:
		return &BoundDomain{min: MaxInt, max: MinInt}
	case KindSmall:
		return &SmallDomain{}
	default:
		return &IntervalDomain{}
	}
}

// NewDomainFromValues returns a SmallDomain when the values fit in one
// 64-value window and an IntervalDomain otherwise.
func NewDomainFromValues(values ...int) Domain {
	if len(values) == 0 {
		return &IntervalDomain{}
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if FitsSmall(lo, hi) {
		return NewSmallDomainFromValues(values...)
	}
	ivs := make([]Interval, len(values))
	for i, v := range values {
		ivs[i] = Interval{v, v}
	}
	return &IntervalDomain{intervals: normalizeIntervals(ivs)}
}

func containsDomain(d, other Domain) bool {
	if other.IsEmpty() {
		return true
	}
	if other.Min() < d.Min() || other.Max() > d.Max() {
		return false
	}
	for iv := range other.IntervalSeq() {
		if !d.ContainsRange(iv.Min, iv.Max) {
			return false
		}
	}
	return true
}
