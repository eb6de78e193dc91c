package fd

import (
	"fmt"
	"iter"
)

// IntervalDomain is the multi-interval encoding: sorted, disjoint and
// non-adjacent intervals. Operations sweep the interval arrays, so their
// cost follows the number of intervals rather than the number of values.
type IntervalDomain struct {
	domainState
	intervals []Interval
}

// NewIntervalDomain returns the domain [min, max].
func NewIntervalDomain(min, max int) *IntervalDomain {
	min, max = clampRange(min, max)
	if min > max {
		return &IntervalDomain{}
	}
	return &IntervalDomain{intervals: []Interval{{min, max}}}
}

// NewIntervalDomainFrom returns the union of the given intervals, which may
// be unsorted and overlapping.
func NewIntervalDomainFrom(ivs ...Interval) *IntervalDomain {
	return &IntervalDomain{intervals: normalizeIntervals(ivs)}
}

func (d *IntervalDomain) Kind() Kind    { return KindInterval }
func (d *IntervalDomain) IsEmpty() bool { return len(d.intervals) == 0 }

func (d *IntervalDomain) Size() int { return sizeOfIntervals(d.intervals) }

func (d *IntervalDomain) Min() int {
	if d.IsEmpty() {
		return MaxInt
	}
	return d.intervals[0].Min
}

func (d *IntervalDomain) Max() int {
	if d.IsEmpty() {
		return MinInt
	}
	return d.intervals[len(d.intervals)-1].Max
}

func (d *IntervalDomain) Singleton() bool {
	return len(d.intervals) == 1 && d.intervals[0].Min == d.intervals[0].Max
}

func (d *IntervalDomain) SingletonValue(v int) bool {
	return d.Singleton() && d.intervals[0].Min == v
}

func (d *IntervalDomain) Value() int {
	if !d.Singleton() {
		panic(fmt.Sprintf("fd: Value on non-singleton domain %s", d))
	}
	return d.intervals[0].Min
}

func (d *IntervalDomain) Contains(v int) bool {
	return findInterval(d.intervals, v) >= 0
}

func (d *IntervalDomain) ContainsRange(min, max int) bool {
	if min > max {
		return false
	}
	i := findInterval(d.intervals, min)
	return i >= 0 && d.intervals[i].Max >= max
}

func (d *IntervalDomain) ContainsDomain(other Domain) bool {
	return containsDomain(d, other)
}

func (d *IntervalDomain) IsIntersecting(other Domain) bool {
	if d.IsEmpty() || other.IsEmpty() {
		return false
	}
	if b, ok := other.(*BoundDomain); ok {
		return d.IsIntersectingRange(b.min, b.max)
	}
	return intervalsIntersect(d.intervals, intervalsOf(other))
}

func (d *IntervalDomain) IsIntersectingRange(min, max int) bool {
	if min > max {
		return false
	}
	for _, iv := range d.intervals {
		if iv.Max < min {
			continue
		}
		return iv.Min <= max
	}
	return false
}

func (d *IntervalDomain) IntervalCount() int        { return len(d.intervals) }
func (d *IntervalDomain) IntervalAt(i int) Interval { return d.intervals[i] }

func (d *IntervalDomain) Intervals() []Interval {
	return append([]Interval(nil), d.intervals...)
}

func (d *IntervalDomain) IntervalSeq() iter.Seq[Interval] { return sliceSeq(d.intervals) }
func (d *IntervalDomain) Values() iter.Seq[int]           { return valuesOf(d.IntervalSeq()) }

func (d *IntervalDomain) NextValue(v int) int     { return nextInIntervals(d.intervals, v) }
func (d *IntervalDomain) PreviousValue(v int) int { return previousInIntervals(d.intervals, v) }

func (d *IntervalDomain) Eq(other Domain) bool {
	return equalIntervals(d.intervals, intervalsOf(other))
}

func (d *IntervalDomain) Intersect(other Domain) Domain {
	if b, ok := other.(*BoundDomain); ok {
		return d.IntersectRange(b.min, b.max)
	}
	return &IntervalDomain{intervals: intersectIntervals(d.intervals, intervalsOf(other))}
}

func (d *IntervalDomain) IntersectRange(lo, hi int) Domain {
	return &IntervalDomain{intervals: intersectIntervalsRange(d.intervals, lo, hi)}
}

func (d *IntervalDomain) Union(other Domain) Domain {
	return &IntervalDomain{intervals: unionIntervals(d.intervals, intervalsOf(other))}
}

func (d *IntervalDomain) UnionRange(lo, hi int) Domain {
	lo, hi = clampRange(lo, hi)
	if lo > hi {
		return d.Clone()
	}
	return &IntervalDomain{intervals: unionIntervals(d.intervals, []Interval{{lo, hi}})}
}

func (d *IntervalDomain) Subtract(other Domain) Domain {
	return &IntervalDomain{intervals: subtractIntervals(d.intervals, intervalsOf(other))}
}

func (d *IntervalDomain) SubtractRange(lo, hi int) Domain {
	if lo > hi {
		return d.Clone()
	}
	return &IntervalDomain{intervals: subtractIntervals(d.intervals, []Interval{{lo, hi}})}
}

func (d *IntervalDomain) Complement() Domain {
	return &IntervalDomain{intervals: complementIntervals(d.intervals)}
}

func (d *IntervalDomain) Clone() Domain {
	return &IntervalDomain{domainState: d.shared(), intervals: d.Intervals()}
}

// commit installs a freshly computed interval list.
func (d *IntervalDomain) commit(ivs []Interval) (Event, error) {
	if len(ivs) == 0 {
		return EventNone, ErrFail
	}
	oldMin, oldMax, oldSize := d.Min(), d.Max(), d.Size()
	d.intervals = ivs
	return classify(oldMin, oldMax, oldSize, d), nil
}

func (d *IntervalDomain) IntersectAdapt(other Domain) (Event, error) {
	if b, ok := other.(*BoundDomain); ok {
		return d.IntersectAdaptRange(b.min, b.max)
	}
	return d.commit(intersectIntervals(d.intervals, intervalsOf(other)))
}

func (d *IntervalDomain) IntersectAdaptRange(lo, hi int) (Event, error) {
	if !d.IsEmpty() && lo <= d.Min() && hi >= d.Max() {
		return EventNone, nil
	}
	return d.commit(intersectIntervalsRange(d.intervals, lo, hi))
}

func (d *IntervalDomain) SubtractAdapt(v int) (Event, error) {
	if d.IsEmpty() {
		return EventNone, ErrFail
	}
	i := findInterval(d.intervals, v)
	if i < 0 {
		return EventNone, nil
	}
	if d.Singleton() {
		return EventNone, ErrFail
	}
	oldMin, oldMax, oldSize := d.Min(), d.Max(), d.Size()
	iv := d.intervals[i]
	out := make([]Interval, 0, len(d.intervals)+1)
	out = append(out, d.intervals[:i]...)
	switch {
	case iv.Min == iv.Max:
	case v == iv.Min:
		out = append(out, Interval{v + 1, iv.Max})
	case v == iv.Max:
		out = append(out, Interval{iv.Min, v - 1})
	default:
		out = append(out, Interval{iv.Min, v - 1}, Interval{v + 1, iv.Max})
	}
	out = append(out, d.intervals[i+1:]...)
	d.intervals = out
	return classify(oldMin, oldMax, oldSize, d), nil
}

func (d *IntervalDomain) SubtractAdaptRange(lo, hi int) (Event, error) {
	if d.IsEmpty() {
		return EventNone, ErrFail
	}
	if lo > hi || !d.IsIntersectingRange(lo, hi) {
		return EventNone, nil
	}
	return d.commit(subtractIntervals(d.intervals, []Interval{{lo, hi}}))
}

func (d *IntervalDomain) String() string {
	return formatIntervals(d.IntervalSeq())
}
