package fd

import (
	"fmt"
	"iter"
)

// BoundDomain is the single-interval encoding. All operations are O(1), and
// pruning that would open a hole inside the interval is ignored: a bound
// domain only tracks its minimum and maximum.
type BoundDomain struct {
	domainState
	min int
	max int
}

// NewBoundDomain returns the domain [min, max]. It is empty when min > max.
func NewBoundDomain(min, max int) *BoundDomain {
	min, max = clampRange(min, max)
	if min > max {
		return &BoundDomain{min: MaxInt, max: MinInt}
	}
	return &BoundDomain{min: min, max: max}
}

func (d *BoundDomain) Kind() Kind    { return KindBound }
func (d *BoundDomain) IsEmpty() bool { return d.min > d.max }
func (d *BoundDomain) Min() int      { return d.min }
func (d *BoundDomain) Max() int      { return d.max }

func (d *BoundDomain) Size() int {
	if d.IsEmpty() {
		return 0
	}
	return d.max - d.min + 1
}

func (d *BoundDomain) Singleton() bool           { return d.min == d.max }
func (d *BoundDomain) SingletonValue(v int) bool { return d.min == v && d.max == v }
func (d *BoundDomain) Contains(v int) bool       { return v >= d.min && v <= d.max }

func (d *BoundDomain) ContainsRange(min, max int) bool {
	return min <= max && min >= d.min && max <= d.max
}

func (d *BoundDomain) Value() int {
	if !d.Singleton() {
		panic(fmt.Sprintf("fd: Value on non-singleton domain %s", d))
	}
	return d.min
}

func (d *BoundDomain) ContainsDomain(other Domain) bool {
	if other.IsEmpty() {
		return true
	}
	return other.Min() >= d.min && other.Max() <= d.max
}

func (d *BoundDomain) IsIntersecting(other Domain) bool {
	if d.IsEmpty() {
		return false
	}
	return other.IsIntersectingRange(d.min, d.max)
}

func (d *BoundDomain) IsIntersectingRange(min, max int) bool {
	return !d.IsEmpty() && min <= max && min <= d.max && max >= d.min
}

func (d *BoundDomain) IntervalCount() int {
	if d.IsEmpty() {
		return 0
	}
	return 1
}

func (d *BoundDomain) IntervalAt(i int) Interval {
	if i != 0 || d.IsEmpty() {
		panic(fmt.Sprintf("fd: interval %d out of range for %s", i, d))
	}
	return Interval{d.min, d.max}
}

func (d *BoundDomain) Intervals() []Interval {
	if d.IsEmpty() {
		return nil
	}
	return []Interval{{d.min, d.max}}
}

func (d *BoundDomain) IntervalSeq() iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		if !d.IsEmpty() {
			yield(Interval{d.min, d.max})
		}
	}
}

func (d *BoundDomain) Values() iter.Seq[int] { return valuesOf(d.IntervalSeq()) }

func (d *BoundDomain) NextValue(v int) int {
	switch {
	case d.IsEmpty():
		return v
	case v < d.min:
		return d.min
	case v < d.max:
		return v + 1
	default:
		return v
	}
}

func (d *BoundDomain) PreviousValue(v int) int {
	switch {
	case d.IsEmpty():
		return v
	case v > d.max:
		return d.max
	case v > d.min:
		return v - 1
	default:
		return v
	}
}

func (d *BoundDomain) Eq(other Domain) bool {
	if b, ok := other.(*BoundDomain); ok {
		if d.IsEmpty() || b.IsEmpty() {
			return d.IsEmpty() && b.IsEmpty()
		}
		return d.min == b.min && d.max == b.max
	}
	return equalIntervals(d.Intervals(), intervalsOf(other))
}

func (d *BoundDomain) Intersect(other Domain) Domain {
	if b, ok := other.(*BoundDomain); ok {
		return NewBoundDomain(max(d.min, b.min), min(d.max, b.max))
	}
	if d.IsEmpty() {
		return EmptyDomain(KindBound)
	}
	return fromIntervals(intersectIntervalsRange(intervalsOf(other), d.min, d.max))
}

func (d *BoundDomain) IntersectRange(lo, hi int) Domain {
	return NewBoundDomain(max(d.min, lo), min(d.max, hi))
}

func (d *BoundDomain) Union(other Domain) Domain {
	if other.IsEmpty() {
		return d.Clone()
	}
	if d.IsEmpty() {
		return other.Clone()
	}
	return fromIntervals(unionIntervals(d.Intervals(), intervalsOf(other)))
}

func (d *BoundDomain) UnionRange(lo, hi int) Domain {
	lo, hi = clampRange(lo, hi)
	if lo > hi {
		return d.Clone()
	}
	return fromIntervals(unionIntervals(d.Intervals(), []Interval{{lo, hi}}))
}

func (d *BoundDomain) Subtract(other Domain) Domain {
	if d.IsEmpty() || other.IsEmpty() {
		return d.Clone()
	}
	return fromIntervals(subtractIntervals(d.Intervals(), intervalsOf(other)))
}

func (d *BoundDomain) SubtractRange(lo, hi int) Domain {
	if d.IsEmpty() || lo > hi {
		return d.Clone()
	}
	return fromIntervals(subtractIntervals(d.Intervals(), []Interval{{lo, hi}}))
}

func (d *BoundDomain) Complement() Domain {
	return fromIntervals(complementIntervals(d.Intervals()))
}

func (d *BoundDomain) Clone() Domain {
	return &BoundDomain{domainState: d.shared(), min: d.min, max: d.max}
}

// set commits new bounds and reports the event.
func (d *BoundDomain) set(lo, hi int) (Event, error) {
	if lo > hi {
		return EventNone, ErrFail
	}
	if lo == d.min && hi == d.max {
		return EventNone, nil
	}
	d.min, d.max = lo, hi
	if lo == hi {
		return EventGround, nil
	}
	return EventBound, nil
}

// IntersectAdapt keeps the hull of the intersection.
func (d *BoundDomain) IntersectAdapt(other Domain) (Event, error) {
	if d.IsEmpty() || other.IsEmpty() {
		return EventNone, ErrFail
	}
	if b, ok := other.(*BoundDomain); ok {
		return d.set(max(d.min, b.min), min(d.max, b.max))
	}
	ivs := intersectIntervalsRange(intervalsOf(other), d.min, d.max)
	if len(ivs) == 0 {
		return EventNone, ErrFail
	}
	lo, hi := ivs[0].Min, ivs[len(ivs)-1].Max
	return d.set(lo, hi)
}

func (d *BoundDomain) IntersectAdaptRange(lo, hi int) (Event, error) {
	if d.IsEmpty() {
		return EventNone, ErrFail
	}
	return d.set(max(d.min, lo), min(d.max, hi))
}

// SubtractAdapt removes v when it is a bound. Interior values are ignored.
func (d *BoundDomain) SubtractAdapt(v int) (Event, error) {
	switch {
	case d.IsEmpty():
		return EventNone, ErrFail
	case v == d.min:
		return d.set(d.min+1, d.max)
	case v == d.max:
		return d.set(d.min, d.max-1)
	default:
		return EventNone, nil
	}
}

// SubtractAdaptRange removes [lo, hi] when it covers a bound. A range
// strictly inside the domain is ignored.
func (d *BoundDomain) SubtractAdaptRange(lo, hi int) (Event, error) {
	switch {
	case d.IsEmpty():
		return EventNone, ErrFail
	case lo > hi || hi < d.min || lo > d.max:
		return EventNone, nil
	case lo <= d.min && hi >= d.max:
		return EventNone, ErrFail
	case lo <= d.min:
		return d.set(hi+1, d.max)
	case hi >= d.max:
		return d.set(d.min, lo-1)
	default:
		return EventNone, nil
	}
}

func (d *BoundDomain) String() string {
	return formatIntervals(d.IntervalSeq())
}
