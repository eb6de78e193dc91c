package fd

import (
	"fmt"
	"iter"
	"math/bits"
)

// smallWidth is the number of values a SmallDomain window can hold.
const smallWidth = 64

// SmallDomain is the 64-value bitset encoding. Bit i of the mask stands for
// the value min+i. A non-empty SmallDomain always has bit 0 set: adaptMin
// re-anchors the window whenever the low end loses presence, so min is the
// true minimum and max-min never exceeds 63.
type SmallDomain struct {
	domainState
	min  int
	bits uint64
}

// FitsSmall reports whether [min, max] fits in one SmallDomain window.
func FitsSmall(min, max int) bool {
	return min <= max && max-min < smallWidth && min >= MinInt && max <= MaxInt
}

// NewSmallDomain returns the domain [min, max]. It panics when the range
// does not fit in 64 values.
func NewSmallDomain(min, max int) *SmallDomain {
	if min > max {
		return &SmallDomain{}
	}
	if !FitsSmall(min, max) {
		panic(fmt.Sprintf("fd: range %d..%d does not fit a small domain", min, max))
	}
	return &SmallDomain{min: min, bits: rangeMask(0, max-min)}
}

// NewSmallDomainFromValues returns the domain holding values. It panics when
// the values span more than 64 integers.
func NewSmallDomainFromValues(values ...int) *SmallDomain {
	if len(values) == 0 {
		return &SmallDomain{}
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if !FitsSmall(lo, hi) {
		panic(fmt.Sprintf("fd: values %d..%d do not fit a small domain", lo, hi))
	}
	d := &SmallDomain{min: lo}
	for _, v := range values {
		d.bits |= 1 << uint(v-lo)
	}
	return d
}

// rangeMask returns a mask with bits lo..hi set, 0 <= lo <= hi < 64.
func rangeMask(lo, hi int) uint64 {
	m := ^uint64(0) >> uint(smallWidth-1-hi)
	return m &^ (uint64(1)<<uint(lo) - 1)
}

// windowMask returns the bits of [lo, hi] relative to anchor.
func windowMask(anchor, lo, hi int) uint64 {
	lo -= anchor
	hi -= anchor
	if lo < 0 {
		lo = 0
	}
	if hi > smallWidth-1 {
		hi = smallWidth - 1
	}
	if lo > hi {
		return 0
	}
	return rangeMask(lo, hi)
}

// alignTo returns other's bits re-anchored at anchor. Values outside the
// anchor's window are dropped.
func alignTo(anchor int, other *SmallDomain) uint64 {
	shift := other.min - anchor
	switch {
	case other.bits == 0 || shift >= smallWidth || shift <= -smallWidth:
		return 0
	case shift >= 0:
		return other.bits << uint(shift)
	default:
		return other.bits >> uint(-shift)
	}
}

// maskOf returns the bits of any domain within the window anchored at anchor.
func maskOf(anchor int, other Domain) uint64 {
	if s, ok := other.(*SmallDomain); ok {
		return alignTo(anchor, s)
	}
	var m uint64
	for iv := range other.IntervalSeq() {
		if iv.Max < anchor {
			continue
		}
		if iv.Min > anchor+smallWidth-1 {
			break
		}
		m |= windowMask(anchor, iv.Min, iv.Max)
	}
	return m
}

// normalized returns (min, bits) re-anchored so that bit 0 is set.
func normalized(anchor int, m uint64) (int, uint64) {
	if m == 0 {
		return 0, 0
	}
	tz := bits.TrailingZeros64(m)
	return anchor + tz, m >> uint(tz)
}

func newSmall(anchor int, m uint64) *SmallDomain {
	lo, b := normalized(anchor, m)
	return &SmallDomain{min: lo, bits: b}
}

// adaptMin re-anchors the window at the lowest present value.
func (d *SmallDomain) adaptMin() {
	d.min, d.bits = normalized(d.min, d.bits)
}

func (d *SmallDomain) Kind() Kind    { return KindSmall }
func (d *SmallDomain) IsEmpty() bool { return d.bits == 0 }
func (d *SmallDomain) Size() int     { return bits.OnesCount64(d.bits) }

func (d *SmallDomain) Min() int {
	if d.bits == 0 {
		return MaxInt
	}
	return d.min
}

func (d *SmallDomain) Max() int {
	if d.bits == 0 {
		return MinInt
	}
	return d.min + smallWidth - 1 - bits.LeadingZeros64(d.bits)
}

func (d *SmallDomain) Singleton() bool { return d.bits == 1 }

func (d *SmallDomain) SingletonValue(v int) bool { return d.bits == 1 && d.min == v }

func (d *SmallDomain) Value() int {
	if !d.Singleton() {
		panic(fmt.Sprintf("fd: Value on non-singleton domain %s", d))
	}
	return d.min
}

func (d *SmallDomain) Contains(v int) bool {
	off := v - d.min
	return off >= 0 && off < smallWidth && d.bits>>uint(off)&1 == 1
}

func (d *SmallDomain) ContainsRange(lo, hi int) bool {
	if lo > hi || lo < d.min || hi-d.min >= smallWidth {
		return false
	}
	m := windowMask(d.min, lo, hi)
	return d.bits&m == m
}

func (d *SmallDomain) ContainsDomain(other Domain) bool {
	if other.IsEmpty() {
		return true
	}
	if other.Min() < d.Min() || other.Max() > d.Max() {
		return false
	}
	m := maskOf(d.min, other)
	return d.bits&m == m
}

func (d *SmallDomain) IsIntersecting(other Domain) bool {
	if d.bits == 0 {
		return false
	}
	return d.bits&maskOf(d.min, other) != 0
}

func (d *SmallDomain) IsIntersectingRange(lo, hi int) bool {
	return d.bits&windowMask(d.min, lo, hi) != 0
}

func (d *SmallDomain) IntervalCount() int {
	// a run starts at every set bit whose lower neighbour is clear
	return bits.OnesCount64(d.bits &^ (d.bits << 1))
}

func (d *SmallDomain) IntervalAt(i int) Interval {
	n := 0
	for iv := range d.IntervalSeq() {
		if n == i {
			return iv
		}
		n++
	}
	panic(fmt.Sprintf("fd: interval %d out of range for %s", i, d))
}

func (d *SmallDomain) IntervalSeq() iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		m := d.bits
		off := 0
		for m != 0 {
			tz := bits.TrailingZeros64(m)
			m >>= uint(tz)
			off += tz
			run := bits.TrailingZeros64(^m)
			if !yield(Interval{d.min + off, d.min + off + run - 1}) {
				return
			}
			if run == smallWidth {
				return
			}
			m >>= uint(run)
			off += run
		}
	}
}

func (d *SmallDomain) Intervals() []Interval {
	out := make([]Interval, 0, d.IntervalCount())
	for iv := range d.IntervalSeq() {
		out = append(out, iv)
	}
	return out
}

func (d *SmallDomain) Values() iter.Seq[int] {
	return func(yield func(int) bool) {
		m := d.bits
		for m != 0 {
			tz := bits.TrailingZeros64(m)
			if !yield(d.min + tz) {
				return
			}
			m &= m - 1
		}
	}
}

func (d *SmallDomain) NextValue(v int) int {
	if d.bits == 0 {
		return v
	}
	if v < d.min {
		return d.min
	}
	off := v - d.min + 1
	if off >= smallWidth {
		return v
	}
	m := d.bits >> uint(off)
	if m == 0 {
		return v
	}
	return v + 1 + bits.TrailingZeros64(m)
}

func (d *SmallDomain) PreviousValue(v int) int {
	if d.bits == 0 {
		return v
	}
	if hi := d.Max(); v > hi {
		return hi
	}
	off := v - d.min
	if off <= 0 {
		return v
	}
	m := d.bits & (uint64(1)<<uint(off) - 1)
	if m == 0 {
		return v
	}
	return d.min + smallWidth - 1 - bits.LeadingZeros64(m)
}

func (d *SmallDomain) Eq(other Domain) bool {
	if s, ok := other.(*SmallDomain); ok {
		return d.bits == s.bits && (d.bits == 0 || d.min == s.min)
	}
	if other.IsEmpty() || d.bits == 0 {
		return other.IsEmpty() && d.bits == 0
	}
	return d.Min() == other.Min() && d.Max() == other.Max() && maskOf(d.min, other) == d.bits
}

// Intersect always yields a SmallDomain, since the result is a subset of d.
func (d *SmallDomain) Intersect(other Domain) Domain {
	return newSmall(d.min, d.bits&maskOf(d.min, other))
}

func (d *SmallDomain) IntersectRange(lo, hi int) Domain {
	return newSmall(d.min, d.bits&windowMask(d.min, lo, hi))
}

// Union stays small when the result fits one window and falls back to an
// IntervalDomain otherwise.
func (d *SmallDomain) Union(other Domain) Domain {
	if other.IsEmpty() {
		return d.Clone()
	}
	if d.bits == 0 {
		return other.Clone()
	}
	lo, hi := min(d.Min(), other.Min()), max(d.Max(), other.Max())
	if FitsSmall(lo, hi) {
		return newSmall(lo, alignTo(lo, d)|maskOf(lo, other))
	}
	return &IntervalDomain{intervals: unionIntervals(d.Intervals(), intervalsOf(other))}
}

func (d *SmallDomain) UnionRange(lo, hi int) Domain {
	lo, hi = clampRange(lo, hi)
	if lo > hi {
		return d.Clone()
	}
	return d.Union(&BoundDomain{min: lo, max: hi})
}

func (d *SmallDomain) Subtract(other Domain) Domain {
	return newSmall(d.min, d.bits&^maskOf(d.min, other))
}

func (d *SmallDomain) SubtractRange(lo, hi int) Domain {
	return newSmall(d.min, d.bits&^windowMask(d.min, lo, hi))
}

// Complement spans the whole value range, so it is an IntervalDomain.
func (d *SmallDomain) Complement() Domain {
	return &IntervalDomain{intervals: complementIntervals(d.Intervals())}
}

func (d *SmallDomain) Clone() Domain {
	return &SmallDomain{domainState: d.shared(), min: d.min, bits: d.bits}
}

// commit installs a mask anchored at the current min.
func (d *SmallDomain) commit(m uint64) (Event, error) {
	if m == 0 {
		return EventNone, ErrFail
	}
	if m == d.bits {
		return EventNone, nil
	}
	oldMin, oldMax, oldSize := d.Min(), d.Max(), d.Size()
	d.bits = m
	d.adaptMin()
	return classify(oldMin, oldMax, oldSize, d), nil
}

func (d *SmallDomain) IntersectAdapt(other Domain) (Event, error) {
	return d.commit(d.bits & maskOf(d.min, other))
}

func (d *SmallDomain) IntersectAdaptRange(lo, hi int) (Event, error) {
	return d.commit(d.bits & windowMask(d.min, lo, hi))
}

func (d *SmallDomain) SubtractAdapt(v int) (Event, error) {
	if d.bits == 0 {
		return EventNone, ErrFail
	}
	if !d.Contains(v) {
		return EventNone, nil
	}
	return d.commit(d.bits &^ (1 << uint(v-d.min)))
}

func (d *SmallDomain) SubtractAdaptRange(lo, hi int) (Event, error) {
	if d.bits == 0 {
		return EventNone, ErrFail
	}
	return d.commit(d.bits &^ windowMask(d.min, lo, hi))
}

func (d *SmallDomain) String() string {
	return formatIntervals(d.IntervalSeq())
}
