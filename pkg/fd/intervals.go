package fd

import (
	"fmt"
	"sort"
)

// Value range of every domain. Keeping the range well inside int32 leaves
// room for offset arithmetic (shift, complement) without overflow checks.
const (
	MinInt = -10_000_000
	MaxInt = 10_000_000
)

// Interval is the closed range [Min, Max].
type Interval struct {
	Min int
	Max int
}

// Size returns the number of values in the interval, 0 if Min > Max.
func (iv Interval) Size() int {
	if iv.Min > iv.Max {
		return 0
	}
	return iv.Max - iv.Min + 1
}

// Contains reports whether v lies within the interval.
func (iv Interval) Contains(v int) bool {
	return v >= iv.Min && v <= iv.Max
}

func (iv Interval) String() string {
	if iv.Min == iv.Max {
		return fmt.Sprintf("%d", iv.Min)
	}
	return fmt.Sprintf("%d..%d", iv.Min, iv.Max)
}

// The functions below implement the interval-list algebra shared by every
// encoding. Lists are sorted, disjoint and never adjacent; results obey the
// same invariant.

func clampRange(min, max int) (int, int) {
	if min < MinInt {
		min = MinInt
	}
	if max > MaxInt {
		max = MaxInt
	}
	return min, max
}

// normalizeIntervals sorts arbitrary intervals and merges overlapping or
// adjacent ones. Empty intervals are dropped.
func normalizeIntervals(in []Interval) []Interval {
	out := make([]Interval, 0, len(in))
	for _, iv := range in {
		iv.Min, iv.Max = clampRange(iv.Min, iv.Max)
		if iv.Min <= iv.Max {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Min < out[j].Min })
	n := 0
	for _, iv := range out {
		if n > 0 && iv.Min <= out[n-1].Max+1 {
			if iv.Max > out[n-1].Max {
				out[n-1].Max = iv.Max
			}
			continue
		}
		out[n] = iv
		n++
	}
	return out[:n]
}

func sizeOfIntervals(ivs []Interval) int {
	n := 0
	for _, iv := range ivs {
		n += iv.Size()
	}
	return n
}

// findInterval returns the index of the interval holding v, or -1.
func findInterval(ivs []Interval, v int) int {
	i := sort.Search(len(ivs), func(i int) bool { return ivs[i].Max >= v })
	if i < len(ivs) && ivs[i].Min <= v {
		return i
	}
	return -1
}

func intersectIntervals(a, b []Interval) []Interval {
	out := make([]Interval, 0, len(a))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo, hi := a[i].Min, a[i].Max
		if b[j].Min > lo {
			lo = b[j].Min
		}
		if b[j].Max < hi {
			hi = b[j].Max
		}
		if lo <= hi {
			out = append(out, Interval{lo, hi})
		}
		if a[i].Max < b[j].Max {
			i++
		} else {
			j++
		}
	}
	return out
}

func intersectIntervalsRange(a []Interval, min, max int) []Interval {
	out := make([]Interval, 0, len(a))
	for _, iv := range a {
		if iv.Max < min {
			continue
		}
		if iv.Min > max {
			break
		}
		lo, hi := iv.Min, iv.Max
		if lo < min {
			lo = min
		}
		if hi > max {
			hi = max
		}
		out = append(out, Interval{lo, hi})
	}
	return out
}

func unionIntervals(a, b []Interval) []Interval {
	out := make([]Interval, 0, len(a)+len(b))
	push := func(iv Interval) {
		if n := len(out); n > 0 && iv.Min <= out[n-1].Max+1 {
			if iv.Max > out[n-1].Max {
				out[n-1].Max = iv.Max
			}
			return
		}
		out = append(out, iv)
	}
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		if j >= len(b) || (i < len(a) && a[i].Min <= b[j].Min) {
			push(a[i])
			i++
		} else {
			push(b[j])
			j++
		}
	}
	return out
}

func subtractIntervals(a, b []Interval) []Interval {
	out := make([]Interval, 0, len(a))
	j := 0
	for _, iv := range a {
		lo := iv.Min
		for j < len(b) && b[j].Max < lo {
			j++
		}
		k := j
		for k < len(b) && b[k].Min <= iv.Max {
			if b[k].Min > lo {
				out = append(out, Interval{lo, b[k].Min - 1})
			}
			if b[k].Max+1 > lo {
				lo = b[k].Max + 1
			}
			if b[k].Max > iv.Max {
				break
			}
			k++
		}
		if lo <= iv.Max {
			out = append(out, Interval{lo, iv.Max})
		}
	}
	return out
}

func complementIntervals(a []Interval) []Interval {
	out := make([]Interval, 0, len(a)+1)
	next := MinInt
	for _, iv := range a {
		if iv.Min > next {
			out = append(out, Interval{next, iv.Min - 1})
		}
		next = iv.Max + 1
	}
	if next <= MaxInt {
		out = append(out, Interval{next, MaxInt})
	}
	return out
}

func shiftIntervals(a []Interval, shift int) []Interval {
	out := make([]Interval, 0, len(a))
	for _, iv := range a {
		out = append(out, Interval{iv.Min + shift, iv.Max + shift})
	}
	return normalizeIntervals(out)
}

func equalIntervals(a, b []Interval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intervalsIntersect(a, b []Interval) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Max < b[j].Min {
			i++
		} else if b[j].Max < a[i].Min {
			j++
		} else {
			return true
		}
	}
	return false
}

// nextInIntervals returns the smallest value greater than v, or v.
func nextInIntervals(a []Interval, v int) int {
	for _, iv := range a {
		if iv.Max <= v {
			continue
		}
		if iv.Min > v {
			return iv.Min
		}
		return v + 1
	}
	return v
}

// previousInIntervals returns the largest value smaller than v, or v.
func previousInIntervals(a []Interval, v int) int {
	for i := len(a) - 1; i >= 0; i-- {
		iv := a[i]
		if iv.Min >= v {
			continue
		}
		if iv.Max < v {
			return iv.Max
		}
		return v - 1
	}
	return v
}
