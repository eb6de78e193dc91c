package fd

import (
	"fmt"
	"slices"
	"sort"
)

// TrailMode is the encoding a trail entry uses to remember which variables
// changed at its level.
type TrailMode uint8

const (
	// TrailExplicit lists the changed indices.
	TrailExplicit TrailMode = iota
	// TrailHoles lists index ranges known to be unchanged; everything
	// outside the holes is treated as changed.
	TrailHoles
	// TrailFull treats every variable as changed.
	TrailFull
)

func (m TrailMode) String() string {
	switch m {
	case TrailExplicit:
		return "explicit"
	case TrailHoles:
		return "holes"
	case TrailFull:
		return "full"
	default:
		return "mode(?)"
	}
}

// Restorer gives the trail access to the variables it restores.
type Restorer interface {
	// VarCount is the number of registered variables.
	VarCount() int
	// RestoreVar drops every version of variable i stamped at level or above.
	RestoreVar(i, level int)
}

// TrailStats counts what the trail recorded and restored.
type TrailStats struct {
	// Entries is the number of entries on the stack, the live one included.
	Entries int
	// Sealed counts sealed entries by the mode they ended in.
	Sealed [3]int
	// Restored is the number of RestoreVar calls issued.
	Restored int
}

type trailEntry struct {
	level   int
	mode    TrailMode
	changed []int
	// holes are sorted, disjoint ranges of unchanged indices. The last one
	// is open-ended.
	holes []Interval
	// count is the number of distinct changes seen since the entry left
	// explicit mode.
	count int
}

// Trail records, per backtracking level, which variables changed so that
// RemoveLevel can restore exactly those. Each level starts with an explicit
// index list, moves to a hole list once the list outgrows ExplicitCutoff,
// and gives up tracking (TrailFull) once holes run out or FullCutoff is
// exceeded.
type Trail struct {
	cfg     TrailConfig
	entries []trailEntry
	// marks[i] == epoch when i is already in the live explicit list.
	marks []uint64
	epoch uint64
	stats TrailStats
}

// NewTrail returns a trail whose live entry is level 0.
func NewTrail(cfg TrailConfig) *Trail {
	return &Trail{
		cfg:     cfg,
		entries: []trailEntry{{level: 0}},
		epoch:   1,
	}
}

func (t *Trail) live() *trailEntry { return &t.entries[len(t.entries)-1] }

// Level is the level of the live entry.
func (t *Trail) Level() int { return t.live().level }

// Mode is the encoding of the live entry.
func (t *Trail) Mode() TrailMode { return t.live().mode }

// Stats returns a snapshot of the trail counters.
func (t *Trail) Stats() TrailStats {
	s := t.stats
	s.Entries = len(t.entries)
	return s
}

// SetLevel seals the live entry and opens one for level. Lowering the level
// is done with RemoveLevel; SetLevel panics on it.
func (t *Trail) SetLevel(level int) {
	e := t.live()
	switch {
	case level == e.level:
		return
	case level < e.level:
		panic(fmt.Sprintf("fd: trail SetLevel(%d) below live level %d", level, e.level))
	}
	t.seal(e)
	t.entries = append(t.entries, trailEntry{level: level})
	t.epoch++
}

func (t *Trail) seal(e *trailEntry) {
	if e.mode == TrailExplicit {
		slices.Sort(e.changed)
	}
	t.stats.Sealed[e.mode]++
}

// AddChanged records that variable i changed at the live level.
func (t *Trail) AddChanged(i int) {
	e := t.live()
	switch e.mode {
	case TrailExplicit:
		if i >= len(t.marks) {
			t.marks = append(t.marks, make([]uint64, i+1-len(t.marks))...)
		}
		if t.marks[i] == t.epoch {
			return
		}
		t.marks[i] = t.epoch
		e.changed = append(e.changed, i)
		if len(e.changed) > t.cfg.ExplicitCutoff {
			t.toHoles(e)
		}
	case TrailHoles:
		t.splitHole(e, i)
	}
}

// toHoles converts the live explicit list into a hole list.
func (t *Trail) toHoles(e *trailEntry) {
	slices.Sort(e.changed)
	e.holes = computeHoles(e.changed, t.cfg.MinHoleWidth, t.cfg.MaxHoles)
	e.count = len(e.changed)
	e.changed = nil
	e.mode = TrailHoles
	t.checkFull(e)
}

func (t *Trail) checkFull(e *trailEntry) {
	if len(e.holes) == 0 || e.count > t.cfg.FullCutoff {
		e.mode = TrailFull
		e.holes = nil
	}
}

// computeHoles returns the gaps between the sorted indices in changed that
// are at least minWidth wide. The gap after the last index is open-ended and
// always kept; the gap before the first index is kept only when wide enough.
// At most maxHoles gaps survive, widest first.
func computeHoles(changed []int, minWidth, maxHoles int) []Interval {
	if len(changed) == 0 || maxHoles <= 0 {
		return nil
	}
	var holes []Interval
	if changed[0] >= minWidth && changed[0] > 0 {
		holes = append(holes, Interval{0, changed[0] - 1})
	}
	for j := 1; j < len(changed); j++ {
		gap := changed[j] - changed[j-1] - 1
		if gap > 0 && gap >= minWidth {
			holes = append(holes, Interval{changed[j-1] + 1, changed[j] - 1})
		}
	}
	holes = append(holes, Interval{changed[len(changed)-1] + 1, MaxInt})
	if len(holes) > maxHoles {
		// stable keeps lower holes first among equal widths
		sort.SliceStable(holes, func(a, b int) bool {
			return holes[a].Size() > holes[b].Size()
		})
		holes = holes[:maxHoles]
		slices.SortFunc(holes, func(a, b Interval) int { return a.Min - b.Min })
	}
	return holes
}

// splitHole marks i as changed in holes mode.
func (t *Trail) splitHole(e *trailEntry, i int) {
	k := findInterval(e.holes, i)
	if k < 0 {
		return
	}
	e.count++
	h := e.holes[k]
	var pieces []Interval
	if i > h.Min && i-h.Min >= t.cfg.MinHoleWidth {
		pieces = append(pieces, Interval{h.Min, i - 1})
	}
	if i < h.Max && (h.Max == MaxInt || h.Max-i >= t.cfg.MinHoleWidth) {
		pieces = append(pieces, Interval{i + 1, h.Max})
	}
	if len(e.holes)-1+len(pieces) > t.cfg.MaxHoles && len(pieces) == 2 {
		// keep the wider piece
		if pieces[0].Size() >= pieces[1].Size() {
			pieces = pieces[:1]
		} else {
			pieces = pieces[1:]
		}
	}
	holes := make([]Interval, 0, len(e.holes)+1)
	holes = append(holes, e.holes[:k]...)
	holes = append(holes, pieces...)
	holes = append(holes, e.holes[k+1:]...)
	e.holes = holes
	t.checkFull(e)
}

// IsRecognizedAsChanged reports whether i counts as changed at the live
// level. It is exact in explicit mode and may over-approximate otherwise.
func (t *Trail) IsRecognizedAsChanged(i int) bool {
	e := t.live()
	switch e.mode {
	case TrailExplicit:
		return i < len(t.marks) && t.marks[i] == t.epoch
	case TrailHoles:
		return findInterval(e.holes, i) < 0
	default:
		return true
	}
}

// RemoveLevel restores, top-down, every entry at level or above and makes
// the entry below live again. It returns the number of restored indices.
func (t *Trail) RemoveLevel(level int, r Restorer) int {
	if t.live().level < level {
		return 0
	}
	restored := 0
	for len(t.entries) > 0 && t.live().level >= level {
		restored += t.restore(t.live(), r)
		t.entries = t.entries[:len(t.entries)-1]
	}
	t.stats.Restored += restored
	t.epoch++
	if len(t.entries) == 0 || t.live().level < level-1 {
		t.entries = append(t.entries, trailEntry{level: max(level-1, 0)})
		return restored
	}
	// the entry below is live again
	e := t.live()
	t.stats.Sealed[e.mode]--
	if e.mode == TrailExplicit {
		for _, i := range e.changed {
			t.marks[i] = t.epoch
		}
	}
	return restored
}

func (t *Trail) restore(e *trailEntry, r Restorer) int {
	switch e.mode {
	case TrailExplicit:
		for _, i := range e.changed {
			r.RestoreVar(i, e.level)
		}
		return len(e.changed)
	case TrailHoles:
		n, k := 0, 0
		for i := range r.VarCount() {
			for k < len(e.holes) && e.holes[k].Max < i {
				k++
			}
			if k < len(e.holes) && e.holes[k].Contains(i) {
				continue
			}
			r.RestoreVar(i, e.level)
			n++
		}
		return n
	default:
		n := r.VarCount()
		for i := range n {
			r.RestoreVar(i, e.level)
		}
		return n
	}
}
