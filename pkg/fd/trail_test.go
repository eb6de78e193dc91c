package fd

import (
	"slices"
	"testing"
)

type fakeRestorer struct {
	n     int
	calls [][2]int
}

func (r *fakeRestorer) VarCount() int { return r.n }

func (r *fakeRestorer) RestoreVar(i, level int) { r.calls = append(r.calls, [2]int{i, level}) }

func (r *fakeRestorer) indices() []int {
	var out []int
	for _, c := range r.calls {
		out = append(out, c[0])
	}
	slices.Sort(out)
	return out
}

func TestComputeHoles(t *testing.T) {
	tests := []struct {
		name     string
		changed  []int
		minWidth int
		maxHoles int
		want     []Interval
	}{
		{"wide leading gap kept", []int{3, 5}, 2, 10, []Interval{{0, 2}, {6, MaxInt}}},
		{"narrow leading gap dropped", []int{1, 20}, 2, 10, []Interval{{2, 19}, {21, MaxInt}}},
		{"first index zero", []int{0}, 1, 10, []Interval{{1, MaxInt}}},
		{"trailing gap always kept", []int{7}, 100, 10, []Interval{{8, MaxInt}}},
		{"widest survive", []int{10, 13, 30, 32, 60}, 2, 2, []Interval{{33, 59}, {61, MaxInt}}},
		{"ties keep the lower hole", []int{10, 20, 30, 40}, 2, 3, []Interval{{0, 9}, {11, 19}, {41, MaxInt}}},
		{"nothing changed", nil, 1, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeHoles(tt.changed, tt.minWidth, tt.maxHoles)
			if !slices.Equal(got, tt.want) {
				t.Errorf("computeHoles(%v, %d, %d) = %v, want %v", tt.changed, tt.minWidth, tt.maxHoles, got, tt.want)
			}
		})
	}
}

func TestTrailModeTransitions(t *testing.T) {
	tr := NewTrail(TrailConfig{ExplicitCutoff: 3, FullCutoff: 6, MaxHoles: 3, MinHoleWidth: 2})
	tr.SetLevel(1)
	for _, i := range []int{10, 10, 20, 30} {
		tr.AddChanged(i)
	}
	if tr.Mode() != TrailExplicit {
		t.Fatalf("three distinct changes: mode %s, want explicit", tr.Mode())
	}
	if !tr.IsRecognizedAsChanged(20) || tr.IsRecognizedAsChanged(21) {
		t.Fatal("explicit mode must be exact")
	}

	tr.AddChanged(40)
	if tr.Mode() != TrailHoles {
		t.Fatalf("four changes: mode %s, want holes", tr.Mode())
	}
	if got, want := tr.live().holes, []Interval{{0, 9}, {11, 19}, {41, MaxInt}}; !slices.Equal(got, want) {
		t.Fatalf("holes %v, want %v", got, want)
	}
	for i, want := range map[int]bool{5: false, 10: true, 25: true, 40: true, 50: false} {
		if got := tr.IsRecognizedAsChanged(i); got != want {
			t.Errorf("IsRecognizedAsChanged(%d) = %v, want %v", i, got, want)
		}
	}

	// splitting a hole past MaxHoles keeps only the wider piece
	tr.AddChanged(15)
	tr.AddChanged(25) // already outside every hole
	tr.AddChanged(50)
	if got, want := tr.live().holes, []Interval{{0, 9}, {11, 14}, {51, MaxInt}}; !slices.Equal(got, want) {
		t.Fatalf("holes after splits %v, want %v", got, want)
	}
	if tr.Mode() != TrailHoles {
		t.Fatalf("six changes: mode %s, want holes", tr.Mode())
	}

	tr.AddChanged(5)
	if tr.Mode() != TrailFull {
		t.Fatalf("seven changes: mode %s, want full", tr.Mode())
	}
	if !tr.IsRecognizedAsChanged(12) {
		t.Error("full mode treats every variable as changed")
	}
}

func TestSplitHoleDropsNarrowPieces(t *testing.T) {
	tr := NewTrail(TrailConfig{ExplicitCutoff: 0, FullCutoff: 100, MaxHoles: 10, MinHoleWidth: 5})
	tr.SetLevel(1)
	tr.AddChanged(20)
	if got, want := tr.live().holes, []Interval{{0, 19}, {21, MaxInt}}; !slices.Equal(got, want) {
		t.Fatalf("holes %v, want %v", got, want)
	}
	tr.AddChanged(3)
	if got, want := tr.live().holes, []Interval{{4, 19}, {21, MaxInt}}; !slices.Equal(got, want) {
		t.Fatalf("holes %v, want %v", got, want)
	}
	tr.AddChanged(22)
	if got, want := tr.live().holes, []Interval{{4, 19}, {23, MaxInt}}; !slices.Equal(got, want) {
		t.Fatalf("holes %v, want %v", got, want)
	}
}

func TestFullCutoffOnConversion(t *testing.T) {
	tr := NewTrail(TrailConfig{ExplicitCutoff: 2, FullCutoff: 2, MaxHoles: 10, MinHoleWidth: 1})
	tr.SetLevel(1)
	for i := range 3 {
		tr.AddChanged(i * 10)
	}
	if tr.Mode() != TrailFull {
		t.Fatalf("mode %s, want full", tr.Mode())
	}
	r := &fakeRestorer{n: 7}
	if n := tr.RemoveLevel(1, r); n != 7 {
		t.Fatalf("full restore touched %d variables, want 7", n)
	}
	if got := r.indices(); !slices.Equal(got, []int{0, 1, 2, 3, 4, 5, 6}) {
		t.Fatalf("restored %v", got)
	}
}

func TestTrailRestoreModes(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		tr := NewTrail(TrailConfig{ExplicitCutoff: 10, FullCutoff: 100, MaxHoles: 5, MinHoleWidth: 2})
		tr.SetLevel(1)
		tr.AddChanged(2)
		tr.AddChanged(0)
		tr.AddChanged(2)
		r := &fakeRestorer{n: 5}
		if n := tr.RemoveLevel(1, r); n != 2 {
			t.Fatalf("restored %d, want 2", n)
		}
		if got := r.indices(); !slices.Equal(got, []int{0, 2}) {
			t.Fatalf("restored %v", got)
		}
		for _, c := range r.calls {
			if c[1] != 1 {
				t.Fatalf("restored at level %d, want 1", c[1])
			}
		}
		if tr.Level() != 0 {
			t.Fatalf("level %d after removal", tr.Level())
		}
	})
	t.Run("holes", func(t *testing.T) {
		tr := NewTrail(TrailConfig{ExplicitCutoff: 1, FullCutoff: 100, MaxHoles: 5, MinHoleWidth: 2})
		tr.SetLevel(1)
		tr.AddChanged(3)
		tr.AddChanged(8)
		if tr.Mode() != TrailHoles {
			t.Fatalf("mode %s, want holes", tr.Mode())
		}
		r := &fakeRestorer{n: 12}
		tr.RemoveLevel(1, r)
		if got := r.indices(); !slices.Equal(got, []int{3, 8}) {
			t.Fatalf("restored %v, want [3 8]", got)
		}
	})
}

func TestTrailUnsealsLevelBelow(t *testing.T) {
	tr := NewTrail(TrailConfig{ExplicitCutoff: 10, FullCutoff: 100, MaxHoles: 5, MinHoleWidth: 2})
	tr.SetLevel(1)
	tr.AddChanged(4)
	tr.SetLevel(2)
	if tr.IsRecognizedAsChanged(4) {
		t.Fatal("a sealed level's changes must not leak into the next level")
	}
	tr.AddChanged(5)

	r := &fakeRestorer{n: 6}
	if n := tr.RemoveLevel(2, r); n != 1 {
		t.Fatalf("restored %d, want 1", n)
	}
	if tr.Level() != 1 || !tr.IsRecognizedAsChanged(4) || tr.IsRecognizedAsChanged(5) {
		t.Fatalf("level 1 not live again: level %d", tr.Level())
	}

	st := tr.Stats()
	if st.Entries != 2 || st.Sealed[TrailExplicit] != 1 || st.Restored != 1 {
		t.Fatalf("stats %+v", st)
	}

	tr.AddChanged(4) // already listed
	r = &fakeRestorer{n: 6}
	if n := tr.RemoveLevel(1, r); n != 1 {
		t.Fatalf("restored %d, want 1", n)
	}
}

func TestTrailSkippedLevels(t *testing.T) {
	tr := NewTrail(TrailConfig{ExplicitCutoff: 10, FullCutoff: 100, MaxHoles: 5, MinHoleWidth: 2})
	tr.SetLevel(3)
	tr.AddChanged(1)

	r := &fakeRestorer{n: 2}
	tr.RemoveLevel(3, r)
	if tr.Level() != 2 {
		t.Fatalf("level %d, want 2", tr.Level())
	}
	if n := tr.RemoveLevel(5, r); n != 0 || tr.Level() != 2 {
		t.Fatalf("removing above the live level: restored %d, level %d", n, tr.Level())
	}
	tr.RemoveLevel(1, r)
	if tr.Level() != 0 || tr.Stats().Entries != 1 {
		t.Fatalf("level %d with %d entries, want level 0 alone", tr.Level(), tr.Stats().Entries)
	}

	defer func() {
		if recover() == nil {
			t.Error("lowering through SetLevel must panic")
		}
	}()
	tr.SetLevel(2)
	tr.SetLevel(1)
}

func TestTrailModeString(t *testing.T) {
	for m, want := range map[TrailMode]string{TrailExplicit: "explicit", TrailHoles: "holes", TrailFull: "full", 9: "mode(?)"} {
		if m.String() != want {
			t.Errorf("%d.String() = %q, want %q", m, m.String(), want)
		}
	}
}
