package fd

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConstraint attaches to vars and records how the store drives it.
type recordingConstraint struct {
	name   string
	queue  int
	vars   []Var
	event  Event
	search bool
	fn     func(s *Store) error
	trace  *[]string

	calls  int
	queued []Var
	weight int
}

func (c *recordingConstraint) Impose(s *Store) {
	ev := c.event
	if ev == EventNone {
		ev = EventAny
	}
	for _, v := range c.vars {
		if c.search {
			v.PutSearchConstraint(c)
		} else {
			v.PutModelConstraint(c, ev)
		}
	}
}

func (c *recordingConstraint) Consistency(s *Store) error {
	c.calls++
	if c.trace != nil {
		*c.trace = append(*c.trace, c.name)
	}
	if c.fn != nil {
		return c.fn(s)
	}
	return nil
}

func (c *recordingConstraint) QueueIndex() int { return c.queue }

func (c *recordingConstraint) String() string { return c.name }

func (c *recordingConstraint) QueueVariable(level int, v Var) { c.queued = append(c.queued, v) }

func (c *recordingConstraint) IncreaseWeight() { c.weight++ }

type observedChange struct {
	id string
	ev Event
}

type recordingObserver struct{ changes []observedChange }

func (o *recordingObserver) DomainChanged(v Var, ev Event) {
	o.changes = append(o.changes, observedChange{v.ID(), ev})
}

func TestQueuesRunInPriorityOrder(t *testing.T) {
	s := NewStore()
	x := s.NewIntVarRange("x", 0, 10)
	var trace []string
	for _, c := range []*recordingConstraint{
		{name: "a", queue: 2},
		{name: "b", queue: 0},
		{name: "c", queue: 7},
		{name: "d", queue: -1},
	} {
		c.vars, c.trace = []Var{x}, &trace
		s.Impose(c)
	}

	require.NoError(t, x.InMax(5))
	require.True(t, s.Consistency())
	// out-of-range indices are clamped to the first and last queue
	assert.Equal(t, []string{"b", "d", "a", "c"}, trace)
}

func TestPendingConstraintKeepsStrongestEvent(t *testing.T) {
	s := NewStore()
	x := s.NewIntVarRange("x", 0, 10)
	c := &recordingConstraint{name: "c", vars: []Var{x}}
	s.Impose(c)

	require.NoError(t, x.InComplement(5))
	require.NoError(t, x.InMax(3))
	assert.Equal(t, 1, s.sched.size())
	assert.Equal(t, EventBound, s.sched.pending[c])
	assert.Equal(t, []Var{x, x}, c.queued)

	require.True(t, s.Consistency())
	assert.Equal(t, 1, c.calls)
	assert.Zero(t, s.sched.size())
}

func TestEventClassFiltering(t *testing.T) {
	s := NewStore()
	x := s.NewIntVarRange("x", 0, 10)
	anyEv := &recordingConstraint{name: "any", vars: []Var{x}, event: EventAny}
	bound := &recordingConstraint{name: "bound", vars: []Var{x}, event: EventBound}
	ground := &recordingConstraint{name: "ground", vars: []Var{x}, event: EventGround}
	search := &recordingConstraint{name: "search", vars: []Var{x}, search: true}
	for _, c := range []Constraint{anyEv, bound, ground, search} {
		s.Impose(c)
	}
	assert.Equal(t, 4, x.ConstraintCount())

	require.NoError(t, x.InComplement(5))
	require.True(t, s.Consistency())
	require.NoError(t, x.InMax(8))
	require.True(t, s.Consistency())
	require.NoError(t, x.InValue(2))
	require.True(t, s.Consistency())

	assert.Equal(t, 3, anyEv.calls)
	assert.Equal(t, 2, bound.calls)
	assert.Equal(t, 1, ground.calls)
	assert.Equal(t, 3, search.calls)
}

func TestRunningConstraintIsNotRescheduled(t *testing.T) {
	s := NewStore()
	x := s.NewIntVarRange("x", 0, 10)
	y := s.NewIntVarRange("y", 0, 10)
	c := &recordingConstraint{name: "c", vars: []Var{x, y}}
	c.fn = func(s *Store) error {
		assert.Same(t, c, s.CurrentConstraint())
		return x.InMax(5)
	}
	d := &recordingConstraint{name: "d", vars: []Var{x}}
	s.Impose(c)
	s.Impose(d)

	require.NoError(t, y.InMax(5))
	require.True(t, s.Consistency())
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, 1, d.calls)
	assert.Nil(t, s.CurrentConstraint())
}

func TestConsistencyFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewStore(WithLogger(logger))
	x := s.NewIntVarRange("x", 0, 10)
	y := s.NewIntVarRange("y", 0, 10)
	c := &recordingConstraint{name: "c", vars: []Var{y}, fn: func(*Store) error { return x.In(20, 30) }}
	e := &recordingConstraint{name: "e", vars: []Var{y}, queue: 4}
	s.Impose(c)
	s.Impose(e)

	s.SetLevel(1)
	require.NoError(t, y.InMax(5))
	assert.False(t, s.Consistency())

	assert.Same(t, c, s.FailedConstraint())
	err := s.LastFailure()
	require.True(t, IsFailure(err))
	var fe *FailError
	require.True(t, errors.As(err, &fe))
	assert.Same(t, x, fe.Var)
	assert.Same(t, c, fe.Constraint)
	assert.Equal(t, "domain wipe-out: x in c", err.Error())

	assert.Equal(t, 1, x.Weight())
	assert.Equal(t, 1, c.weight)
	assert.Zero(t, e.calls, "pending constraints are dropped on failure")
	assert.Zero(t, s.sched.size())
	assert.Contains(t, buf.String(), "consistency failed")
	assert.Contains(t, buf.String(), "component=fd.store")

	// restoring is the caller's job
	assert.Equal(t, 5, y.Max())
	s.RemoveLevel(1)
	assert.Equal(t, 10, y.Max())
}

func TestNonFailureErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	x := s.NewIntVarRange("x", 0, 10)
	boom := errors.New("boom")
	s.Impose(&recordingConstraint{name: "c", vars: []Var{x}, fn: func(*Store) error { return boom }})

	require.NoError(t, x.InMax(5))
	assert.False(t, s.Consistency())
	assert.ErrorIs(t, s.LastFailure(), boom)
	assert.False(t, IsFailure(s.LastFailure()))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "non-failure error")
}

func TestRemoveLevelOrder(t *testing.T) {
	s := NewStore()
	x := s.NewIntVarRange("x", 0, 10)
	b := s.NewBoolVar("b")
	ts := NewTimeStamp(s, 0)

	var log []string
	snapshot := func(tag string) RemoveLevelFunc {
		return func(level int) {
			log = append(log, fmt.Sprintf("%s %d x=%d ts=%d b=%v", tag, level, x.Max(), ts.Value(), b.IsTrue()))
		}
	}
	s.AddRemoveLevelLateListener(snapshot("late"))
	s.AddRemoveLevelListener(snapshot("early"))

	s.SetLevel(1)
	require.NoError(t, x.InMax(5))
	require.NoError(t, b.SetTrue())
	ts.Update(1)
	s.SetLevel(2)
	require.NoError(t, x.InMax(3))
	ts.Update(2)

	s.RemoveLevel(1)
	assert.Equal(t, []string{
		"early 2 x=3 ts=2 b=true",
		"late 2 x=5 ts=1 b=true",
		"early 1 x=5 ts=1 b=true",
		"late 1 x=10 ts=0 b=false",
	}, log)
	assert.Equal(t, 0, s.Level())
	assert.Equal(t, 2, b.Size())
}

func TestSetLevelLowersThroughRemoveLevel(t *testing.T) {
	s := NewStore()
	x := s.NewIntVarRange("x", 0, 10)

	s.SetLevel(1)
	require.NoError(t, x.InMax(8))
	s.SetLevel(3)
	require.NoError(t, x.InMax(5))
	assert.Equal(t, 3, x.Level())

	s.SetLevel(1)
	assert.Equal(t, 1, s.Level())
	assert.Equal(t, 8, x.Max())
	assert.Equal(t, 1, x.Level())

	s.RemoveLevel(5) // above the current level: nothing to do
	assert.Equal(t, 1, s.Level())
	assert.Panics(t, func() { s.RemoveLevel(0) })
}

func TestRaiseLevelBeforeConsistency(t *testing.T) {
	s := NewStore()
	x := s.NewIntVarRange("x", 0, 10)
	s.RaiseLevelBeforeConsistency()
	require.True(t, s.Consistency())
	assert.Equal(t, 1, s.Level())
	require.True(t, s.Consistency())
	assert.Equal(t, 1, s.Level())

	require.NoError(t, x.InMax(2))
	s.RemoveLevel(1)
	assert.Equal(t, 10, x.Max())
}

func TestImposeWithConsistency(t *testing.T) {
	s := NewStore()
	x := s.NewIntVarRange("x", 0, 10)
	d := &recordingConstraint{name: "d", vars: []Var{x}}
	s.Impose(d)

	c := &recordingConstraint{name: "c", vars: []Var{x}, fn: func(*Store) error { return x.InMax(4) }}
	require.True(t, s.ImposeWithConsistency(c))
	assert.Equal(t, 4, x.Max())
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, 1, d.calls)

	bad := &recordingConstraint{name: "bad", vars: []Var{x}, fn: func(*Store) error { return x.In(100, 200) }}
	assert.False(t, s.ImposeWithConsistency(bad))
	assert.Same(t, bad, s.FailedConstraint())
	assert.Equal(t, 1, bad.weight)
}

func TestDomainObservers(t *testing.T) {
	s := NewStore()
	o := &recordingObserver{}
	s.AddDomainObserver(o)
	x := s.NewIntVarRange("x", 0, 10)
	b := s.NewBoolVar("b")

	require.NoError(t, x.InMax(5))
	require.NoError(t, x.InMax(7)) // no change
	require.NoError(t, x.InComplement(2))
	require.NoError(t, b.SetFalse())
	assert.Equal(t, []observedChange{
		{"x", EventBound},
		{"x", EventAny},
		{"b", EventGround},
	}, o.changes)
}

func TestVariableRegistry(t *testing.T) {
	s := NewStore()
	a := s.NewIntVarRange("", 0, 1)
	s.NewIntVarRange("_1", 0, 1)
	c := s.NewBoolVar("")

	assert.Equal(t, "_0", a.ID())
	assert.Equal(t, "_2", c.ID())
	assert.Equal(t, []int{0, 1, 2}, []int{a.Index(), s.Var(1).Index(), c.Index()})
	assert.Equal(t, 3, s.VarCount())

	v, ok := s.FindVar("_1")
	require.True(t, ok)
	assert.Same(t, s.Vars()[1], v)
	_, ok = s.FindVar("missing")
	assert.False(t, ok)

	assert.Panics(t, func() { s.NewIntVarRange("_0", 0, 1) })
	assert.Panics(t, func() { s.NewIntVar("empty", EmptyDomain(KindInterval)) })
}

func TestNewIntVarCopiesDomain(t *testing.T) {
	s := NewStore()
	d := NewSmallDomain(1, 5)
	x := s.NewIntVar("x", d)
	require.NoError(t, x.InMax(3))
	assert.Equal(t, 5, d.Max())
	assert.Equal(t, KindSmall, x.Dom().Kind())
	assert.Zero(t, x.Level())
}

func TestInvalidConfigPanics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Queues = 0
	assert.Panics(t, func() { NewStore(WithConfig(cfg)) })
}

func TestStoreString(t *testing.T) {
	s := NewStore()
	x := s.NewIntVarRange("x", 1, 5)
	s.NewBoolVar("b")
	s.Impose(&recordingConstraint{name: "c", vars: []Var{x}, queue: 2})
	require.NoError(t, x.InComplement(3))

	out := s.String()
	assert.Contains(t, out, "Store level 0, 2 variables")
	assert.Contains(t, out, "x::{1..2,4..5}")
	assert.Contains(t, out, "b::{0..1}")
	assert.Contains(t, out, "queue 2: 1 pending")
}

func TestCheckInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckInvariants = true
	s := NewStore(WithConfig(cfg))
	x := s.NewIntVarRange("x", 0, 10)

	s.SetLevel(1)
	require.NoError(t, x.InMax(5))
	require.NoError(t, s.CheckInvariants())

	x.dom.state().stamp = 7
	err := s.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stamp 7 above level 1")
	assert.Panics(t, func() { s.SetLevel(2) })
}

func TestMonitorCounts(t *testing.T) {
	mon := NewMonitor()
	s := NewStore(WithMonitor(mon))
	x := s.NewIntVarRange("x", 0, 10)
	c := &recordingConstraint{name: "c", vars: []Var{x}}
	s.Impose(c)

	s.SetLevel(1)
	require.NoError(t, x.InMax(8))
	require.True(t, s.Consistency())
	s.SetLevel(2)
	require.NoError(t, x.InMax(5))
	s.RemoveLevel(1)

	st := mon.Stats()
	assert.Equal(t, 2, st.LevelsRaised)
	assert.Equal(t, 2, st.LevelsRemoved)
	assert.Equal(t, 2, st.MaxLevel)
	assert.Equal(t, 1, st.ConsistencyCalls)
	assert.Equal(t, 1, st.Propagations)
	assert.Equal(t, 1, st.PeakQueueSize)
	assert.Equal(t, 2, st.SealedExplicit)
	assert.Equal(t, 2, st.RestoredVars)
	assert.Contains(t, st.String(), "Propagation Statistics:")

	mon.Reset()
	assert.Zero(t, mon.Stats().LevelsRaised)
}
