package fd

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Store owns the variables, the backtracking level, the propagation queues
// and the trail.
//
// A search layer drives it like this:
//
//	s := fd.NewStore()
//	x := s.NewIntVarRange("x", 1, 10)
//	// impose constraints...
//	s.SetLevel(s.Level() + 1)
//	if err := x.InValue(3); err != nil || !s.Consistency() {
//		s.RemoveLevel(s.Level())
//	}
//
// A Store is not safe for concurrent use. Independent stores may run on
// separate goroutines.
type Store struct {
	cfg     Config
	logger  *slog.Logger
	monitor *Monitor

	vars   []Var
	byID   map[string]Var
	nextID int

	level      int
	raiseLevel bool

	sched *scheduler
	trail *Trail

	// boolLog lists the boolean variables that got a new version, in order;
	// boolFrames marks where each level starts in it.
	boolLog    []*BoolVar
	boolFrames []boolFrame

	timestamps []levelRemover
	early      []RemoveLevelListener
	late       []RemoveLevelListener
	observers  []DomainObserver

	current     Constraint
	failed      Constraint
	lastFailure error
}

type boolFrame struct {
	level int
	start int
}

// NewStore creates an empty store at level 0.
func NewStore(opts ...Option) *Store {
	s := &Store{
		cfg:    *DefaultConfig(),
		logger: slog.Default(),
		byID:   make(map[string]Var),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		panic(fmt.Sprintf("fd: %v", err))
	}
	s.logger = s.logger.With(slog.String("component", "fd.store"))
	s.sched = newScheduler(s.cfg.Queues)
	s.trail = NewTrail(s.cfg.Trail)
	return s
}

// Logger returns the store's logger.
func (s *Store) Logger() *slog.Logger { return s.logger }

// Monitor returns the attached monitor, or nil.
func (s *Store) Monitor() *Monitor { return s.monitor }

// Config returns a copy of the store's configuration.
func (s *Store) Config() Config { return s.cfg }

// register assigns the variable's id and index. An empty id is replaced by
// a generated one; a duplicate id panics.
func (s *Store) register(id string, build func(id string, index int) Var) Var {
	if id == "" {
		for {
			id = fmt.Sprintf("_%d", s.nextID)
			s.nextID++
			if _, taken := s.byID[id]; !taken {
				break
			}
		}
	}
	if _, taken := s.byID[id]; taken {
		panic(fmt.Sprintf("fd: duplicate variable id %q", id))
	}
	v := build(id, len(s.vars))
	s.vars = append(s.vars, v)
	s.byID[id] = v
	return v
}

// NewIntVar registers an integer variable with a copy of d as its domain.
// It panics when d is empty.
func (s *Store) NewIntVar(id string, d Domain) *IntVar {
	if d.IsEmpty() {
		panic(fmt.Sprintf("fd: variable %q created with an empty domain", id))
	}
	dom := d.Clone()
	st := dom.state()
	st.stamp, st.previous, st.w, st.ownW = 0, nil, nil, false
	return s.register(id, func(id string, index int) Var {
		return &IntVar{store: s, id: id, index: index, dom: dom}
	}).(*IntVar)
}

// NewIntVarRange registers an integer variable with domain [min, max].
func (s *Store) NewIntVarRange(id string, min, max int) *IntVar {
	return s.NewIntVar(id, NewIntervalDomain(min, max))
}

// NewBoolVar registers a 0/1 variable.
func (s *Store) NewBoolVar(id string) *BoolVar {
	return s.register(id, func(id string, index int) Var {
		return &BoolVar{store: s, id: id, index: index, dom: &BoundDomain{min: 0, max: 1}}
	}).(*BoolVar)
}

// Var returns the variable at index i.
func (s *Store) Var(i int) Var { return s.vars[i] }

// FindVar looks a variable up by id.
func (s *Store) FindVar(id string) (Var, bool) {
	v, ok := s.byID[id]
	return v, ok
}

// Vars returns the registered variables in index order.
func (s *Store) Vars() []Var { return slices.Clone(s.vars) }

// VarCount is the number of registered variables.
func (s *Store) VarCount() int { return len(s.vars) }

// Level is the current backtracking level.
func (s *Store) Level() int { return s.level }

// TrailStats returns the trail counters.
func (s *Store) TrailStats() TrailStats { return s.trail.Stats() }

// SetLevel moves the store to level n. Raising seals the current level in
// the trail; lowering is RemoveLevel(n+1).
func (s *Store) SetLevel(n int) {
	switch {
	case n == s.level:
		return
	case n < s.level:
		s.RemoveLevel(n + 1)
		return
	}
	s.monitor.recordSeal(s.trail.Mode())
	s.trail.SetLevel(n)
	s.level = n
	s.monitor.recordRaise(n)
	s.verify("SetLevel")
}

// RemoveLevel undoes every change made at level n and above, one level at
// a time from the top. For each level, early listeners run first, then the
// trail restores the integer variables, the boolean log the boolean ones and
// timestamps their values, and late listeners run last. The store ends at
// level n-1 with empty queues.
func (s *Store) RemoveLevel(n int) {
	if n < 1 {
		panic(fmt.Sprintf("fd: RemoveLevel(%d): level 0 cannot be removed", n))
	}
	if n > s.level {
		return
	}
	from := s.level
	restored := 0
	r := storeRestorer{s}
	for l := from; l >= n; l-- {
		for _, lis := range s.early {
			lis.RemoveLevel(l)
		}
		restored += s.trail.RemoveLevel(l, r)
		s.removeBoolLevel(l)
		for _, ts := range s.timestamps {
			ts.RemoveLevel(l)
		}
		for _, lis := range s.late {
			lis.RemoveLevel(l)
		}
	}
	s.level = n - 1
	s.raiseLevel = false
	s.current = nil
	s.sched.clear()
	s.monitor.recordRemove(from-n+1, restored)
	s.logger.Debug("levels removed",
		slog.Int("from", from),
		slog.Int("to", s.level),
		slog.Int("restored", restored))
	s.verify("RemoveLevel")
}

func (s *Store) removeBoolLevel(level int) {
	for len(s.boolFrames) > 0 {
		f := s.boolFrames[len(s.boolFrames)-1]
		if f.level < level {
			return
		}
		for _, b := range s.boolLog[f.start:] {
			b.RemoveLevel(f.level)
		}
		clear(s.boolLog[f.start:])
		s.boolLog = s.boolLog[:f.start]
		s.boolFrames = s.boolFrames[:len(s.boolFrames)-1]
	}
}

// storeRestorer hands the store's variables to the trail.
type storeRestorer struct{ s *Store }

func (r storeRestorer) VarCount() int { return len(r.s.vars) }

func (r storeRestorer) RestoreVar(i, level int) { r.s.vars[i].RemoveLevel(level) }

// recordChange notes in the trail that v got a new version.
func (s *Store) recordChange(v *IntVar) {
	s.trail.AddChanged(v.index)
}

// recordBoolChange appends b to the boolean log of the current level.
func (s *Store) recordBoolChange(b *BoolVar) {
	if n := len(s.boolFrames); n == 0 || s.boolFrames[n-1].level != s.level {
		s.boolFrames = append(s.boolFrames, boolFrame{level: s.level, start: len(s.boolLog)})
	}
	s.boolLog = append(s.boolLog, b)
}

// addChanged tells observers about the change and schedules every
// constraint attached to w for ev or a weaker event, plus all search
// constraints. The constraint under evaluation is never rescheduled by its
// own pruning.
func (s *Store) addChanged(v Var, ev Event, w *watchers) {
	for _, o := range s.observers {
		o.DomainChanged(v, ev)
	}
	if w == nil {
		return
	}
	for e := EventAny; e <= ev; e++ {
		for _, c := range w.model[e-1] {
			s.schedule(c, v, ev)
		}
	}
	for _, c := range w.search {
		s.schedule(c, v, ev)
	}
	s.monitor.recordQueueSize(s.sched.size())
}

func (s *Store) schedule(c Constraint, v Var, ev Event) {
	if c == s.current {
		return
	}
	if l, ok := c.(VarListener); ok {
		l.QueueVariable(s.level, v)
	}
	s.sched.add(c, ev)
}

// Impose attaches c to its variables. It does not run propagation.
func (s *Store) Impose(c Constraint) {
	c.Impose(s)
}

// ImposeWithConsistency imposes c, runs its consistency once and then
// propagates to a fixpoint. It reports false on failure.
func (s *Store) ImposeWithConsistency(c Constraint) bool {
	c.Impose(s)
	s.current = c
	err := c.Consistency(s)
	s.current = nil
	s.monitor.recordPropagation()
	if err != nil {
		s.fail(c, err)
		s.monitor.recordConsistency(0, false)
		return false
	}
	return s.Consistency()
}

// RaiseLevelBeforeConsistency makes the next Consistency call raise the
// level by one before propagating.
func (s *Store) RaiseLevelBeforeConsistency() { s.raiseLevel = true }

// Consistency propagates until every queue is empty or a constraint fails.
// Queues are served in strict priority order. On failure the failed
// constraint and error are recorded, the queues are cleared and false is
// returned; restoring the domains is left to the caller's RemoveLevel.
func (s *Store) Consistency() bool {
	if s.raiseLevel {
		s.raiseLevel = false
		s.SetLevel(s.level + 1)
	}
	start := time.Now()
	for {
		c, _, ok := s.sched.next()
		if !ok {
			break
		}
		s.current = c
		err := c.Consistency(s)
		s.current = nil
		s.monitor.recordPropagation()
		if err != nil {
			s.fail(c, err)
			s.monitor.recordConsistency(time.Since(start), false)
			return false
		}
	}
	s.monitor.recordConsistency(time.Since(start), true)
	return true
}

func (s *Store) fail(c Constraint, err error) {
	var fe *FailError
	if errors.As(err, &fe) {
		if fe.Constraint == nil {
			fe.Constraint = c
		}
		if fe.Var != nil {
			fe.Var.IncreaseWeight()
		}
	}
	if w, ok := c.(Weighted); ok {
		w.IncreaseWeight()
	}
	s.failed = c
	s.lastFailure = err
	s.sched.clear()
	if !IsFailure(err) {
		s.logger.Warn("constraint returned a non-failure error",
			slog.String("constraint", c.String()),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("consistency failed",
		slog.Int("level", s.level),
		slog.String("constraint", c.String()),
		slog.String("error", err.Error()))
}

// CurrentConstraint is the constraint whose Consistency is running, or nil.
func (s *Store) CurrentConstraint() Constraint { return s.current }

// FailedConstraint is the constraint that failed most recently, or nil.
func (s *Store) FailedConstraint() Constraint { return s.failed }

// LastFailure is the error of the most recent failure, or nil.
func (s *Store) LastFailure() error { return s.lastFailure }

// AddRemoveLevelListener registers l to run before domains are restored.
func (s *Store) AddRemoveLevelListener(l RemoveLevelListener) {
	s.early = append(s.early, l)
}

// AddRemoveLevelLateListener registers l to run after domains and
// timestamps are restored.
func (s *Store) AddRemoveLevelLateListener(l RemoveLevelListener) {
	s.late = append(s.late, l)
}

// AddDomainObserver registers o to see every domain change.
func (s *Store) AddDomainObserver(o DomainObserver) {
	s.observers = append(s.observers, o)
}

func (s *Store) verify(op string) {
	if !s.cfg.CheckInvariants {
		return
	}
	if err := s.CheckInvariants(); err != nil {
		panic(fmt.Sprintf("fd: %s: %v", op, err))
	}
}

// CheckInvariants verifies that no variable is empty or stamped above the
// store level, that version chains have strictly decreasing stamps, and
// that every integer variable with a version at the current level is known
// to the trail.
func (s *Store) CheckInvariants() error {
	var errs []error
	for _, v := range s.vars {
		d := v.Dom()
		if d.IsEmpty() {
			errs = append(errs, fmt.Errorf("%s: empty domain", v.ID()))
		}
		if d.Stamp() > s.level {
			errs = append(errs, fmt.Errorf("%s: stamp %d above level %d", v.ID(), d.Stamp(), s.level))
		}
		for p := d.Previous(); p != nil; d, p = p, p.Previous() {
			if p.Stamp() >= d.Stamp() {
				errs = append(errs, fmt.Errorf("%s: version stamps %d then %d", v.ID(), d.Stamp(), p.Stamp()))
				break
			}
		}
		if _, ok := v.(*IntVar); ok && s.level > 0 && v.Level() == s.level &&
			s.trail.Level() == s.level && !s.trail.IsRecognizedAsChanged(v.Index()) {
			errs = append(errs, fmt.Errorf("%s: changed at level %d but not on the trail", v.ID(), s.level))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Store level %d, %d variables\n", s.level, len(s.vars))
	for _, v := range s.vars {
		fmt.Fprintf(&b, "  %s\n", v)
	}
	for i := range s.sched.queues {
		if n := s.sched.queues[i].size(); n > 0 {
			fmt.Fprintf(&b, "  queue %d: %d pending\n", i, n)
		}
	}
	return b.String()
}
