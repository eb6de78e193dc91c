package fd

// Constraint is the boundary between the store and constraint
// implementations, which live outside this package.
//
// A constraint attaches itself to its variables in Impose (through
// PutModelConstraint or PutSearchConstraint), and the store schedules it
// whenever one of those variables reports an event the constraint registered
// for. Consistency prunes through the variables' In* methods and must return
// the failure error it receives unchanged; it must never report a wipe-out as
// success.
type Constraint interface {
	// Impose attaches the constraint to its variables.
	Impose(s *Store)

	// Consistency prunes the domains of the constraint's variables.
	Consistency(s *Store) error

	// QueueIndex selects the propagation queue. Lower indices run first;
	// constraints that should run last ask for a high index.
	QueueIndex() int

	String() string
}

// VarListener is implemented by constraints that want to know which
// variable triggered their scheduling.
type VarListener interface {
	QueueVariable(level int, v Var)
}

// Weighted is implemented by constraints that keep a failure count for
// failure-driven heuristics.
type Weighted interface {
	IncreaseWeight()
}

// RemoveLevelListener is notified when a level is removed. Constraints that
// keep data outside domains and timestamps register one with the store.
type RemoveLevelListener interface {
	RemoveLevel(level int)
}

// RemoveLevelFunc adapts a function to RemoveLevelListener.
type RemoveLevelFunc func(level int)

func (f RemoveLevelFunc) RemoveLevel(level int) { f(level) }

// DomainObserver sees every successful domain change. Observers keep
// external encodings in sync; they read variables but must never prune them.
type DomainObserver interface {
	DomainChanged(v Var, ev Event)
}
