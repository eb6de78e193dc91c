// Package satbridge translates finite-domain variables into a SAT formula
// over github.com/go-air/gini.
//
// Each registered variable gets an order encoding: a literal [x <= a] for
// every value a of its registration range, chained by [x <= a] -> [x <= a+1],
// plus a literal [x = a] defined as [x <= a] and not [x <= a-1]. The current
// store domains are passed to the SAT solver as assumptions, so the same
// formula stays valid across backtracking.
package satbridge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"

	"github.com/gitrdm/fdcore/pkg/fd"
)

var (
	// ErrNotRegistered is returned for variables that were never registered.
	ErrNotRegistered = errors.New("variable not registered with the bridge")
	// ErrRangeTooWide is returned when a variable's range exceeds MaxRange.
	ErrRangeTooWide = errors.New("variable range too wide for the order encoding")
	// ErrIncomplete is returned when the SAT solver gives up.
	ErrIncomplete = errors.New("sat solver returned no answer")
)

const (
	satisfiable   = 1
	unsatisfiable = -1
)

// DefaultMaxRange bounds the number of values a registered variable may span.
const DefaultMaxRange = 1 << 12

type encoding struct {
	v   fd.Var
	lo  int
	leq []z.Lit // leq[k] is [v <= lo+k]
	eq  []z.Lit // eq[k] is [v = lo+k]
}

// Bridge holds a gini instance and the encodings of registered variables.
// It is not safe for concurrent use.
type Bridge struct {
	g        inter.S
	next     z.Var
	falseLit z.Lit
	maxRange int
	logger   *slog.Logger

	vars  map[fd.Var]*encoding
	order []*encoding
	// cache keeps per-variable assumptions until the domain changes.
	cache map[fd.Var][]z.Lit
	owner map[z.Lit]fd.Var

	lastAssumptions []z.Lit
}

// Option configures a Bridge.
type Option func(*Bridge) error

// WithMaxRange overrides DefaultMaxRange.
func WithMaxRange(n int) Option {
	return func(b *Bridge) error {
		if n < 1 {
			return fmt.Errorf("max range must be positive, got %d", n)
		}
		b.maxRange = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) error {
		b.logger = l
		return nil
	}
}

// New creates an empty bridge.
func New(options ...Option) (*Bridge, error) {
	b := &Bridge{
		g:        gini.New(),
		maxRange: DefaultMaxRange,
		logger:   slog.Default(),
		vars:     make(map[fd.Var]*encoding),
		cache:    make(map[fd.Var][]z.Lit),
		owner:    make(map[z.Lit]fd.Var),
	}
	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With(slog.String("component", "satbridge"))
	b.falseLit = b.newLit()
	b.AddClause(b.falseLit.Not())
	return b, nil
}

func (b *Bridge) newLit() z.Lit {
	b.next++
	return b.next.Pos()
}

// Attach makes the bridge follow s: domain changes and level removals
// invalidate the cached assumptions.
func (b *Bridge) Attach(s *fd.Store) {
	s.AddDomainObserver(b)
	s.AddRemoveLevelLateListener(fd.RemoveLevelFunc(func(int) {
		clear(b.cache)
	}))
}

// DomainChanged implements fd.DomainObserver.
func (b *Bridge) DomainChanged(v fd.Var, _ fd.Event) {
	delete(b.cache, v)
}

// Register encodes v over its current range. Registering twice is a no-op.
func (b *Bridge) Register(v fd.Var) error {
	if _, ok := b.vars[v]; ok {
		return nil
	}
	lo, hi := v.Min(), v.Max()
	if n := hi - lo + 1; n > b.maxRange {
		return fmt.Errorf("%w: %s spans %d values, max %d", ErrRangeTooWide, v.ID(), n, b.maxRange)
	}
	n := hi - lo + 1
	e := &encoding{v: v, lo: lo, leq: make([]z.Lit, n), eq: make([]z.Lit, n)}
	for k := range n {
		e.leq[k] = b.newLit()
		e.eq[k] = b.newLit()
		b.owner[e.eq[k]] = v
		b.owner[e.eq[k].Not()] = v
	}
	// [v <= hi] holds.
	b.AddClause(e.leq[n-1])
	for k := range n {
		if k+1 < n {
			b.AddClause(e.leq[k].Not(), e.leq[k+1])
		}
		prev := b.falseLit
		if k > 0 {
			prev = e.leq[k-1]
		}
		// eq[k] <-> leq[k] and not prev
		b.AddClause(e.eq[k].Not(), e.leq[k])
		b.AddClause(e.eq[k].Not(), prev.Not())
		b.AddClause(e.leq[k].Not(), prev, e.eq[k])
	}
	b.vars[v] = e
	b.order = append(b.order, e)
	b.logger.Debug("variable registered",
		slog.String("var", v.ID()),
		slog.Int("min", lo),
		slog.Int("max", hi))
	return nil
}

func (b *Bridge) lookup(v fd.Var) (*encoding, error) {
	e, ok := b.vars[v]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, v.ID())
	}
	return e, nil
}

// Leq returns the literal [v <= c].
func (b *Bridge) Leq(v fd.Var, c int) (z.Lit, error) {
	e, err := b.lookup(v)
	if err != nil {
		return z.LitNull, err
	}
	switch k := c - e.lo; {
	case k < 0:
		return b.falseLit, nil
	case k >= len(e.leq):
		return b.falseLit.Not(), nil
	default:
		return e.leq[k], nil
	}
}

// Eq returns the literal [v = c].
func (b *Bridge) Eq(v fd.Var, c int) (z.Lit, error) {
	e, err := b.lookup(v)
	if err != nil {
		return z.LitNull, err
	}
	k := c - e.lo
	if k < 0 || k >= len(e.eq) {
		return b.falseLit, nil
	}
	return e.eq[k], nil
}

// AddClause adds the disjunction of lits to the formula.
func (b *Bridge) AddClause(lits ...z.Lit) {
	for _, m := range lits {
		b.g.Add(m)
	}
	b.g.Add(z.LitNull)
}

// Assumptions returns literals excluding every value missing from the
// current domains of the registered variables.
func (b *Bridge) Assumptions() []z.Lit {
	var out []z.Lit
	for _, e := range b.order {
		ms, ok := b.cache[e.v]
		if !ok {
			d := e.v.Dom()
			ms = []z.Lit{}
			for k, m := range e.eq {
				if !d.Contains(e.lo + k) {
					ms = append(ms, m.Not())
				}
			}
			b.cache[e.v] = ms
		}
		out = append(out, ms...)
	}
	return out
}

// Solve runs the SAT solver under the current domains. It reports whether
// the formula is satisfiable.
func (b *Bridge) Solve() (bool, error) {
	b.lastAssumptions = b.Assumptions()
	b.g.Assume(b.lastAssumptions...)
	switch b.g.Solve() {
	case satisfiable:
		return true, nil
	case unsatisfiable:
		b.logger.Debug("formula unsatisfiable", slog.Int("assumptions", len(b.lastAssumptions)))
		return false, nil
	default:
		return false, ErrIncomplete
	}
}

// Model reads the value of every registered variable after a satisfiable
// Solve.
func (b *Bridge) Model() map[fd.Var]int {
	out := make(map[fd.Var]int, len(b.order))
	for _, e := range b.order {
		for k, m := range e.eq {
			if b.g.Value(m) {
				out[e.v] = e.lo + k
				break
			}
		}
	}
	return out
}

// Conflicts returns the variables whose domains took part in the failed
// assumptions of the last unsatisfiable Solve.
func (b *Bridge) Conflicts() []fd.Var {
	seen := make(map[fd.Var]bool)
	var out []fd.Var
	for _, m := range b.g.Why(nil) {
		v, ok := b.owner[m]
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
