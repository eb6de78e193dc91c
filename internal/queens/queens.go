// Package queens models the N-queens puzzle on an fd.Store and counts its
// solutions with a depth-first search that opens one store level per
// decision.
package queens

import (
	"context"
	"fmt"
	"slices"

	"github.com/gitrdm/fdcore/pkg/fd"
	"github.com/gitrdm/fdcore/pkg/satbridge"
)

// NotEqualOffset is the constraint x != y + c.
type NotEqualOffset struct {
	X, Y   *fd.IntVar
	C      int
	weight int
}

func (c *NotEqualOffset) Impose(s *fd.Store) {
	c.X.PutModelConstraint(c, fd.EventGround)
	c.Y.PutModelConstraint(c, fd.EventGround)
}

func (c *NotEqualOffset) Consistency(s *fd.Store) error {
	if c.Y.Singleton() {
		if err := c.X.InComplement(c.Y.Value() + c.C); err != nil {
			return err
		}
	}
	if c.X.Singleton() {
		return c.Y.InComplement(c.X.Value() - c.C)
	}
	return nil
}

func (c *NotEqualOffset) QueueIndex() int { return 0 }

func (c *NotEqualOffset) IncreaseWeight() { c.weight++ }

// Weight counts the failures of the constraint.
func (c *NotEqualOffset) Weight() int { return c.weight }

func (c *NotEqualOffset) String() string {
	return fmt.Sprintf("%s != %s + %d", c.X.ID(), c.Y.ID(), c.C)
}

// Result summarizes a search.
type Result struct {
	N         int
	Solutions int
	Nodes     int
	Failures  int
	// First is the column of each row's queen in the first solution found.
	First []int
}

// Model is an N-queens instance: Rows[i] is the column of the queen in row i.
type Model struct {
	Store *fd.Store
	Rows  []*fd.IntVar
}

// NewModel builds the N-queens constraints on a fresh store. Boards up to 64
// wide use the bitset domain encoding.
func NewModel(n int, opts ...fd.Option) *Model {
	s := fd.NewStore(opts...)
	m := &Model{Store: s, Rows: make([]*fd.IntVar, n)}
	for i := range n {
		var d fd.Domain
		if fd.FitsSmall(0, n-1) {
			d = fd.NewSmallDomain(0, n-1)
		} else {
			d = fd.NewIntervalDomain(0, n-1)
		}
		m.Rows[i] = s.NewIntVar(fmt.Sprintf("q%d", i), d)
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			for _, off := range []int{0, j - i, i - j} {
				s.Impose(&NotEqualOffset{X: m.Rows[i], Y: m.Rows[j], C: off})
			}
		}
	}
	return m
}

// Solve counts solutions, stopping after limit of them when limit > 0.
func (m *Model) Solve(ctx context.Context, limit int) (Result, error) {
	res := Result{N: len(m.Rows)}
	if !m.Store.Consistency() {
		return res, nil
	}
	err := m.search(ctx, limit, &res)
	return res, err
}

func (m *Model) search(ctx context.Context, limit int, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res.Nodes++
	v := m.pick()
	if v == nil {
		res.Solutions++
		if res.First == nil {
			res.First = make([]int, len(m.Rows))
			for i, r := range m.Rows {
				res.First[i] = r.Value()
			}
		}
		return nil
	}
	s := m.Store
	for _, val := range slices.Collect(v.Dom().Values()) {
		s.SetLevel(s.Level() + 1)
		if err := v.InValue(val); err == nil && s.Consistency() {
			if err := m.search(ctx, limit, res); err != nil {
				s.RemoveLevel(s.Level())
				return err
			}
		} else {
			res.Failures++
		}
		s.RemoveLevel(s.Level())
		if limit > 0 && res.Solutions >= limit {
			return nil
		}
	}
	return nil
}

// pick returns the unassigned row with the smallest domain, or nil.
func (m *Model) pick() *fd.IntVar {
	var best *fd.IntVar
	for _, r := range m.Rows {
		if r.Singleton() {
			continue
		}
		if best == nil || r.Size() < best.Size() {
			best = r
		}
	}
	return best
}

// EncodeSAT registers the rows with b and adds one clause per pair of
// attacking placements.
func (m *Model) EncodeSAT(b *satbridge.Bridge) error {
	n := len(m.Rows)
	for _, r := range m.Rows {
		if err := b.Register(r); err != nil {
			return err
		}
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			for a := range n {
				for _, c := range []int{a, a + (j - i), a - (j - i)} {
					if c < 0 || c >= n {
						continue
					}
					ea, err := b.Eq(m.Rows[i], a)
					if err != nil {
						return err
					}
					ec, err := b.Eq(m.Rows[j], c)
					if err != nil {
						return err
					}
					b.AddClause(ea.Not(), ec.Not())
				}
			}
		}
	}
	return nil
}
