package fd

// constraintQueue is a FIFO of constraints. It is not safe for concurrent use.
type constraintQueue struct {
	items []Constraint
	head  int
}

func (q *constraintQueue) push(c Constraint) {
	q.items = append(q.items, c)
}

func (q *constraintQueue) pop() Constraint {
	c := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return c
}

func (q *constraintQueue) size() int { return len(q.items) - q.head }

func (q *constraintQueue) clear() {
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
}

// scheduler is the store's array of priority queues. A constraint is queued
// at most once; pending keeps the strongest event seen while it waits.
type scheduler struct {
	queues  []constraintQueue
	pending map[Constraint]Event
}

func newScheduler(n int) *scheduler {
	return &scheduler{
		queues:  make([]constraintQueue, n),
		pending: make(map[Constraint]Event),
	}
}

// add queues c unless it is already pending. It reports whether c was added.
func (s *scheduler) add(c Constraint, ev Event) bool {
	if old, ok := s.pending[c]; ok {
		if ev > old {
			s.pending[c] = ev
		}
		return false
	}
	s.pending[c] = ev
	q := c.QueueIndex()
	if q < 0 {
		q = 0
	}
	if q >= len(s.queues) {
		q = len(s.queues) - 1
	}
	s.queues[q].push(c)
	return true
}

// next pops from the lowest-index non-empty queue.
func (s *scheduler) next() (Constraint, Event, bool) {
	for i := range s.queues {
		if s.queues[i].size() > 0 {
			c := s.queues[i].pop()
			ev := s.pending[c]
			delete(s.pending, c)
			return c, ev, true
		}
	}
	return nil, EventNone, false
}

func (s *scheduler) size() int { return len(s.pending) }

func (s *scheduler) clear() {
	for i := range s.queues {
		s.queues[i].clear()
	}
	clear(s.pending)
}
