package fd

import "fmt"

// levelRemover is the store-facing side of a TimeStamp.
type levelRemover interface {
	RemoveLevel(level int)
}

type stamped[T any] struct {
	level int
	value T
}

// TimeStamp is a value restored on backtracking. It keeps one entry per
// level at which it was updated.
type TimeStamp[T any] struct {
	store *Store
	stack []stamped[T]
}

// NewTimeStamp returns a TimeStamp holding v at the store's current level,
// registered with s so that Store.RemoveLevel restores it.
func NewTimeStamp[T any](s *Store, v T) *TimeStamp[T] {
	t := &TimeStamp[T]{store: s, stack: []stamped[T]{{level: s.level, value: v}}}
	s.timestamps = append(s.timestamps, t)
	return t
}

// Update sets the value at the store's current level. An update at the level
// of the top entry overwrites it.
func (t *TimeStamp[T]) Update(v T) {
	level := t.store.level
	top := &t.stack[len(t.stack)-1]
	if top.level == level {
		top.value = v
		return
	}
	t.stack = append(t.stack, stamped[T]{level: level, value: v})
}

// Value returns the current value.
func (t *TimeStamp[T]) Value() T { return t.stack[len(t.stack)-1].value }

// PreviousValue returns the value before the last update, or the current
// value when there is none.
func (t *TimeStamp[T]) PreviousValue() T {
	if len(t.stack) < 2 {
		return t.Value()
	}
	return t.stack[len(t.stack)-2].value
}

// Level is the level of the last update.
func (t *TimeStamp[T]) Level() int { return t.stack[len(t.stack)-1].level }

// RemoveLevel drops every update made at level or above. The bottom entry
// is never dropped.
func (t *TimeStamp[T]) RemoveLevel(level int) {
	n := len(t.stack)
	for n > 1 && t.stack[n-1].level >= level {
		n--
	}
	clear(t.stack[n:])
	t.stack = t.stack[:n]
}

func (t *TimeStamp[T]) String() string {
	return fmt.Sprintf("%v@%d", t.Value(), t.Level())
}
