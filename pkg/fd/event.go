package fd

// Event classifies how much a pruning operation changed a domain.
// Events are ordered from weakest to strongest, and a constraint registered
// for a weaker event is rescheduled by every stronger one.
type Event uint8

const (
	// EventNone means the operation removed nothing.
	EventNone Event = iota
	// EventAny means values were removed without moving either bound.
	EventAny
	// EventBound means the minimum and/or maximum moved and the domain is not a singleton.
	EventBound
	// EventGround means the domain collapsed to exactly one value.
	EventGround
)

// numEventClasses is the number of events a model constraint can register for.
const numEventClasses = int(EventGround)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "NONE"
	case EventAny:
		return "ANY"
	case EventBound:
		return "BOUND"
	case EventGround:
		return "GROUND"
	default:
		return "Event(?)"
	}
}

// Implies reports whether a constraint registered for r must be reconsidered
// when e happens.
func (e Event) Implies(r Event) bool {
	return e != EventNone && r != EventNone && e >= r
}

// classify derives the event of a change from the domain's old shape.
func classify(oldMin, oldMax, oldSize int, d Domain) Event {
	size := d.Size()
	switch {
	case size == oldSize:
		return EventNone
	case size == 1:
		return EventGround
	case d.Min() != oldMin || d.Max() != oldMax:
		return EventBound
	default:
		return EventAny
	}
}
