package task

// transitions lists the allowed Delivery status changes.
// Staying in the same state is not a transition and is handled as a no-op by the Service.
var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted, StatusPending},
	StatusCompleted:  {StatusInProgress},
}

// CanTransition reports whether a Delivery may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, st := range transitions[from] {
		if st == to {
			return true
		}
	}
	return false
}
