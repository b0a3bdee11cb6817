package task

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kazi/core"
)

// Ordering fields accepted by ListForPrincipal.
var OrderingFields = []string{"due_at", "created_at", "priority", "title"}

// QueryFilter narrows the views listed for a principal. Set fields are combined with a logical AND.
type QueryFilter struct {
	Kind     Kind     `query:"kind" json:"kind" validate:"omitempty,taskkind"`
	Priority Priority `query:"priority" json:"priority" validate:"omitempty,priority"`
	Status   Status   `query:"status" json:"status" validate:"omitempty,delivstatus"`
}

func (qf *QueryFilter) Validate(validate *validator.Validate) error {
	qf.Kind = Kind(core.CleanString(string(qf.Kind), true /* lower */))
	qf.Priority = Priority(core.CleanString(string(qf.Priority), true /* lower */))
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
	return validate.Struct(qf)
}

// Predicate selects a View.
type Predicate func(View) bool

func ByKind(k Kind) Predicate {
	return func(v View) bool { return v.Kind == k }
}

func ByPriority(p Priority) Predicate {
	return func(v View) bool { return v.Priority == p }
}

// ByStatus matches views whose delivery is in status st. Views without a delivery never match.
func ByStatus(st Status) Predicate {
	return func(v View) bool { return v.Status != nil && *v.Status == st }
}

// Predicates returns one Predicate per set field.
func (qf QueryFilter) Predicates() []Predicate {
	var preds []Predicate
	if qf.Kind != "" {
		preds = append(preds, ByKind(qf.Kind))
	}
	if qf.Priority != "" {
		preds = append(preds, ByPriority(qf.Priority))
	}
	if qf.Status != "" {
		preds = append(preds, ByStatus(qf.Status))
	}
	return preds
}

// Filter keeps the views matching every predicate, preserving their order.
func Filter(views []View, preds ...Predicate) []View {
	if len(preds) == 0 {
		return views
	}
	filtered := make([]View, 0, len(views))
views:
	for _, v := range views {
		for _, match := range preds {
			if !match(v) {
				continue views
			}
		}
		filtered = append(filtered, v)
	}
	return filtered
}

// Aggregate counts deliveries per status.
func Aggregate(taskID string, deliveries []Delivery) Stats {
	stats := Stats{TaskID: taskID, Total: len(deliveries)}
	for _, d := range deliveries {
		switch d.Status {
		case StatusPending:
			stats.Pending++
		case StatusInProgress:
			stats.InProgress++
		case StatusCompleted:
			stats.Completed++
		}
	}
	return stats
}
