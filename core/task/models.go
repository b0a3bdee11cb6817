package task

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kazi/core"
)

type Kind string

const (
	KindPersonal  Kind = "personal"
	KindBroadcast Kind = "broadcast"
)

func (k Kind) Valid() bool {
	return k == KindPersonal || k == KindBroadcast
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var priorityRanks = map[Priority]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
}

func (p Priority) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// Rank orders priorities from low (1) to high (3); 0 for unknown values.
func (p Priority) Rank() int {
	return priorityRanks[p]
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// Task is a unit of work fanned out to one (personal) or every (broadcast) principal on the roster.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueAt        *time.Time `json:"due_at"` // UTC
	Priority     Priority   `json:"priority"`
	Kind         Kind       `json:"kind"`
	CreatedBy    string     `json:"created_by"`
	LastEditedBy string     `json:"last_edited_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
}

// Delivery is the per-recipient record tracking progress on a Task.
type Delivery struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	RecipientID string    `json:"recipient_id"`
	Status      Status    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// View joins a Task with the Delivery owned by one principal.
// Delivery fields are nil when the principal is not a recipient of the task.
type View struct {
	Task
	DeliveryID        *string    `json:"delivery_id"`
	Status            *Status    `json:"status"`
	DeliveryUpdatedAt *time.Time `json:"delivery_updated_at"`
}

// IsRecipient reports whether the viewing principal holds a Delivery for the task.
func (v View) IsRecipient() bool {
	return v.DeliveryID != nil
}

// WithDelivery returns v joined with d.
func (v View) WithDelivery(d Delivery) View {
	id, st, at := d.ID, d.Status, d.UpdatedAt
	v.DeliveryID = &id
	v.Status = &st
	v.DeliveryUpdatedAt = &at
	return v
}

// Stats are the completion counts of a Task's deliveries.
type Stats struct {
	TaskID     string `json:"task_id"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	InProgress int    `json:"in_progress"`
	Completed  int    `json:"completed"`
}

// NewTask contains information needed to create and fan out a Task.
// Target is a descriptor: "single:<userId>" or "broadcast:all".
type NewTask struct {
	Title       string   `json:"title" validate:"required,notblank,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	DueAt       string   `json:"due_at" validate:"omitempty,duedate"`
	Priority    Priority `json:"priority" validate:"omitempty,priority"`
	Target      string   `json:"target" validate:"required"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = strings.TrimSpace(nt.Description)
	nt.DueAt = core.CleanString(nt.DueAt)
	nt.Priority = Priority(core.CleanString(string(nt.Priority), true /* lower */))
	nt.Target = core.CleanString(nt.Target)
	if nt.Priority == "" {
		nt.Priority = PriorityMedium
	}
	return validate.Struct(nt)
}

// UpdateTask contains the editable fields of a Task. Empty fields keep their current value.
type UpdateTask struct {
	Title       string   `json:"title" validate:"omitempty,notblank,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	DueAt       string   `json:"due_at" validate:"omitempty,duedate"`
	Priority    Priority `json:"priority" validate:"omitempty,priority"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanString(ut.Title)
	ut.Description = strings.TrimSpace(ut.Description)
	ut.DueAt = core.CleanString(ut.DueAt)
	ut.Priority = Priority(core.CleanString(string(ut.Priority), true /* lower */))
	return validate.Struct(ut)
}

// UpdateDelivery is the body of a delivery status change.
type UpdateDelivery struct {
	Status Status `json:"status" validate:"required,delivstatus"`
}

func (ud *UpdateDelivery) Validate(validate *validator.Validate) error {
	ud.Status = Status(core.CleanString(string(ud.Status), true /* lower */))
	return validate.Struct(ud)
}
