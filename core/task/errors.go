package task

import "github.com/pkg/errors"

var (
	ErrNotFound          = errors.New("task not found")
	ErrDeliveryNotFound  = errors.New("delivery not found")
	ErrForbidden         = errors.New("permission denied")
	ErrInvalidTarget     = errors.New("invalid fan-out target")
	ErrEmptyRoster       = errors.New("the roster is empty")
	ErrDuplicateDelivery = errors.New("a delivery already exists for this task and recipient")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// IsNotFound reports whether err denotes a missing Task or Delivery.
func IsNotFound(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrNotFound || cause == ErrDeliveryNotFound
}
