package task

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kazi/core"
)

const dateLayout = "2006-01-02"

var (
	dueDateTag  = "duedate"
	dueDateText = "must be an RFC3339 timestamp or a YYYY-MM-DD date"

	priorityTag  = "priority"
	priorityText = "must be one of: low, medium, high"

	kindTag  = "taskkind"
	kindText = "must be one of: personal, broadcast"

	statusTag  = "delivstatus"
	statusText = "must be one of: pending, in_progress, completed"
)

// InitValidators registers the task validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(dueDateTag, dueDateValidation)
	core.RegisterCustomTranslation(validate, translator, dueDateTag, dueDateText)

	_ = validate.RegisterValidation(priorityTag, priorityValidation)
	core.RegisterCustomTranslation(validate, translator, priorityTag, priorityText)

	_ = validate.RegisterValidation(kindTag, kindValidation)
	core.RegisterCustomTranslation(validate, translator, kindTag, kindText)

	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

// ParseDueDate parses an RFC3339 timestamp or a plain date, read as midnight UTC.
// An empty string yields a nil time.
func ParseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if t, err = time.Parse(dateLayout, s); err != nil {
			return nil, err
		}
	}
	t = t.UTC()
	return &t, nil
}

// Custom Validators

func dueDateValidation(fl validator.FieldLevel) bool {
	_, err := ParseDueDate(fl.Field().String())
	return err == nil
}

func priorityValidation(fl validator.FieldLevel) bool {
	return Priority(fl.Field().String()).Valid()
}

func kindValidation(fl validator.FieldLevel) bool {
	return Kind(fl.Field().String()).Valid()
}

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}
