package task

import (
	"context"
	"fmt"

	"github.com/trezcool/kazi/core"
)

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// saga collects compensating actions for the steps of a multi-step operation.
// On failure they run in reverse order; their own failures are logged, never returned.
type saga struct {
	name   string
	logger core.Logger
	steps  []compensation

	// observed is called with the name of every compensation that ran, and its error.
	observed func(step string, err error)
}

func newSaga(name string, logger core.Logger) *saga {
	return &saga{name: name, logger: logger}
}

// add registers the compensation of step. It must be called before the step runs
// so that partially applied steps are undone too.
func (s *saga) add(step string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{step: step, undo: undo})
}

// rollback runs every compensation in reverse order and returns cause unchanged.
func (s *saga) rollback(ctx context.Context, cause error) error {
	ctx = context.WithoutCancel(ctx)
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		err := c.undo(ctx)
		if s.observed != nil {
			s.observed(c.step, err)
		}
		if err != nil {
			s.logger.Error(
				fmt.Sprintf("%s: compensating %s: %v", s.name, c.step, err),
				err,
				map[string]interface{}{"cause": cause.Error()},
			)
		}
	}
	s.steps = nil
	return cause
}
