package task

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

type (
	// Repository is the persistence port of the engine.
	// Adapters map their own failures to ErrNotFound, ErrDeliveryNotFound, ErrDuplicateDelivery,
	// core.ErrTimeout and core.ErrStoreUnavailable.
	Repository interface {
		InsertTask(ctx context.Context, t Task) (Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
		GetTask(ctx context.Context, id string) (Task, error)
		DeleteTask(ctx context.Context, id string) error

		// BulkInsertDeliveries creates one pending Delivery per recipient, all or none.
		BulkInsertDeliveries(ctx context.Context, taskID string, recipientIDs []string, at time.Time) ([]Delivery, error)
		GetDeliveryByID(ctx context.Context, id string) (Delivery, error)
		UpdateDeliveryStatus(ctx context.Context, id string, st Status, at time.Time) (Delivery, error)
		// DeleteDeliveriesForTask is idempotent.
		DeleteDeliveriesForTask(ctx context.Context, taskID string) error
		QueryDeliveriesForTask(ctx context.Context, taskID string) ([]Delivery, error)

		// QueryTasksForPrincipal returns the views of every task principalID holds a Delivery for.
		QueryTasksForPrincipal(ctx context.Context, principalID string, ordering []core.DBOrdering) ([]View, error)
		// GetViewForPrincipal returns the view of a task, with nil delivery fields if principalID is not a recipient.
		GetViewForPrincipal(ctx context.Context, taskID, principalID string) (View, error)
	}

	// Roster supplies the principals a broadcast is fanned out to.
	Roster interface {
		GetRosterSnapshot(ctx context.Context) ([]user.User, error)
	}

	Service struct {
		repo       Repository
		roster     Roster
		logger     core.Logger
		mailSvc    core.EmailService
		conf       *core.Config
		validate   *validator.Validate
		translator ut.Translator
		now        func() time.Time
	}
)

// NewService returns the task Service. mailSvc may be nil, in which case no notification is sent.
func NewService(
	repo Repository,
	roster Roster,
	logger core.Logger,
	mailSvc core.EmailService,
	conf *core.Config,
	validate *validator.Validate,
	translator ut.Translator,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(roster, "roster"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(translator, "translator"),
	).CheckAndPanic()

	return &Service{
		repo:       repo,
		roster:     roster,
		logger:     logger,
		mailSvc:    mailSvc,
		conf:       conf,
		validate:   validate,
		translator: translator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) validationError(err error) error {
	return core.NewValidationErrorFrom(err, svc.translator)
}

// CreateTask creates a Task and materializes its deliveries.
// If resolving the recipients or inserting the deliveries fails, the Task and any partial deliveries
// are removed and the original error is returned.
func (svc *Service) CreateTask(ctx context.Context, principal user.User, nt NewTask) (t Task, err error) {
	ctx, span := startSpan(ctx, "task.CreateTask", attribute.String("principal.id", principal.ID))
	defer func() { endSpan(span, err) }()

	if err = nt.Validate(svc.validate); err != nil {
		return Task{}, svc.validationError(err)
	}
	dueAt, _ := ParseDueDate(nt.DueAt) // validated

	target, err := ParseTarget(nt.Target)
	if err != nil {
		return Task{}, err
	}
	span.SetAttributes(attribute.String("task.kind", string(target.Kind)))
	if !CanAssign(principal, target) {
		return Task{}, ErrForbidden
	}

	now := svc.now()
	t, err = svc.repo.InsertTask(ctx, Task{
		Title:       nt.Title,
		Description: nt.Description,
		DueAt:       dueAt,
		Priority:    nt.Priority,
		Kind:        target.Kind,
		CreatedBy:   principal.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Task{}, errors.Wrap(err, "inserting task")
	}

	taskID := t.ID
	sg := newSaga("task.CreateTask", svc.logger)
	sg.observed = observeCompensation
	sg.add("task", func(ctx context.Context) error { return svc.repo.DeleteTask(ctx, taskID) })

	roster, recipients, err := svc.resolve(ctx, target)
	if err != nil {
		return Task{}, svc.compensate(ctx, sg, err)
	}

	sg.add("deliveries", func(ctx context.Context) error { return svc.repo.DeleteDeliveriesForTask(ctx, taskID) })
	deliveries, err := svc.bulkInsert(ctx, taskID, recipients, now)
	if err != nil {
		return Task{}, svc.compensate(ctx, sg, err)
	}

	tasksCreated.WithLabelValues(string(t.Kind)).Inc()
	fanoutRecipients.Observe(float64(len(deliveries)))
	svc.notifyRecipients(principal, t, roster, recipients)
	return t, nil
}

func (svc *Service) resolve(ctx context.Context, target Target) (roster []user.User, recipients []string, err error) {
	ctx, span := startSpan(ctx, "task.resolve", attribute.String("task.target", target.String()))
	defer func() { endSpan(span, err) }()

	roster, err = svc.roster.GetRosterSnapshot(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "getting roster snapshot")
	}
	span.SetAttributes(attribute.Int("roster.size", len(roster)))
	recipients, err = Resolve(target, roster)
	return roster, recipients, err
}

func (svc *Service) bulkInsert(ctx context.Context, taskID string, recipients []string, at time.Time) (deliveries []Delivery, err error) {
	ctx, span := startSpan(ctx, "task.bulkInsert",
		attribute.String("task.id", taskID),
		attribute.Int("recipients", len(recipients)),
	)
	defer func() { endSpan(span, err) }()

	deliveries, err = svc.repo.BulkInsertDeliveries(ctx, taskID, recipients, at)
	if err != nil {
		return nil, errors.Wrap(err, "inserting deliveries")
	}
	return deliveries, nil
}

func (svc *Service) compensate(ctx context.Context, sg *saga, cause error) error {
	ctx, span := startSpan(ctx, "task.compensate")
	defer span.End()
	span.RecordError(cause)
	return sg.rollback(ctx, cause)
}

// UpdateTask edits the title, description, due date or priority of a Task.
func (svc *Service) UpdateTask(ctx context.Context, principal user.User, id string, upd UpdateTask) (Task, error) {
	if err := upd.Validate(svc.validate); err != nil {
		return Task{}, svc.validationError(err)
	}

	t, err := svc.repo.GetTask(ctx, core.CleanString(id))
	if err != nil {
		return Task{}, err
	}
	if !CanMutateTask(principal, t) {
		return Task{}, ErrForbidden
	}

	if upd.Title != "" {
		t.Title = upd.Title
	}
	if upd.Description != "" {
		t.Description = upd.Description
	}
	if upd.DueAt != "" {
		t.DueAt, _ = ParseDueDate(upd.DueAt) // validated
	}
	if upd.Priority != "" {
		t.Priority = upd.Priority
	}
	t.LastEditedBy = principal.ID
	t.UpdatedAt = svc.now()

	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return Task{}, errors.Wrap(err, "updating task")
	}
	return t, nil
}

// DeleteTask deletes a Task; the store removes its deliveries along with it.
func (svc *Service) DeleteTask(ctx context.Context, principal user.User, id string) error {
	t, err := svc.repo.GetTask(ctx, core.CleanString(id))
	if err != nil {
		return err
	}
	if !CanMutateTask(principal, t) {
		return ErrForbidden
	}
	if err = svc.repo.DeleteTask(ctx, t.ID); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return nil
}

// UpdateDeliveryStatus moves a Delivery to status st on behalf of its recipient.
// Requesting the current status is a no-op returning the Delivery unchanged.
func (svc *Service) UpdateDeliveryStatus(ctx context.Context, principal user.User, deliveryID string, st Status) (Delivery, error) {
	ud := UpdateDelivery{Status: st}
	if err := ud.Validate(svc.validate); err != nil {
		return Delivery{}, svc.validationError(err)
	}

	d, err := svc.repo.GetDeliveryByID(ctx, core.CleanString(deliveryID))
	if err != nil {
		return Delivery{}, err
	}
	if !CanMutateDelivery(principal, d) {
		return Delivery{}, ErrForbidden
	}
	if d.Status == ud.Status {
		return d, nil
	}
	if !CanTransition(d.Status, ud.Status) {
		return Delivery{}, ErrInvalidTransition
	}

	updated, err := svc.repo.UpdateDeliveryStatus(ctx, d.ID, ud.Status, svc.now())
	if err != nil {
		return Delivery{}, errors.Wrap(err, "updating delivery status")
	}
	deliveryTransitions.WithLabelValues(string(d.Status), string(ud.Status)).Inc()
	return updated, nil
}

// ViewForPrincipal returns a Task joined with the Delivery principal owns for it, if any.
func (svc *Service) ViewForPrincipal(ctx context.Context, principal user.User, taskID string) (View, error) {
	view, err := svc.repo.GetViewForPrincipal(ctx, core.CleanString(taskID), principal.ID)
	if err != nil {
		return View{}, err
	}
	if !CanView(principal, view) {
		return View{}, ErrForbidden
	}
	return view, nil
}

// ListForPrincipal returns the views of every task principalID is a recipient of, narrowed by f.
func (svc *Service) ListForPrincipal(ctx context.Context, principalID string, f QueryFilter, ordering []core.DBOrdering) ([]View, error) {
	if err := f.Validate(svc.validate); err != nil {
		return nil, svc.validationError(err)
	}
	views, err := svc.repo.QueryTasksForPrincipal(ctx, principalID, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	return Filter(views, f.Predicates()...), nil
}

// Stats returns the completion counts of a Task to its creator or an elevated principal.
func (svc *Service) Stats(ctx context.Context, principal user.User, taskID string) (Stats, error) {
	deliveries, err := svc.ListDeliveries(ctx, principal, taskID)
	if err != nil {
		return Stats{}, err
	}
	return Aggregate(core.CleanString(taskID), deliveries), nil
}

// ListDeliveries returns the deliveries of a Task to its creator or an elevated principal.
func (svc *Service) ListDeliveries(ctx context.Context, principal user.User, taskID string) ([]Delivery, error) {
	t, err := svc.repo.GetTask(ctx, core.CleanString(taskID))
	if err != nil {
		return nil, err
	}
	if !CanMutateTask(principal, t) {
		return nil, ErrForbidden
	}
	deliveries, err := svc.repo.QueryDeliveriesForTask(ctx, t.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying deliveries")
	}
	return deliveries, nil
}
