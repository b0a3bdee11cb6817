package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

type taskRepository struct {
	tasks      *taskTable
	deliveries *deliveryTable
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{tasks: db.task, deliveries: db.delivery}
}

func copyTask(t *task.Task) task.Task {
	cp := *t
	if t.DueAt != nil {
		due := *t.DueAt
		cp.DueAt = &due
	}
	return cp
}

func (repo *taskRepository) InsertTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.tasks.Lock()
	defer repo.tasks.Unlock()

	t.ID = uuid.New().String()
	stored := copyTask(&t)
	repo.tasks.table[t.ID] = &stored
	return t, nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.tasks.Lock()
	defer repo.tasks.Unlock()

	orig, ok := repo.tasks.table[t.ID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	// only editable fields
	orig.Title = t.Title
	orig.Description = t.Description
	orig.DueAt = t.DueAt
	orig.Priority = t.Priority
	orig.LastEditedBy = t.LastEditedBy
	orig.UpdatedAt = t.UpdatedAt
	updated := copyTask(orig)
	repo.tasks.table[t.ID] = &updated
	return copyTask(&updated), nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string) (task.Task, error) {
	repo.tasks.RLock()
	defer repo.tasks.RUnlock()

	if t, ok := repo.tasks.table[id]; ok {
		return copyTask(t), nil
	}
	return task.Task{}, task.ErrNotFound
}

// DeleteTask removes the task and, like ON DELETE CASCADE, its deliveries.
func (repo *taskRepository) DeleteTask(ctx context.Context, id string) error {
	repo.tasks.Lock()
	defer repo.tasks.Unlock()

	if _, ok := repo.tasks.table[id]; !ok {
		return task.ErrNotFound
	}
	delete(repo.tasks.table, id)
	return repo.DeleteDeliveriesForTask(ctx, id)
}

// BulkInsertDeliveries holds the task table lock for the whole insert, so a concurrent DeleteTask
// either runs first (ErrNotFound) or cascades over every inserted row.
func (repo *taskRepository) BulkInsertDeliveries(_ context.Context, taskID string, recipientIDs []string, at time.Time) ([]task.Delivery, error) {
	repo.tasks.RLock()
	defer repo.tasks.RUnlock()
	if _, ok := repo.tasks.table[taskID]; !ok {
		return nil, task.ErrNotFound
	}

	repo.deliveries.Lock()
	defer repo.deliveries.Unlock()

	// check every row first: all or none
	seen := make(map[deliveryKey]struct{}, len(recipientIDs))
	for _, rid := range recipientIDs {
		key := deliveryKey{taskID: taskID, recipientID: rid}
		if _, dup := repo.deliveries.unique[key]; dup {
			return nil, task.ErrDuplicateDelivery
		}
		if _, dup := seen[key]; dup {
			return nil, task.ErrDuplicateDelivery
		}
		seen[key] = struct{}{}
	}

	deliveries := make([]task.Delivery, 0, len(recipientIDs))
	for _, rid := range recipientIDs {
		d := task.Delivery{
			ID:          uuid.New().String(),
			TaskID:      taskID,
			RecipientID: rid,
			Status:      task.StatusPending,
			UpdatedAt:   at.UTC(),
		}
		stored := d
		repo.deliveries.table[d.ID] = &stored
		repo.deliveries.unique[deliveryKey{taskID: taskID, recipientID: rid}] = d.ID
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

func (repo *taskRepository) GetDeliveryByID(_ context.Context, id string) (task.Delivery, error) {
	repo.deliveries.RLock()
	defer repo.deliveries.RUnlock()

	if d, ok := repo.deliveries.table[id]; ok {
		return *d, nil
	}
	return task.Delivery{}, task.ErrDeliveryNotFound
}

func (repo *taskRepository) UpdateDeliveryStatus(_ context.Context, id string, st task.Status, at time.Time) (task.Delivery, error) {
	repo.deliveries.Lock()
	defer repo.deliveries.Unlock()

	d, ok := repo.deliveries.table[id]
	if !ok {
		return task.Delivery{}, task.ErrDeliveryNotFound
	}
	d.Status = st
	d.UpdatedAt = at.UTC()
	return *d, nil
}

func (repo *taskRepository) DeleteDeliveriesForTask(_ context.Context, taskID string) error {
	repo.deliveries.Lock()
	defer repo.deliveries.Unlock()

	for id, d := range repo.deliveries.table {
		if d.TaskID == taskID {
			delete(repo.deliveries.unique, deliveryKey{taskID: d.TaskID, recipientID: d.RecipientID})
			delete(repo.deliveries.table, id)
		}
	}
	return nil
}

func (repo *taskRepository) QueryDeliveriesForTask(_ context.Context, taskID string) ([]task.Delivery, error) {
	repo.deliveries.RLock()
	defer repo.deliveries.RUnlock()

	deliveries := make([]task.Delivery, 0)
	for _, d := range repo.deliveries.table {
		if d.TaskID == taskID {
			deliveries = append(deliveries, *d)
		}
	}
	sort.Slice(deliveries, func(i, j int) bool { return deliveries[i].RecipientID < deliveries[j].RecipientID })
	return deliveries, nil
}

func (repo *taskRepository) QueryTasksForPrincipal(_ context.Context, principalID string, ordering []core.DBOrdering) ([]task.View, error) {
	repo.tasks.RLock()
	defer repo.tasks.RUnlock()
	repo.deliveries.RLock()
	defer repo.deliveries.RUnlock()

	views := make([]task.View, 0)
	for _, d := range repo.deliveries.table {
		if d.RecipientID != principalID {
			continue
		}
		t, ok := repo.tasks.table[d.TaskID]
		if !ok {
			continue
		}
		views = append(views, task.View{Task: copyTask(t)}.WithDelivery(*d))
	}
	sortViews(views, ordering)
	return views, nil
}

func (repo *taskRepository) GetViewForPrincipal(_ context.Context, taskID, principalID string) (task.View, error) {
	repo.tasks.RLock()
	defer repo.tasks.RUnlock()
	repo.deliveries.RLock()
	defer repo.deliveries.RUnlock()

	t, ok := repo.tasks.table[taskID]
	if !ok {
		return task.View{}, task.ErrNotFound
	}
	view := task.View{Task: copyTask(t)}
	if id, ok := repo.deliveries.unique[deliveryKey{taskID: taskID, recipientID: principalID}]; ok {
		view = view.WithDelivery(*repo.deliveries.table[id])
	}
	return view, nil
}

// sortViews orders views by the given fields, then by creation date (newest first) and id.
func sortViews(views []task.View, ordering []core.DBOrdering) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		for _, ord := range ordering {
			c := compareField(a.Task, b.Task, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func compareField(a, b task.Task, field string) int {
	switch field {
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "priority":
		return a.Priority.Rank() - b.Priority.Rank()
	case "created_at":
		return compareTime(&a.CreatedAt, &b.CreatedAt)
	case "due_at":
		return compareTime(a.DueAt, b.DueAt)
	}
	return 0
}

// compareTime sorts nil times after set ones, as Postgres does for NULLs in ascending order.
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}
