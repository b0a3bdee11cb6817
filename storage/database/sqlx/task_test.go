package sqlxrepos

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

var (
	taskCols     = []string{"id", "title", "description", "due_at", "priority", "kind", "created_by", "last_edited_by", "created_at", "updated_at"}
	deliveryCols = []string{"id", "task_id", "recipient_id", "status", "updated_at"}
	viewCols     = append(append([]string(nil), taskCols...), "delivery_id", "delivery_status", "delivery_updated_at")
)

func newTaskRepo(t *testing.T) (*taskRepository, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	return NewTaskRepository(db, core.NewTestConfig()), mock
}

func TestTaskRepository_InsertTask(t *testing.T) {
	repo, mock := newTaskRepo(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tasks (` + taskColumns + `)`)).
		WithArgs(sqlmock.AnyArg(), "Essay", nil, nil, "high", "broadcast", "teacher", nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.InsertTask(context.Background(), task.Task{
		Title:     "Essay",
		Priority:  task.PriorityHigh,
		Kind:      task.KindBroadcast,
		CreatedBy: "teacher",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	_, err = uuid.Parse(got.ID)
	assert.NoError(t, err)
}

func TestTaskRepository_GetTask(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()
	now := time.Now().UTC()
	due := now.Add(24 * time.Hour)
	q := regexp.QuoteMeta(`SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`)

	t.Run("found", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(q).WithArgs(id).WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(id, "Essay", "500 words", due, "high", "personal", "teacher", "admin", now, now))

		got, err := repo.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, task.Task{
			ID:           id,
			Title:        "Essay",
			Description:  "500 words",
			DueAt:        &due,
			Priority:     task.PriorityHigh,
			Kind:         task.KindPersonal,
			CreatedBy:    "teacher",
			LastEditedBy: "admin",
			CreatedAt:    now,
			UpdatedAt:    now,
		}, got)
	})

	t.Run("nullable columns", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(q).WithArgs(id).WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(id, "Essay", nil, nil, "medium", "personal", "teacher", nil, now, now))

		got, err := repo.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.DueAt)
		assert.Empty(t, got.Description)
		assert.Empty(t, got.LastEditedBy)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(q).WithArgs(id).WillReturnRows(sqlmock.NewRows(taskCols))

		_, err := repo.GetTask(ctx, id)
		assert.Equal(t, task.ErrNotFound, err)
	})

	t.Run("malformed id", func(t *testing.T) {
		repo, _ := newTaskRepo(t)
		_, err := repo.GetTask(ctx, "404")
		assert.Equal(t, task.ErrNotFound, err)
	})

	t.Run("store unavailable", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(q).WithArgs(id).WillReturnError(&pq.Error{Code: "57P03"})

		_, err := repo.GetTask(ctx, id)
		assert.Equal(t, core.ErrStoreUnavailable, errors.Cause(err))
	})
}

func TestTaskRepository_UpdateTask(t *testing.T) {
	repo, mock := newTaskRepo(t)
	id := uuid.New().String()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE tasks`)).
		WithArgs("Essay v2", nil, nil, "low", "admin", now, id).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(id, "Essay v2", nil, nil, "low", "personal", "teacher", "admin", now, now))

	got, err := repo.UpdateTask(context.Background(), task.Task{
		ID: id, Title: "Essay v2", Priority: task.PriorityLow, LastEditedBy: "admin", UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "Essay v2", got.Title)
	assert.Equal(t, "admin", got.LastEditedBy)
}

func TestTaskRepository_DeleteTask(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()
	q := regexp.QuoteMeta(`DELETE FROM tasks WHERE id = $1`)

	t.Run("deleted", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectExec(q).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.DeleteTask(ctx, id))
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectExec(q).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.Equal(t, task.ErrNotFound, repo.DeleteTask(ctx, id))
	})
}

// uuidArray matches a Postgres text array of uuids and keeps them.
type uuidArray struct {
	ids []string
}

func (arg *uuidArray) Match(v driver.Value) bool {
	str, ok := v.(string)
	if !ok || !strings.HasPrefix(str, "{") || !strings.HasSuffix(str, "}") {
		return false
	}
	arg.ids = nil
	for _, id := range strings.Split(strings.Trim(str, "{}"), ",") {
		id = strings.Trim(id, `"`)
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
		arg.ids = append(arg.ids, id)
	}
	return true
}

func TestTaskRepository_BulkInsertDeliveries(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New().String()
	now := time.Now()
	q := regexp.QuoteMeta(`INSERT INTO deliveries (` + deliveryColumns + `)`) + `\s+` +
		regexp.QuoteMeta(`SELECT r.id, $1::uuid, r.recipient_id, $2::text, $3::timestamptz FROM UNNEST($4::uuid[], $5::text[]) AS r (id, recipient_id)`)

	t.Run("single statement", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		ids := new(uuidArray)
		mock.ExpectExec(q).
			WithArgs(taskID, "pending", now.UTC(), ids, pq.Array([]string{"a", "b"})).
			WillReturnResult(sqlmock.NewResult(0, 2))

		got, err := repo.BulkInsertDeliveries(ctx, taskID, []string{"a", "b"}, now)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Len(t, ids.ids, 2)
		for i, rid := range []string{"a", "b"} {
			assert.Equal(t, ids.ids[i], got[i].ID)
			assert.Equal(t, rid, got[i].RecipientID)
			assert.Equal(t, taskID, got[i].TaskID)
			assert.Equal(t, task.StatusPending, got[i].Status)
		}
		assert.NotEqual(t, got[0].ID, got[1].ID)
	})

	t.Run("large roster", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		recipients := make([]string, 20000)
		for i := range recipients {
			recipients[i] = fmt.Sprintf("s-%d", i)
		}
		mock.ExpectExec(q).
			WithArgs(taskID, "pending", now.UTC(), sqlmock.AnyArg(), pq.Array(recipients)).
			WillReturnResult(sqlmock.NewResult(0, int64(len(recipients))))

		got, err := repo.BulkInsertDeliveries(ctx, taskID, recipients, now)
		require.NoError(t, err)
		assert.Len(t, got, len(recipients))
	})

	t.Run("duplicate", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectExec(q).WillReturnError(&pq.Error{Code: "23505", Constraint: "deliveries_task_recipient_key"})

		_, err := repo.BulkInsertDeliveries(ctx, taskID, []string{"a", "b"}, now)
		assert.Equal(t, task.ErrDuplicateDelivery, err)
	})

	t.Run("timeout", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectExec(q).WillReturnError(context.DeadlineExceeded)

		_, err := repo.BulkInsertDeliveries(ctx, taskID, []string{"a", "b"}, now)
		assert.Equal(t, core.ErrTimeout, errors.Cause(err))
	})

	t.Run("no recipients", func(t *testing.T) {
		repo, _ := newTaskRepo(t)
		got, err := repo.BulkInsertDeliveries(ctx, taskID, nil, now)
		assert.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestTaskRepository_deliveries(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New().String()
	id := uuid.New().String()
	now := time.Now().UTC()

	t.Run("get", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`)).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(deliveryCols).AddRow(id, taskID, "a", "in_progress", now))

		got, err := repo.GetDeliveryByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, task.Delivery{ID: id, TaskID: taskID, RecipientID: "a", Status: task.StatusInProgress, UpdatedAt: now}, got)
	})

	t.Run("get unknown", func(t *testing.T) {
		repo, _ := newTaskRepo(t)
		_, err := repo.GetDeliveryByID(ctx, "404")
		assert.Equal(t, task.ErrDeliveryNotFound, err)
	})

	t.Run("update status", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE deliveries SET status = $1, updated_at = $2 WHERE id = $3`)).
			WithArgs("completed", now, id).
			WillReturnRows(sqlmock.NewRows(deliveryCols).AddRow(id, taskID, "a", "completed", now))

		got, err := repo.UpdateDeliveryStatus(ctx, id, task.StatusCompleted, now)
		require.NoError(t, err)
		assert.Equal(t, task.StatusCompleted, got.Status)
	})

	t.Run("update status of a deleted delivery", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE deliveries`)).WillReturnRows(sqlmock.NewRows(deliveryCols))

		_, err := repo.UpdateDeliveryStatus(ctx, id, task.StatusCompleted, now)
		assert.Equal(t, task.ErrDeliveryNotFound, err)
	})

	t.Run("delete for task is idempotent", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		q := regexp.QuoteMeta(`DELETE FROM deliveries WHERE task_id = $1`)
		mock.ExpectExec(q).WithArgs(taskID).WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(q).WithArgs(taskID).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.DeleteDeliveriesForTask(ctx, taskID))
		assert.NoError(t, repo.DeleteDeliveriesForTask(ctx, taskID))
		assert.NoError(t, repo.DeleteDeliveriesForTask(ctx, "404"))
	})

	t.Run("query for task", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM deliveries WHERE task_id = $1 ORDER BY recipient_id`)).
			WithArgs(taskID).
			WillReturnRows(sqlmock.NewRows(deliveryCols).
				AddRow(uuid.New().String(), taskID, "a", "pending", now).
				AddRow(uuid.New().String(), taskID, "b", "completed", now))

		got, err := repo.QueryDeliveriesForTask(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, task.Stats{TaskID: taskID, Total: 2, Pending: 1, Completed: 1}, task.Aggregate(taskID, got))
	})
}

func TestTaskRepository_views(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New().String()
	deliveryID := uuid.New().String()
	now := time.Now().UTC()

	t.Run("query for principal", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE d.recipient_id = $1
		ORDER BY LOWER(t.title) ASC, CASE t.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END DESC, t.created_at DESC, t.id`)).
			WithArgs("a").
			WillReturnRows(sqlmock.NewRows(viewCols).
				AddRow(taskID, "Essay", nil, nil, "high", "broadcast", "teacher", nil, now, now, deliveryID, "pending", now))

		got, err := repo.QueryTasksForPrincipal(ctx, "a", []core.DBOrdering{
			{Field: "title", Ascending: true},
			{Field: "priority"},
			{Field: "password"},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].IsRecipient())
		assert.Equal(t, deliveryID, *got[0].DeliveryID)
		assert.Equal(t, task.StatusPending, *got[0].Status)
	})

	t.Run("view of a non recipient", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN deliveries d ON d.task_id = t.id AND d.recipient_id = $2`)).
			WithArgs(taskID, "b").
			WillReturnRows(sqlmock.NewRows(viewCols).
				AddRow(taskID, "Essay", nil, nil, "high", "personal", "teacher", nil, now, now, nil, nil, nil))

		got, err := repo.GetViewForPrincipal(ctx, taskID, "b")
		require.NoError(t, err)
		assert.Equal(t, taskID, got.ID)
		assert.False(t, got.IsRecipient())
		assert.Nil(t, got.Status)
	})

	t.Run("view of an unknown task", func(t *testing.T) {
		repo, mock := newTaskRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN deliveries`)).WillReturnRows(sqlmock.NewRows(viewCols))

		_, err := repo.GetViewForPrincipal(ctx, taskID, "b")
		assert.Equal(t, task.ErrNotFound, err)
	})
}

func Test_orderBy(t *testing.T) {
	assert.Equal(t, "t.created_at DESC, t.id", orderBy(nil))
	assert.Equal(t, "t.due_at ASC, t.created_at DESC, t.id", orderBy([]core.DBOrdering{{Field: "due_at", Ascending: true}}))
	assert.Equal(t, "t.created_at ASC, t.created_at DESC, t.id", orderBy([]core.DBOrdering{{Field: "created_at", Ascending: true}}))
}
