package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

const (
	taskColumns     = "id, title, description, due_at, priority, kind, created_by, last_edited_by, created_at, updated_at"
	deliveryColumns = "id, task_id, recipient_id, status, updated_at"
	viewColumns     = `t.id, t.title, t.description, t.due_at, t.priority, t.kind, t.created_by, t.last_edited_by,
		t.created_at, t.updated_at, d.id AS delivery_id, d.status AS delivery_status, d.updated_at AS delivery_updated_at`
)

// orderingColumns maps the ordering fields of task.OrderingFields to SQL expressions.
var orderingColumns = map[string]string{
	"due_at":     "t.due_at",
	"created_at": "t.created_at",
	"title":      "LOWER(t.title)",
	"priority":   "CASE t.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END",
}

type taskRow struct {
	ID           string      `db:"id"`
	Title        string      `db:"title"`
	Description  null.String `db:"description"`
	DueAt        null.Time   `db:"due_at"`
	Priority     string      `db:"priority"`
	Kind         string      `db:"kind"`
	CreatedBy    string      `db:"created_by"`
	LastEditedBy null.String `db:"last_edited_by"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func toTaskRow(t task.Task) taskRow {
	return taskRow{
		ID:           t.ID,
		Title:        t.Title,
		Description:  null.NewString(t.Description, t.Description != ""),
		DueAt:        null.TimeFromPtr(t.DueAt),
		Priority:     string(t.Priority),
		Kind:         string(t.Kind),
		CreatedBy:    t.CreatedBy,
		LastEditedBy: null.NewString(t.LastEditedBy, t.LastEditedBy != ""),
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}
}

func (row taskRow) toTask() task.Task {
	t := task.Task{
		ID:           row.ID,
		Title:        row.Title,
		Description:  row.Description.String,
		Priority:     task.Priority(row.Priority),
		Kind:         task.Kind(row.Kind),
		CreatedBy:    row.CreatedBy,
		LastEditedBy: row.LastEditedBy.String,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.DueAt.Valid {
		due := row.DueAt.Time.UTC()
		t.DueAt = &due
	}
	return t
}

type deliveryRow struct {
	ID          string    `db:"id"`
	TaskID      string    `db:"task_id"`
	RecipientID string    `db:"recipient_id"`
	Status      string    `db:"status"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row deliveryRow) toDelivery() task.Delivery {
	return task.Delivery{
		ID:          row.ID,
		TaskID:      row.TaskID,
		RecipientID: row.RecipientID,
		Status:      task.Status(row.Status),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type viewRow struct {
	taskRow
	DeliveryID        null.String `db:"delivery_id"`
	DeliveryStatus    null.String `db:"delivery_status"`
	DeliveryUpdatedAt null.Time   `db:"delivery_updated_at"`
}

func (row viewRow) toView() task.View {
	v := task.View{Task: row.taskRow.toTask()}
	if row.DeliveryID.Valid {
		v = v.WithDelivery(task.Delivery{
			ID:        row.DeliveryID.String,
			TaskID:    row.ID,
			Status:    task.Status(row.DeliveryStatus.String),
			UpdatedAt: row.DeliveryUpdatedAt.Time.UTC(),
		})
	}
	return v
}

// isUUID filters out ids Postgres would reject with an invalid input syntax error.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type taskRepository struct {
	baseRepo
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db sqlx.ExtContext, conf *core.Config) *taskRepository {
	return &taskRepository{baseRepo: newRepo(db, conf)}
}

func (repo *taskRepository) InsertTask(ctx context.Context, t task.Task) (task.Task, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	t.ID = uuid.New().String()
	q := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (:id, :title, :description, :due_at, :priority, :kind, :created_by, :last_edited_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, toTaskRow(t)); err != nil {
		return task.Task{}, trapErr(err, nil, nil, "inserting task")
	}
	return t, nil
}

func (repo *taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if !isUUID(t.ID) {
		return task.Task{}, task.ErrNotFound
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	row := toTaskRow(t)
	q := `UPDATE tasks
		SET title = $1, description = $2, due_at = $3, priority = $4, last_edited_by = $5, updated_at = $6
		WHERE id = $7
		RETURNING ` + taskColumns
	var updated taskRow
	err := sqlx.GetContext(ctx, repo.db, &updated, q,
		row.Title, row.Description, row.DueAt, row.Priority, row.LastEditedBy, row.UpdatedAt, row.ID)
	if err != nil {
		return task.Task{}, trapErr(err, task.ErrNotFound, nil, "updating task")
	}
	return updated.toTask(), nil
}

func (repo *taskRepository) GetTask(ctx context.Context, id string) (task.Task, error) {
	if !isUUID(id) {
		return task.Task{}, task.ErrNotFound
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	var row taskRow
	if err := sqlx.GetContext(ctx, repo.db, &row, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id); err != nil {
		return task.Task{}, trapErr(err, task.ErrNotFound, nil, "getting task")
	}
	return row.toTask(), nil
}

// DeleteTask deletes the task; its deliveries go with it (ON DELETE CASCADE).
func (repo *taskRepository) DeleteTask(ctx context.Context, id string) error {
	if !isUUID(id) {
		return task.ErrNotFound
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, nil, nil, "deleting task")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return trapErr(err, nil, nil, "deleting task")
	}
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

// BulkInsertDeliveries inserts every delivery with a single statement, so either all rows or none are written.
// Ids and recipients are sent as two arrays: the statement has a fixed number of parameters whatever the roster size.
func (repo *taskRepository) BulkInsertDeliveries(ctx context.Context, taskID string, recipientIDs []string, at time.Time) ([]task.Delivery, error) {
	if !isUUID(taskID) {
		return nil, task.ErrNotFound
	}
	if len(recipientIDs) == 0 {
		return []task.Delivery{}, nil
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	at = at.UTC()
	deliveries := make([]task.Delivery, 0, len(recipientIDs))
	ids := make([]string, 0, len(recipientIDs))
	for _, rid := range recipientIDs {
		d := task.Delivery{
			ID:          uuid.New().String(),
			TaskID:      taskID,
			RecipientID: rid,
			Status:      task.StatusPending,
			UpdatedAt:   at,
		}
		deliveries = append(deliveries, d)
		ids = append(ids, d.ID)
	}

	q := `INSERT INTO deliveries (` + deliveryColumns + `)
		SELECT r.id, $1::uuid, r.recipient_id, $2::text, $3::timestamptz
		FROM UNNEST($4::uuid[], $5::text[]) AS r (id, recipient_id)`
	_, err := repo.db.ExecContext(ctx, q, taskID, string(task.StatusPending), at, pq.Array(ids), pq.Array(recipientIDs))
	if err != nil {
		return nil, trapErr(err, nil, task.ErrDuplicateDelivery, "inserting deliveries")
	}
	return deliveries, nil
}

func (repo *taskRepository) GetDeliveryByID(ctx context.Context, id string) (task.Delivery, error) {
	if !isUUID(id) {
		return task.Delivery{}, task.ErrDeliveryNotFound
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	var row deliveryRow
	if err := sqlx.GetContext(ctx, repo.db, &row, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id); err != nil {
		return task.Delivery{}, trapErr(err, task.ErrDeliveryNotFound, nil, "getting delivery")
	}
	return row.toDelivery(), nil
}

func (repo *taskRepository) UpdateDeliveryStatus(ctx context.Context, id string, st task.Status, at time.Time) (task.Delivery, error) {
	if !isUUID(id) {
		return task.Delivery{}, task.ErrDeliveryNotFound
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	q := `UPDATE deliveries SET status = $1, updated_at = $2 WHERE id = $3 RETURNING ` + deliveryColumns
	var row deliveryRow
	if err := sqlx.GetContext(ctx, repo.db, &row, q, string(st), at.UTC(), id); err != nil {
		return task.Delivery{}, trapErr(err, task.ErrDeliveryNotFound, nil, "updating delivery status")
	}
	return row.toDelivery(), nil
}

func (repo *taskRepository) DeleteDeliveriesForTask(ctx context.Context, taskID string) error {
	if !isUUID(taskID) {
		return nil
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	if _, err := repo.db.ExecContext(ctx, `DELETE FROM deliveries WHERE task_id = $1`, taskID); err != nil {
		return trapErr(err, nil, nil, "deleting deliveries")
	}
	return nil
}

func (repo *taskRepository) QueryDeliveriesForTask(ctx context.Context, taskID string) ([]task.Delivery, error) {
	if !isUUID(taskID) {
		return []task.Delivery{}, nil
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	var rows []deliveryRow
	q := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE task_id = $1 ORDER BY recipient_id`
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, taskID); err != nil {
		return nil, trapErr(err, nil, nil, "querying deliveries")
	}
	deliveries := make([]task.Delivery, 0, len(rows))
	for _, row := range rows {
		deliveries = append(deliveries, row.toDelivery())
	}
	return deliveries, nil
}

func (repo *taskRepository) QueryTasksForPrincipal(ctx context.Context, principalID string, ordering []core.DBOrdering) ([]task.View, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	q := `SELECT ` + viewColumns + `
		FROM tasks t
		JOIN deliveries d ON d.task_id = t.id
		WHERE d.recipient_id = $1
		ORDER BY ` + orderBy(ordering)

	var rows []viewRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, principalID); err != nil {
		return nil, trapErr(err, nil, nil, "querying tasks for principal")
	}
	views := make([]task.View, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.toView())
	}
	return views, nil
}

func (repo *taskRepository) GetViewForPrincipal(ctx context.Context, taskID, principalID string) (task.View, error) {
	if !isUUID(taskID) {
		return task.View{}, task.ErrNotFound
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	q := `SELECT ` + viewColumns + `
		FROM tasks t
		LEFT JOIN deliveries d ON d.task_id = t.id AND d.recipient_id = $2
		WHERE t.id = $1`

	var row viewRow
	if err := sqlx.GetContext(ctx, repo.db, &row, q, taskID, principalID); err != nil {
		return task.View{}, trapErr(err, task.ErrNotFound, nil, "getting task view")
	}
	return row.toView(), nil
}

// orderBy renders the ORDER BY list: known fields first, then newest first and id for stability.
func orderBy(ordering []core.DBOrdering) string {
	orderList := make([]string, 0, len(ordering)+2)
	for _, ord := range ordering {
		col, ok := orderingColumns[ord.Field]
		if !ok {
			continue
		}
		orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	orderList = append(orderList, "t.created_at DESC", "t.id")
	return strings.Join(orderList, ", ")
}
