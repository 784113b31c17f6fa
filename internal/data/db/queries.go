package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds every statement the stores issue.
type Queries struct {
	db DBTX
}

// New binds a query set to a connection or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of q bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// --- projects ---

const createProject = `INSERT INTO projects (id, title, created_at, user_id, assignees) VALUES (?, ?, ?, ?, ?)`

type CreateProjectParams struct {
	ID        string
	Title     string
	CreatedAt int64
	UserID    string
	Assignees string
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) error {
	_, err := q.db.ExecContext(ctx, createProject, arg.ID, arg.Title, arg.CreatedAt, arg.UserID, arg.Assignees)
	return err
}

const getProject = `SELECT id, title, created_at, user_id, assignees FROM projects WHERE id = ?`

func (q *Queries) GetProject(ctx context.Context, id string) (Project, error) {
	var p Project
	err := q.db.QueryRowContext(ctx, getProject, id).Scan(&p.ID, &p.Title, &p.CreatedAt, &p.UserID, &p.Assignees)
	return p, err
}

const listProjectsByUser = `SELECT id, title, created_at, user_id, assignees FROM projects WHERE user_id = ? ORDER BY created_at DESC, id`

func (q *Queries) ListProjectsByUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, listProjectsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Title, &p.CreatedAt, &p.UserID, &p.Assignees); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// --- tasks ---

const taskColumns = `id, title, description, priority, points, status, assignees, project_id, created_at`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Points, &t.Status, &t.Assignees, &t.ProjectID, &t.CreatedAt)
	return t, err
}

const listTasks = `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = ? ORDER BY created_at ASC, id`

func (q *Queries) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, listTasks, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTask = `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND project_id = ?`

type GetTaskParams struct {
	ID        string
	ProjectID string
}

func (q *Queries) GetTask(ctx context.Context, arg GetTaskParams) (Task, error) {
	return scanTask(q.db.QueryRowContext(ctx, getTask, arg.ID, arg.ProjectID))
}

const createTask = `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateTaskParams struct {
	ID          string
	Title       string
	Description string
	Priority    string
	Points      int64
	Status      string
	Assignees   string
	ProjectID   string
	CreatedAt   int64
}

func (q *Queries) CreateTask(ctx context.Context, arg CreateTaskParams) error {
	_, err := q.db.ExecContext(ctx, createTask,
		arg.ID, arg.Title, arg.Description, arg.Priority, arg.Points, arg.Status, arg.Assignees, arg.ProjectID, arg.CreatedAt,
	)
	return err
}

const updateTask = `UPDATE tasks SET title = ?, description = ?, priority = ?, points = ?, status = ?, assignees = ?
WHERE id = ? AND project_id = ?`

type UpdateTaskParams struct {
	Title       string
	Description string
	Priority    string
	Points      int64
	Status      string
	Assignees   string
	ID          string
	ProjectID   string
}

// UpdateTask returns the number of rows changed.
func (q *Queries) UpdateTask(ctx context.Context, arg UpdateTaskParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTask,
		arg.Title, arg.Description, arg.Priority, arg.Points, arg.Status, arg.Assignees, arg.ID, arg.ProjectID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTask = `DELETE FROM tasks WHERE id = ? AND project_id = ?`

type DeleteTaskParams struct {
	ID        string
	ProjectID string
}

// DeleteTask returns the number of rows removed.
func (q *Queries) DeleteTask(ctx context.Context, arg DeleteTaskParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTask, arg.ID, arg.ProjectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- sprints ---

const sprintColumns = `id, name, startDate, endDate, tasks, project_id`

func scanSprint(row interface{ Scan(...any) error }) (Sprint, error) {
	var s Sprint
	err := row.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.Tasks, &s.ProjectID)
	return s, err
}

const listSprints = `SELECT ` + sprintColumns + ` FROM sprints WHERE project_id = ? ORDER BY startDate ASC, id`

func (q *Queries) ListSprints(ctx context.Context, projectID string) ([]Sprint, error) {
	rows, err := q.db.QueryContext(ctx, listSprints, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Sprint
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const getSprint = `SELECT ` + sprintColumns + ` FROM sprints WHERE id = ? AND project_id = ?`

type GetSprintParams struct {
	ID        string
	ProjectID string
}

func (q *Queries) GetSprint(ctx context.Context, arg GetSprintParams) (Sprint, error) {
	return scanSprint(q.db.QueryRowContext(ctx, getSprint, arg.ID, arg.ProjectID))
}

const createSprint = `INSERT INTO sprints (` + sprintColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

type CreateSprintParams struct {
	ID        string
	Name      string
	StartDate string
	EndDate   string
	Tasks     string
	ProjectID string
}

func (q *Queries) CreateSprint(ctx context.Context, arg CreateSprintParams) error {
	_, err := q.db.ExecContext(ctx, createSprint, arg.ID, arg.Name, arg.StartDate, arg.EndDate, arg.Tasks, arg.ProjectID)
	return err
}

const updateSprint = `UPDATE sprints SET name = ?, startDate = ?, endDate = ?, tasks = ? WHERE id = ? AND project_id = ?`

type UpdateSprintParams struct {
	Name      string
	StartDate string
	EndDate   string
	Tasks     string
	ID        string
	ProjectID string
}

// UpdateSprint returns the number of rows changed.
func (q *Queries) UpdateSprint(ctx context.Context, arg UpdateSprintParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateSprint, arg.Name, arg.StartDate, arg.EndDate, arg.Tasks, arg.ID, arg.ProjectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateSprintTasks = `UPDATE sprints SET tasks = ? WHERE id = ?`

type UpdateSprintTasksParams struct {
	Tasks string
	ID    string
}

func (q *Queries) UpdateSprintTasks(ctx context.Context, arg UpdateSprintTasksParams) error {
	_, err := q.db.ExecContext(ctx, updateSprintTasks, arg.Tasks, arg.ID)
	return err
}

const listSprintsContainingTask = `SELECT ` + sprintColumns + ` FROM sprints
WHERE project_id = ? AND EXISTS (SELECT 1 FROM json_each(sprints.tasks) WHERE json_each.value = ?)`

type ListSprintsContainingTaskParams struct {
	ProjectID string
	TaskID    string
}

func (q *Queries) ListSprintsContainingTask(ctx context.Context, arg ListSprintsContainingTaskParams) ([]Sprint, error) {
	rows, err := q.db.QueryContext(ctx, listSprintsContainingTask, arg.ProjectID, arg.TaskID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Sprint
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const deleteSprint = `DELETE FROM sprints WHERE id = ? AND project_id = ?`

type DeleteSprintParams struct {
	ID        string
	ProjectID string
}

// DeleteSprint returns the number of rows removed.
func (q *Queries) DeleteSprint(ctx context.Context, arg DeleteSprintParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteSprint, arg.ID, arg.ProjectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- kv_store ---

const kvGet = `SELECT key, value, expires_at, created_at, updated_at FROM kv_store WHERE key = ?`

func (q *Queries) KVGet(ctx context.Context, key string) (KvStore, error) {
	var r KvStore
	err := q.db.QueryRowContext(ctx, kvGet, key).Scan(&r.Key, &r.Value, &r.ExpiresAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const kvSet = `INSERT INTO kv_store (key, value, expires_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at`

type KVSetParams struct {
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}

func (q *Queries) KVSet(ctx context.Context, arg KVSetParams) error {
	_, err := q.db.ExecContext(ctx, kvSet, arg.Key, arg.Value, arg.ExpiresAt, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const kvDelete = `DELETE FROM kv_store WHERE key = ?`

func (q *Queries) KVDelete(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, kvDelete, key)
	return err
}

const kvListKeys = `SELECT key FROM kv_store WHERE expires_at IS NULL OR expires_at >= ? ORDER BY key`

func (q *Queries) KVListKeys(ctx context.Context, now sql.NullInt64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, kvListKeys, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

const kvSweepExpired = `DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at < ?`

func (q *Queries) KVSweepExpired(ctx context.Context, now sql.NullInt64) error {
	_, err := q.db.ExecContext(ctx, kvSweepExpired, now)
	return err
}

// --- notifications ---

const insertNotification = `INSERT INTO notifications (level, title, description, user_id, created_at) VALUES (?, ?, ?, ?, ?)`

type InsertNotificationParams struct {
	Level       string
	Title       string
	Description string
	UserID      string
	CreatedAt   int64
}

// InsertNotification returns the generated row id.
func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertNotification, arg.Level, arg.Title, arg.Description, arg.UserID, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listNotifications = `SELECT id, level, title, description, user_id, created_at FROM notifications
ORDER BY created_at DESC, id DESC LIMIT ?`

func (q *Queries) ListNotifications(ctx context.Context, limit int64) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listNotifications, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Level, &n.Title, &n.Description, &n.UserID, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

const deleteAllNotifications = `DELETE FROM notifications`

func (q *Queries) DeleteAllNotifications(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllNotifications)
	return err
}

const countNotifications = `SELECT COUNT(*) FROM notifications`

func (q *Queries) CountNotifications(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countNotifications).Scan(&count)
	return count, err
}
