package db

import "database/sql"

// Project is a row of the projects table.
type Project struct {
	ID        string
	Title     string
	CreatedAt int64
	UserID    string
	Assignees string
}

// Task is a row of the tasks table. Assignees holds a JSON array.
type Task struct {
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

// Sprint is a row of the sprints table. Tasks holds the ordered JSON array
// of task ids; dates are YYYY-MM-DD text.
type Sprint struct {
	ID        string
	Name      string
	StartDate string
	EndDate   string
	Tasks     string
	ProjectID string
}

// KvStore is a row of the kv_store table.
type KvStore struct {
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}

// Notification is a row of the notifications table.
type Notification struct {
	ID          int64
	Level       string
	Title       string
	Description string
	UserID      string
	CreatedAt   int64
}
