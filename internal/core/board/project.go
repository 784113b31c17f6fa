package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
)

// Project groups the tasks and sprints of one team in the remote backend.
type Project struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
	Assignees []string  `json:"assignees"`
}

// Validate checks required project fields.
func (p Project) Validate() error {
	var errs criterio.FieldErrorsBuilder
	if strings.TrimSpace(p.Title) == "" {
		errs = errs.Append("title", fmt.Errorf("title is required"))
	}
	if p.UserID == "" {
		errs = errs.Append("user_id", fmt.Errorf("owner is required"))
	}
	return errs.ToError()
}

// ProjectStore persists projects. Only the remote backend provides one.
type ProjectStore interface {
	// CreateProject persists p. ID and CreatedAt are populated when unset.
	CreateProject(ctx context.Context, p *Project) error

	// GetProject returns ErrNotFound when no project has the given id.
	GetProject(ctx context.Context, id string) (Project, error)

	// ListProjects returns the projects owned by userID, newest first.
	ListProjects(ctx context.Context, userID string) ([]Project, error)
}
