package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/data/db"
)

// ProjectStore implements board.ProjectStore using SQLite.
type ProjectStore struct {
	db *db.DB
}

var _ board.ProjectStore = (*ProjectStore)(nil)

// NewProjectStore creates a new SQLite-backed project store.
func NewProjectStore(database *db.DB) *ProjectStore {
	return &ProjectStore{db: database}
}

// CreateProject persists p, filling ID and CreatedAt when unset.
func (s *ProjectStore) CreateProject(ctx context.Context, p *board.Project) error {
	if p.ID == "" {
		p.ID = board.NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.Assignees = board.NormalizeAssignees(p.Assignees)

	assignees, err := marshalStrings(p.Assignees)
	if err != nil {
		return board.Persistence("create project", err)
	}

	err = s.db.Queries().CreateProject(ctx, db.CreateProjectParams{
		ID:        p.ID,
		Title:     p.Title,
		CreatedAt: p.CreatedAt.UnixNano(),
		UserID:    p.UserID,
		Assignees: assignees,
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			err = fmt.Errorf("project %q already exists: %w", p.ID, err)
		}
		return board.Persistence("create project", err)
	}

	return nil
}

// GetProject returns a project by ID.
func (s *ProjectStore) GetProject(ctx context.Context, id string) (board.Project, error) {
	row, err := s.db.Queries().GetProject(ctx, id)
	if IsNotFoundError(err) {
		return board.Project{}, board.NotFound("project", id)
	}
	if err != nil {
		return board.Project{}, board.Persistence("get project", err)
	}

	p, err := rowToProject(row)
	if err != nil {
		return board.Project{}, board.Persistence("get project", err)
	}
	return p, nil
}

// ListProjects returns the projects owned by userID, newest first.
func (s *ProjectStore) ListProjects(ctx context.Context, userID string) ([]board.Project, error) {
	rows, err := s.db.Queries().ListProjectsByUser(ctx, userID)
	if err != nil {
		return nil, board.Persistence("list projects", err)
	}

	projects := make([]board.Project, 0, len(rows))
	for _, row := range rows {
		p, err := rowToProject(row)
		if err != nil {
			return nil, board.Persistence("list projects", err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func rowToProject(row db.Project) (board.Project, error) {
	assignees, err := unmarshalStrings(row.Assignees)
	if err != nil {
		return board.Project{}, fmt.Errorf("project %q assignees: %w", row.ID, err)
	}

	return board.Project{
		ID:        row.ID,
		Title:     row.Title,
		CreatedAt: time.Unix(0, row.CreatedAt),
		UserID:    row.UserID,
		Assignees: assignees,
	}, nil
}
