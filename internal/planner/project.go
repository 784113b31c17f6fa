package planner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/backlog/internal/core/auth"
	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/logging"
	"github.com/colonyops/backlog/internal/core/notify"
)

// ProjectService manages projects of the remote backend.
type ProjectService struct {
	store    board.ProjectStore
	auth     auth.Provider
	notifier notify.Notifier
	log      zerolog.Logger
}

// NewProjectService creates a ProjectService. The owner of new projects is
// the current user reported by provider.
func NewProjectService(store board.ProjectStore, provider auth.Provider, notifier notify.Notifier) *ProjectService {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &ProjectService{
		store:    store,
		auth:     provider,
		notifier: notifier,
		log:      logging.Component("projects"),
	}
}

// Create persists a project owned by the current user.
func (s *ProjectService) Create(ctx context.Context, title string, assignees []string) (board.Project, error) {
	user, err := auth.Require(ctx, s.auth)
	if err != nil {
		s.report(ctx, notify.Error("Failed to create project", err))
		return board.Project{}, fmt.Errorf("create project: %w", err)
	}

	p := board.Project{
		Title:     title,
		UserID:    user.ID,
		Assignees: board.NormalizeAssignees(assignees),
	}
	if err := p.Validate(); err != nil {
		err = board.Invalid("project", err)
		s.report(ctx, notify.Error("Project title required", err))
		return board.Project{}, err
	}

	if err := s.store.CreateProject(ctx, &p); err != nil {
		s.report(ctx, notify.Error("Failed to create project", err))
		return board.Project{}, fmt.Errorf("create project: %w", err)
	}

	s.log.Debug().Ctx(ctx).Str("project_id", p.ID).Msg("project created")
	s.report(ctx, notify.Info("Project created", p.Title))
	return p, nil
}

// Get returns one project.
func (s *ProjectService) Get(ctx context.Context, id string) (board.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return board.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// List returns the current user's projects, newest first.
func (s *ProjectService) List(ctx context.Context) ([]board.Project, error) {
	user, err := auth.Require(ctx, s.auth)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects, err := s.store.ListProjects(ctx, user.ID)
	if err != nil {
		s.report(ctx, notify.Error("Error fetching projects", err))
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectService) report(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("notification not delivered")
	}
}
