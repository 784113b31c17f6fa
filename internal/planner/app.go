package planner

import (
	"github.com/colonyops/backlog/internal/core/auth"
	"github.com/colonyops/backlog/internal/core/config"
	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/core/notify"
	"github.com/colonyops/backlog/internal/core/users"
	"github.com/colonyops/backlog/internal/data/db"
)

// App is the central entry point for all backlog operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Board    *Service
	Projects *ProjectService // nil for the local backend

	// Console receives user-facing notifications. The terminal UI swaps its
	// target while it owns the screen.
	Console *notify.Switch

	// History is nil when notification history is disabled.
	History notify.Store
	Users   users.Directory
	Auth    auth.Provider
	Cache   kv.KV

	Config *config.Config
	DB     *db.DB
}
