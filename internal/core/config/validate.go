package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"

	"github.com/colonyops/backlog/internal/core/validate"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate performs structural validation. Errors are criterio.FieldErrors
// keyed by the YAML field path.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", fmt.Errorf("data directory cannot be empty"))
	}
	if !c.Backend.IsValid() {
		errs = errs.Append("backend", fmt.Errorf("must be %q or %q, got %q", BackendRemote, BackendLocal, c.Backend))
	}
	if err := validate.IDField("user", c.User); err != nil {
		errs = errs.Append("user", fmt.Errorf("acting user is required (set user or $USER)"))
	}
	if c.Backend == BackendRemote {
		if err := validate.IDField("project", c.Project); err != nil {
			errs = errs.Append("project", fmt.Errorf("project is required for the remote backend"))
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = errs.Append("log_level", err)
	}
	if c.Database.MaxOpenConns < 1 {
		errs = errs.Append("database.max_open_conns", fmt.Errorf("must be at least 1"))
	}
	if c.Database.MaxIdleConns < 0 {
		errs = errs.Append("database.max_idle_conns", fmt.Errorf("cannot be negative"))
	}
	if c.Database.BusyTimeout < 0 {
		errs = errs.Append("database.busy_timeout", fmt.Errorf("cannot be negative"))
	}
	if !c.Local.Driver.IsValid() {
		errs = errs.Append("local.driver", fmt.Errorf("must be %q or %q, got %q", LocalDriverFile, LocalDriverSQLite, c.Local.Driver))
	}
	if c.Local.Driver == LocalDriverFile && c.Local.Path == "" {
		errs = errs.Append("local.path", fmt.Errorf("path is required for the file driver"))
	}
	if c.Notifications.Limit < 0 {
		errs = errs.Append("notifications.limit", fmt.Errorf("cannot be negative"))
	}

	seen := make(map[string]bool, len(c.Users))
	for i, u := range c.Users {
		field := fmt.Sprintf("users[%d].id", i)
		if err := validate.IDField(field, u.ID); err != nil {
			errs = errs.Append(field, fmt.Errorf("id is required"))
			continue
		}
		if seen[u.ID] {
			errs = errs.Append(field, fmt.Errorf("duplicate user id %q", u.ID))
		}
		seen[u.ID] = true
	}

	return errs.ToError()
}

// ValidateDeep performs structural validation and then checks the file
// system: the config file, the data directory, and the local file's parent.
// The configPath argument may be empty to skip the config file check.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		c.validateLocalPath(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Backend == BackendLocal && c.Project != DefaultProject {
		warnings = append(warnings, ValidationWarning{
			Category: "Backend",
			Item:     "project",
			Message:  "project is ignored by the local backend",
		})
	}

	if len(c.Users) > 0 {
		known := false
		for _, u := range c.Users {
			if u.ID == c.User {
				known = true
				break
			}
		}
		if !known {
			warnings = append(warnings, ValidationWarning{
				Category: "Users",
				Item:     c.User,
				Message:  "acting user is not listed in users",
			})
		}
	}

	return warnings
}

func (c *Config) validateLocalPath() error {
	if c.Backend != BackendLocal || c.Local.Driver != LocalDriverFile {
		return nil
	}
	return criterio.Run("local.path", filepath.Dir(c.Local.Path), isDirectoryOrNotExist)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
