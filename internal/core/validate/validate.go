// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hay-kot/criterio"
)

// Title validates a title or name is non-empty after trimming whitespace.
func Title(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// TitleField returns a criterio validator for titles.
func TitleField(field, title string) error {
	return criterio.Run(field, title, Title)
}

// ID validates an identifier: non-empty and free of whitespace.
func ID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return fmt.Errorf("id %q contains whitespace", id)
	}
	return nil
}

// IDField returns a criterio validator for identifiers.
func IDField(field, id string) error {
	return criterio.Run(field, id, ID)
}
