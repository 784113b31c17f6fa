// Package users resolves user ids to display identities.
package users

import (
	"context"
	"sort"

	"github.com/colonyops/backlog/internal/core/board"
)

// Directory looks up users by id.
type Directory interface {
	// Lookup returns an entry for every requested id. Unknown ids map to a
	// placeholder whose Name is the id.
	Lookup(ctx context.Context, ids []string) (map[string]board.User, error)
}

// Static is an in-memory Directory built from configuration.
type Static struct {
	byID map[string]board.User
}

var _ Directory = (*Static)(nil)

// NewStatic indexes users by id. Later entries win on duplicate ids.
func NewStatic(list []board.User) *Static {
	byID := make(map[string]board.User, len(list))
	for _, u := range list {
		byID[u.ID] = u
	}
	return &Static{byID: byID}
}

func (s *Static) Lookup(_ context.Context, ids []string) (map[string]board.User, error) {
	out := make(map[string]board.User, len(ids))
	for _, id := range ids {
		if u, ok := s.byID[id]; ok {
			out[id] = u
			continue
		}
		out[id] = Placeholder(id)
	}
	return out, nil
}

// All returns every known user sorted by id.
func (s *Static) All() []board.User {
	out := make([]board.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Placeholder is the entry returned for an id the directory does not know.
func Placeholder(id string) board.User {
	return board.User{ID: id, Name: id}
}

// DisplayNames resolves ids in order to display names.
func DisplayNames(ctx context.Context, dir Directory, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	found, err := dir.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		u, ok := found[id]
		if !ok {
			u = Placeholder(id)
		}
		names = append(names, u.DisplayName())
	}
	return names, nil
}
