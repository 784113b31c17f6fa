// Package auth resolves the acting user. Identity verification happens
// outside this program; the provider only reports who is signed in.
package auth

import (
	"context"
	"errors"

	"github.com/colonyops/backlog/internal/core/board"
)

// ErrNoSession is returned when no user is signed in.
var ErrNoSession = errors.New("no active session")

// Provider returns the current user.
type Provider interface {
	CurrentUser(ctx context.Context) (board.User, error)
}

// Static is a Provider that always reports the same user.
type Static struct {
	User board.User
}

var _ Provider = Static{}

// NewStatic returns a provider for id, enriched with the directory entry
// when one exists.
func NewStatic(id string, known []board.User) Static {
	for _, u := range known {
		if u.ID == id {
			return Static{User: u}
		}
	}
	return Static{User: board.User{ID: id}}
}

func (s Static) CurrentUser(context.Context) (board.User, error) {
	if s.User.ID == "" {
		return board.User{}, ErrNoSession
	}
	return s.User, nil
}

type ctxKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u board.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user stored by WithUser.
func FromContext(ctx context.Context) (board.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(board.User)
	return u, ok && u.ID != ""
}

// Require returns the current user from p, or ErrNoSession.
func Require(ctx context.Context, p Provider) (board.User, error) {
	if u, ok := FromContext(ctx); ok {
		return u, nil
	}
	if p == nil {
		return board.User{}, ErrNoSession
	}
	return p.CurrentUser(ctx)
}
