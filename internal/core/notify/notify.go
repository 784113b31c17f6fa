// Package notify carries user-facing feedback: a title, an optional
// description, and a severity.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification represents a single notification event.
type Notification struct {
	ID          int64     `json:"id,omitempty"`
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Info builds an info-level notification.
func Info(title, description string) Notification {
	return Notification{Level: LevelInfo, Title: title, Description: description}
}

// Warning builds a warning-level notification.
func Warning(title, description string) Notification {
	return Notification{Level: LevelWarning, Title: title, Description: description}
}

// Error builds an error-level notification whose description is err's message.
func Error(title string, err error) Notification {
	n := Notification{Level: LevelError, Title: title}
	if err != nil {
		n.Description = err.Error()
	}
	return n
}

// Notifier delivers a notification to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Store persists notifications to durable storage.
type Store interface {
	Save(ctx context.Context, n Notification) (int64, error)
	List(ctx context.Context, limit int) ([]Notification, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Multi fans a notification out to every notifier. All notifiers run even
// when one fails; the errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nf := range m {
		if err := nf.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreNotifier records notifications in a Store.
type StoreNotifier struct {
	Store  Store
	UserID string
}

func (s StoreNotifier) Notify(ctx context.Context, n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.UserID == "" {
		n.UserID = s.UserID
	}
	_, err := s.Store.Save(ctx, n)
	return err
}

// LogNotifier writes notifications to a zerolog logger at the matching level.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	var e *zerolog.Event
	switch n.Level {
	case LevelError:
		e = l.Logger.Error()
	case LevelWarning:
		e = l.Logger.Warn()
	default:
		e = l.Logger.Info()
	}
	e.Ctx(ctx).Str("description", n.Description).Msg(n.Title)
	return nil
}

// Switch forwards notifications to a replaceable target. The zero value
// discards notifications.
type Switch struct {
	mu     sync.RWMutex
	target Notifier
}

// Set replaces the target and returns the previous one.
func (s *Switch) Set(n Notifier) Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.target
	s.target = n
	return prev
}

func (s *Switch) Notify(ctx context.Context, n Notification) error {
	s.mu.RLock()
	target := s.target
	s.mu.RUnlock()
	if target == nil {
		return nil
	}
	return target.Notify(ctx, n)
}

// Recorder keeps every notification in memory. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return nil
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Reset drops all recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
