package pipeline

import (
	"context"
	"time"

	"github.com/specialistvlad/algoflow/internal/ctxlog"
)

// Notification is a transient message about a run, shown next to the
// terminal and then dismissed.
type Notification struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"duration"`
	Destructive bool          `json:"destructive,omitempty"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// LogNotifier writes notifications to the context logger.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) {
	logger := ctxlog.FromContext(ctx)
	if n.Destructive {
		logger.Error(n.Title, "description", n.Description)
		return
	}
	logger.Info(n.Title, "description", n.Description)
}

// Notifiers fans a notification out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n Notification) {
	for _, notifier := range ns {
		notifier.Notify(ctx, n)
	}
}
