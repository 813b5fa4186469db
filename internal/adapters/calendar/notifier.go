package calendar

import (
	"context"

	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/infrastructure/logger"
)

// LogNotifier is the default calendar sink: it records what would be
// pushed without talking to any external calendar. Swap in a real
// implementation behind the same interface to enable sync.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a logging calendar notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithComponent("calendar")}
}

// PushActiveTasks logs the active task set. Never fails.
func (n *LogNotifier) PushActiveTasks(_ context.Context, tasks []*entities.Task) error {
	n.logger.Debugw("Calendar push", "active_tasks", len(tasks))
	return nil
}
