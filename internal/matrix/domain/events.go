package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys for domain events published on the event bus.
const (
	RoutingKeyTaskCreated   = "task.created"
	RoutingKeyTaskCompleted = "task.completed"
	RoutingKeyTasksImported = "tasks.imported"
)

// TaskCreatedEvent is published after a task is persisted.
type TaskCreatedEvent struct {
	TaskID     uuid.UUID `json:"task_id"`
	Title      string    `json:"title"`
	Source     Source    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TaskCompletedEvent is published when a task transitions to completed.
type TaskCompletedEvent struct {
	TaskID     uuid.UUID `json:"task_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TasksImportedEvent summarizes one import cycle.
type TasksImportedEvent struct {
	Source     Source    `json:"source"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	OccurredAt time.Time `json:"occurred_at"`
}
