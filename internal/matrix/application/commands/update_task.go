package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/eventbus"
)

// ErrInvalidStatus rejects unknown status values on update.
var ErrInvalidStatus = fmt.Errorf("invalid task status")

// UpdateTaskHandler applies partial updates to a task.
type UpdateTaskHandler struct {
	repo      domain.Repository
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewUpdateTaskHandler creates the handler. publisher may be nil.
func NewUpdateTaskHandler(repo domain.Repository, publisher eventbus.Publisher, logger *slog.Logger) *UpdateTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateTaskHandler{repo: repo, publisher: publisher, logger: logger}
}

// Handle applies the changes and publishes task.completed on a completion
// transition.
func (h *UpdateTaskHandler) Handle(ctx context.Context, id uuid.UUID, changes domain.Update) (*domain.Task, error) {
	if changes.Status != nil && !changes.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *changes.Status)
	}
	if changes.Title != nil {
		capped := domain.Truncate(*changes.Title, domain.TitleMaxLen)
		changes.Title = &capped
	}
	if changes.Description != nil {
		capped := domain.Truncate(*changes.Description, domain.DescriptionMaxLen)
		changes.Description = &capped
	}

	task, err := h.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}

	if changes.Status != nil && *changes.Status == domain.StatusCompleted {
		if err := eventbus.PublishJSON(ctx, h.publisher, domain.RoutingKeyTaskCompleted, domain.TaskCompletedEvent{
			TaskID:     task.ID,
			OccurredAt: time.Now().UTC(),
		}); err != nil {
			h.logger.Warn("failed to publish task.completed", slog.String("error", err.Error()))
		}
	}

	return task, nil
}

// DeleteTaskHandler removes a task outright. This is administrative and
// unrelated to the pipeline, which only ever transitions status.
type DeleteTaskHandler struct {
	repo   domain.Repository
	logger *slog.Logger
}

// NewDeleteTaskHandler creates the handler.
func NewDeleteTaskHandler(repo domain.Repository, logger *slog.Logger) *DeleteTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteTaskHandler{repo: repo, logger: logger}
}

// Handle deletes the task.
func (h *DeleteTaskHandler) Handle(ctx context.Context, id uuid.UUID) error {
	if err := h.repo.Delete(ctx, id); err != nil {
		return err
	}
	h.logger.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}
