// Package commands implements the write-side application operations: manual
// task creation, partial updates, bulk creation and the import pipeline.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/eventbus"
)

// CreateTaskInput is the create contract. Nil leverage/effort default to 5;
// empty urgency defaults to whenever; status is always forced to active.
type CreateTaskInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Source      string            `json:"source"`
	SourceID    string            `json:"source_id"`
	Leverage    *int              `json:"leverage"`
	Effort      *int              `json:"effort"`
	Urgency     string            `json:"urgency"`
	Category    string            `json:"category"`
	Tags        []string          `json:"tags"`
	Metadata    map[string]string `json:"metadata"`
}

// CreateTaskHandler persists manually created tasks.
type CreateTaskHandler struct {
	repo      domain.Repository
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewCreateTaskHandler creates the handler. publisher may be nil.
func NewCreateTaskHandler(repo domain.Repository, publisher eventbus.Publisher, logger *slog.Logger) *CreateTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateTaskHandler{repo: repo, publisher: publisher, logger: logger}
}

// Handle validates the input, persists the task and publishes task.created.
func (h *CreateTaskHandler) Handle(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	draft, err := draftFromInput(input)
	if err != nil {
		return nil, err
	}

	task, err := h.repo.Insert(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	h.logger.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("source", string(task.Source)))

	if err := eventbus.PublishJSON(ctx, h.publisher, domain.RoutingKeyTaskCreated, domain.TaskCreatedEvent{
		TaskID:     task.ID,
		Title:      task.Title,
		Source:     task.Source,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		h.logger.Warn("failed to publish task.created", slog.String("error", err.Error()))
	}

	return task, nil
}

// draftFromInput applies the create-contract defaults and caps.
func draftFromInput(input CreateTaskInput) (domain.Draft, error) {
	draft, err := domain.NewDraft(input.Title)
	if err != nil {
		return domain.Draft{}, err
	}

	draft.Description = domain.Truncate(input.Description, domain.DescriptionMaxLen)
	if input.Source != "" {
		draft.Source = domain.Source(input.Source)
	}
	draft.SourceID = input.SourceID
	if input.Leverage != nil {
		draft.Leverage = *input.Leverage
	}
	if input.Effort != nil {
		draft.Effort = *input.Effort
	}
	if input.Urgency != "" {
		draft.Urgency = domain.Urgency(input.Urgency)
	}
	draft.Category = input.Category
	if input.Tags != nil {
		draft.Tags = input.Tags
	}
	if len(input.Metadata) > 0 {
		draft.Metadata = domain.Metadata(input.Metadata)
	}
	return draft, nil
}
