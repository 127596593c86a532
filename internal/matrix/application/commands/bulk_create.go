package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

// BulkCreateHandler inserts a caller-supplied task batch. Each element
// defaults identically to single create.
type BulkCreateHandler struct {
	repo   domain.Repository
	logger *slog.Logger
}

// NewBulkCreateHandler creates the handler.
func NewBulkCreateHandler(repo domain.Repository, logger *slog.Logger) *BulkCreateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkCreateHandler{repo: repo, logger: logger}
}

// Handle validates every element up front, then inserts the batch. Rows
// rejected by source_id uniqueness are skipped.
func (h *BulkCreateHandler) Handle(ctx context.Context, inputs []CreateTaskInput) ([]domain.Task, int, error) {
	drafts := make([]domain.Draft, 0, len(inputs))
	for i, input := range inputs {
		draft, err := draftFromInput(input)
		if err != nil {
			return nil, 0, fmt.Errorf("task %d: %w", i, err)
		}
		drafts = append(drafts, draft)
	}

	tasks, skipped, err := h.repo.InsertBatch(ctx, drafts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to insert batch: %w", err)
	}

	h.logger.Info("bulk create finished",
		slog.Int("inserted", len(tasks)),
		slog.Int("skipped", skipped))
	return tasks, skipped, nil
}
