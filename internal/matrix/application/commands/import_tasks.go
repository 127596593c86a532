package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/airrdigital/taskmatrix/internal/connector"
	"github.com/airrdigital/taskmatrix/internal/matrix/application/services"
	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/eventbus"
)

// ImportResult summarizes one import cycle.
type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Message  string        `json:"message,omitempty"`
	Tasks    []domain.Task `json:"tasks,omitempty"`
}

// ImportTasksHandler runs the pipeline: connector, dedup, enrichment (stream
// source only), adaptive persistence, result summary.
type ImportTasksHandler struct {
	repo           domain.Repository
	dedup          *services.Deduplicator
	enricher       *services.Enricher
	publisher      eventbus.Publisher
	workspaceLabel string
	logger         *slog.Logger
}

// NewImportTasksHandler creates the handler. enricher and publisher may be
// nil; workspaceLabel tags Slack-imported metadata.
func NewImportTasksHandler(
	repo domain.Repository,
	dedup *services.Deduplicator,
	enricher *services.Enricher,
	publisher eventbus.Publisher,
	workspaceLabel string,
	logger *slog.Logger,
) *ImportTasksHandler {
	if dedup == nil {
		dedup = services.NewDeduplicator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportTasksHandler{
		repo:           repo,
		dedup:          dedup,
		enricher:       enricher,
		publisher:      publisher,
		workspaceLabel: workspaceLabel,
		logger:         logger,
	}
}

// Handle runs one import cycle for the given connector.
func (h *ImportTasksHandler) Handle(ctx context.Context, conn connector.Connector) (*ImportResult, error) {
	source := conn.Source()
	start := time.Now()

	candidates, err := conn.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &ImportResult{Message: emptyMessage(source)}, nil
	}

	existing, err := h.repo.ExistingSourceIDs(ctx, services.Keys(candidates))
	if err != nil {
		return nil, fmt.Errorf("failed to check existing tasks: %w", err)
	}

	deduped := h.dedup.Dedup(candidates, existing)
	if len(deduped.New) == 0 {
		return &ImportResult{Skipped: deduped.SkippedCount, Message: "All tasks already imported"}, nil
	}

	drafts := h.buildDrafts(ctx, source, deduped.New)

	tasks, insertSkipped, err := h.repo.InsertBatch(ctx, drafts)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Imported: len(tasks),
		Skipped:  deduped.SkippedCount + insertSkipped,
		Tasks:    tasks,
	}

	h.logger.Info("import finished",
		slog.String("source", string(source)),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Duration("took", time.Since(start)))

	if err := eventbus.PublishJSON(ctx, h.publisher, domain.RoutingKeyTasksImported, domain.TasksImportedEvent{
		Source:     source,
		Imported:   result.Imported,
		Skipped:    result.Skipped,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		h.logger.Warn("failed to publish tasks.imported", slog.String("error", err.Error()))
	}

	return result, nil
}

// buildDrafts shapes candidates into rows. Stream candidates are enriched
// sequentially and carry sender/channel/summary metadata; tabular candidates
// carry none.
func (h *ImportTasksHandler) buildDrafts(ctx context.Context, source domain.Source, candidates []domain.Candidate) []domain.Draft {
	var summaries []string
	if source == domain.SourceSlack && h.enricher != nil && h.enricher.Enabled() {
		summaries = h.enricher.Summaries(ctx, candidates)
	}

	drafts := make([]domain.Draft, len(candidates))
	for i, candidate := range candidates {
		draft := domain.Draft{
			Title:       candidate.Title,
			Description: candidate.Description,
			Source:      source,
			SourceID:    candidate.SourceID,
			Leverage:    5,
			Effort:      5,
			Urgency:     domain.UrgencyWhenever,
			Status:      domain.StatusActive,
			ContextURL:  candidate.ContextURL,
			Tags:        []string{},
		}
		if source == domain.SourceSlack {
			metadata := domain.Metadata{
				"sender_name":  candidate.SenderName,
				"channel_name": candidate.ChannelName,
			}
			if h.workspaceLabel != "" {
				metadata["workspace"] = h.workspaceLabel
			}
			if summaries != nil && summaries[i] != "" {
				metadata["ai_overview"] = summaries[i]
			}
			draft.Metadata = metadata
		}
		drafts[i] = draft
	}
	return drafts
}

func emptyMessage(source domain.Source) string {
	switch source {
	case domain.SourceSlack:
		return "No actionable Slack messages found"
	case domain.SourceAirtable:
		return "No tasks found in Airtable"
	default:
		return "No tasks found"
	}
}
