// Package queries implements the read-side application operations.
package queries

import (
	"context"
	"fmt"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

// ListTasksParams are the raw list filters as they arrive from a transport.
type ListTasksParams struct {
	// Status defaults to active; "all" disables status filtering.
	Status string
	// Urgency and Category are optional exact-match filters.
	Urgency  string
	Category string
}

// ListTasksHandler returns tasks matching the filters, newest first. Quadrant
// and urgency ordering is a presentation concern layered on top by callers
// via the priority engine.
type ListTasksHandler struct {
	repo domain.Repository
}

// NewListTasksHandler creates the handler.
func NewListTasksHandler(repo domain.Repository) *ListTasksHandler {
	return &ListTasksHandler{repo: repo}
}

// Handle resolves the filters and queries the store.
func (h *ListTasksHandler) Handle(ctx context.Context, params ListTasksParams) ([]domain.Task, error) {
	filter := domain.ListFilter{
		Urgency:  domain.Urgency(params.Urgency),
		Category: params.Category,
	}

	switch params.Status {
	case "", "active":
		filter.Status = domain.StatusActive
	case "all":
		filter.AllStatuses = true
	default:
		status := domain.Status(params.Status)
		if !status.IsValid() {
			return nil, fmt.Errorf("unknown status filter %q", params.Status)
		}
		filter.Status = status
	}

	return h.repo.List(ctx, filter)
}
