package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/airrdigital/taskmatrix/internal/connector"
	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

// memRepo is an in-memory Repository for command tests.
type memRepo struct {
	tasks      []domain.Task
	batchErr   error
	lastDrafts []domain.Draft
}

func (r *memRepo) List(_ context.Context, filter domain.ListFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range r.tasks {
		if !filter.AllStatuses {
			status := filter.Status
			if status == "" {
				status = domain.StatusActive
			}
			if t.Status != status {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			task := r.tasks[i]
			return &task, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (r *memRepo) Insert(ctx context.Context, draft domain.Draft) (*domain.Task, error) {
	tasks, _, err := r.InsertBatch(ctx, []domain.Draft{draft})
	if err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (r *memRepo) InsertBatch(_ context.Context, drafts []domain.Draft) ([]domain.Task, int, error) {
	if r.batchErr != nil {
		return nil, 0, r.batchErr
	}
	r.lastDrafts = drafts

	now := time.Now().UTC()
	var inserted []domain.Task
	skipped := 0
	for _, d := range drafts {
		if d.SourceID != "" {
			if _, err := r.findBySourceID(d.SourceID); err == nil {
				skipped++
				continue
			}
		}
		task := domain.Task{
			ID:          uuid.New(),
			Title:       d.Title,
			Description: d.Description,
			Source:      d.Source,
			SourceID:    d.SourceID,
			Leverage:    d.Leverage,
			Effort:      d.Effort,
			Urgency:     d.Urgency,
			Category:    d.Category,
			Status:      d.Status,
			CreatedAt:   now,
			UpdatedAt:   now,
			ContextURL:  d.ContextURL,
			Tags:        d.Tags,
			Metadata:    d.Metadata,
		}
		r.tasks = append(r.tasks, task)
		inserted = append(inserted, task)
	}
	return inserted, skipped, nil
}

func (r *memRepo) Update(_ context.Context, id uuid.UUID, changes domain.Update) (*domain.Task, error) {
	for i := range r.tasks {
		if r.tasks[i].ID != id {
			continue
		}
		t := &r.tasks[i]
		now := time.Now().UTC()
		t.UpdatedAt = now
		if changes.Title != nil {
			t.Title = *changes.Title
		}
		if changes.Description != nil {
			t.Description = *changes.Description
		}
		if changes.Leverage != nil {
			t.Leverage = *changes.Leverage
		}
		if changes.Effort != nil {
			t.Effort = *changes.Effort
		}
		if changes.Status != nil {
			t.Status = *changes.Status
			if *changes.Status == domain.StatusCompleted {
				t.CompletedAt = &now
			}
		}
		if changes.Tags != nil {
			t.Tags = *changes.Tags
		}
		if changes.Urgency != nil {
			t.Urgency = *changes.Urgency
		}
		if changes.Category != nil {
			t.Category = *changes.Category
		}
		task := *t
		return &task, nil
	}
	return nil, domain.ErrTaskNotFound
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return domain.ErrTaskNotFound
}

func (r *memRepo) ExistingSourceIDs(_ context.Context, sourceIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for _, id := range sourceIDs {
		if _, err := r.findBySourceID(id); err == nil {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

func (r *memRepo) findBySourceID(sourceID string) (*domain.Task, error) {
	for i := range r.tasks {
		if r.tasks[i].SourceID == sourceID {
			return &r.tasks[i], nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

// fakeConnector returns a canned candidate batch.
type fakeConnector struct {
	source     domain.Source
	candidates []domain.Candidate
	err        error
	fetches    int
}

func (f *fakeConnector) Source() domain.Source {
	return f.source
}

func (f *fakeConnector) Fetch(context.Context) ([]domain.Candidate, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

var _ connector.Connector = (*fakeConnector)(nil)
var _ domain.Repository = (*memRepo)(nil)
