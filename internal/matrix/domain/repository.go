package domain

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a task listing. Zero values mean "no filter"; the status
// filter defaults to active at the query layer and accepts "all" to disable.
type ListFilter struct {
	Status      Status
	AllStatuses bool
	Urgency     Urgency
	Category    string
}

// Update is a partial field set applied to a task. Nil fields are untouched.
type Update struct {
	Title       *string
	Description *string
	Leverage    *int
	Effort      *int
	Status      *Status
	Tags        *[]string
	Urgency     *Urgency
	Category    *string
}

// Repository is the task store contract. Two implementations exist: the
// durable Postgres store and the local SQLite fallback. The container selects
// one at startup and passes it as an explicit dependency.
type Repository interface {
	// List returns tasks matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Task, error)

	// FindByID returns a single task or ErrTaskNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)

	// Insert persists one draft and returns the stored task.
	Insert(ctx context.Context, draft Draft) (*Task, error)

	// InsertBatch persists drafts through the adaptive column ladder,
	// degrading the row shape on schema mismatch instead of failing the
	// batch. Rows rejected by a source_id uniqueness constraint are skipped,
	// not fatal; the skip count is returned alongside the inserted tasks.
	InsertBatch(ctx context.Context, drafts []Draft) ([]Task, int, error)

	// Update applies a partial update, always refreshing updated_at, and
	// returns the stored task. Transitioning status to completed stamps
	// completed_at; other statuses leave it untouched.
	Update(ctx context.Context, id uuid.UUID, changes Update) (*Task, error)

	// Delete removes a task outright. Administrative operation; the import
	// pipeline never deletes.
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistingSourceIDs returns which of the given dedup keys are already
	// present in the store.
	ExistingSourceIDs(ctx context.Context, sourceIDs []string) (map[string]struct{}, error)
}
