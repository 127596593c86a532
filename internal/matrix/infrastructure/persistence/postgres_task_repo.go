package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/database"
)

// PostgresTaskRepository is the durable task store.
type PostgresTaskRepository struct {
	db database.Executor
}

// NewPostgresTaskRepository creates a Postgres-backed task repository.
func NewPostgresTaskRepository(db database.Executor) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

// List returns tasks matching the filter, newest first. The select runs
// through the column ladder so a store missing optional columns still lists.
func (r *PostgresTaskRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Task, error) {
	var tasks []domain.Task
	err := runLadder(func(cols columnSet) error {
		query, args := r.buildListQuery(filter, cols)
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		var scanned []domain.Task
		for rows.Next() {
			task, err := r.scanTask(rows, cols)
			if err != nil {
				return err
			}
			scanned = append(scanned, *task)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if scanned == nil {
			scanned = []domain.Task{}
		}
		tasks = scanned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *PostgresTaskRepository) buildListQuery(filter domain.ListFilter, cols columnSet) (string, []any) {
	var conditions []string
	var args []any

	if !filter.AllStatuses {
		status := filter.Status
		if status == "" {
			status = domain.StatusActive
		}
		args = append(args, string(status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Urgency != "" && cols.Urgency {
		args = append(args, string(filter.Urgency))
		conditions = append(conditions, fmt.Sprintf("urgency = $%d", len(args)))
	}
	if filter.Category != "" && cols.Category {
		// Matches the category itself and any child path "parent > child".
		args = append(args, filter.Category)
		exact := len(args)
		args = append(args, childCategoryPattern(filter.Category))
		conditions = append(conditions, fmt.Sprintf("(category = $%d OR category LIKE $%d)", exact, len(args)))
	}

	query := "SELECT " + strings.Join(cols.selectColumns(), ", ") + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	return query, args
}

// FindByID returns a single task or domain.ErrTaskNotFound.
func (r *PostgresTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task *domain.Task
	err := runLadder(func(cols columnSet) error {
		query := "SELECT " + strings.Join(cols.selectColumns(), ", ") + " FROM tasks WHERE id = $1"
		found, err := r.scanTask(r.db.QueryRow(ctx, query, id), cols)
		if err != nil {
			return err
		}
		task = found
		return nil
	})
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// Insert persists one draft through the column ladder.
func (r *PostgresTaskRepository) Insert(ctx context.Context, draft domain.Draft) (*domain.Task, error) {
	task := newTaskFromDraft(draft, time.Now().UTC())
	var stored domain.Task
	err := runLadder(func(cols columnSet) error {
		if err := r.execInsert(ctx, []domain.Task{task}, cols); err != nil {
			return err
		}
		stored = applyDroppedDefaults(task, cols)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// InsertBatch persists drafts through the column ladder. A uniqueness
// rejection on the batch statement falls back to row-by-row inserts at the
// same rung, counting duplicate rows as skipped instead of failing.
func (r *PostgresTaskRepository) InsertBatch(ctx context.Context, drafts []domain.Draft) ([]domain.Task, int, error) {
	if len(drafts) == 0 {
		return []domain.Task{}, 0, nil
	}

	now := time.Now().UTC()
	rows := make([]domain.Task, len(drafts))
	for i, draft := range drafts {
		rows[i] = newTaskFromDraft(draft, now)
	}

	var inserted []domain.Task
	var skipped int
	err := runLadder(func(cols columnSet) error {
		ins, sk, err := r.insertAtRung(ctx, rows, cols)
		if err != nil {
			return err
		}
		inserted, skipped = ins, sk
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return inserted, skipped, nil
}

func (r *PostgresTaskRepository) insertAtRung(ctx context.Context, rows []domain.Task, cols columnSet) ([]domain.Task, int, error) {
	err := r.execInsert(ctx, rows, cols)
	if err == nil {
		inserted := make([]domain.Task, len(rows))
		for i, row := range rows {
			inserted[i] = applyDroppedDefaults(row, cols)
		}
		return inserted, 0, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, 0, err
	}

	// The batch statement is atomic, so nothing landed. Retry one row at a
	// time and skip the rows another import already claimed.
	inserted := make([]domain.Task, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		rowErr := r.execInsert(ctx, []domain.Task{row}, cols)
		switch {
		case rowErr == nil:
			inserted = append(inserted, applyDroppedDefaults(row, cols))
		case database.IsUniqueViolation(rowErr):
			skipped++
		default:
			return nil, 0, rowErr
		}
	}
	return inserted, skipped, nil
}

func (r *PostgresTaskRepository) execInsert(ctx context.Context, rows []domain.Task, cols columnSet) error {
	columns := cols.insertColumns()
	args := make([]any, 0, len(columns)*len(rows))
	for _, row := range rows {
		args = append(args, r.insertArgs(row, cols)...)
	}
	_, err := r.db.Exec(ctx, insertQuery(columns, len(rows), database.DriverPostgres), args...)
	return err
}

func (r *PostgresTaskRepository) insertArgs(t domain.Task, cols columnSet) []any {
	args := []any{
		t.ID, t.Title, nullString(t.Description), string(t.Source), nullString(t.SourceID),
		t.Leverage, t.Effort, string(t.Status), t.CreatedAt, t.UpdatedAt,
		nullString(t.ContextURL), encodeTags(t.Tags),
	}
	if cols.Urgency {
		args = append(args, string(t.Urgency))
	}
	if cols.Category {
		args = append(args, nullString(t.Category))
	}
	if cols.Metadata {
		args = append(args, encodeMetadata(t.Metadata))
	}
	return args
}

// Update applies a partial update and returns the stored task. updated_at is
// always refreshed; a transition to completed stamps completed_at.
func (r *PostgresTaskRepository) Update(ctx context.Context, id uuid.UUID, changes domain.Update) (*domain.Task, error) {
	now := time.Now().UTC()
	sets := []string{"updated_at = $1"}
	args := []any{now}

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if changes.Title != nil {
		addSet("title", *changes.Title)
	}
	if changes.Description != nil {
		addSet("description", nullString(*changes.Description))
	}
	if changes.Leverage != nil {
		addSet("leverage", *changes.Leverage)
	}
	if changes.Effort != nil {
		addSet("effort", *changes.Effort)
	}
	if changes.Status != nil {
		addSet("status", string(*changes.Status))
		if *changes.Status == domain.StatusCompleted {
			addSet("completed_at", now)
		}
	}
	if changes.Tags != nil {
		addSet("tags", encodeTags(*changes.Tags))
	}
	if changes.Urgency != nil {
		addSet("urgency", string(*changes.Urgency))
	}
	if changes.Category != nil {
		addSet("category", nullString(*changes.Category))
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete removes a task outright.
func (r *PostgresTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// ExistingSourceIDs returns which of the given dedup keys are already stored.
func (r *PostgresTaskRepository) ExistingSourceIDs(ctx context.Context, sourceIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(sourceIDs) == 0 {
		return existing, nil
	}

	rows, err := r.db.Query(ctx, "SELECT source_id FROM tasks WHERE source_id = ANY($1)", sourceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

func (r *PostgresTaskRepository) scanTask(row database.Row, cols columnSet) (*domain.Task, error) {
	var t domain.Task
	var description, sourceID, category, contextURL, tags, metadata sql.NullString
	var urgency sql.NullString
	var completedAt sql.NullTime

	dest := []any{
		&t.ID, &t.Title, &description, &t.Source, &sourceID,
		&t.Leverage, &t.Effort, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		&completedAt, &contextURL, &tags,
	}
	if cols.Urgency {
		dest = append(dest, &urgency)
	}
	if cols.Category {
		dest = append(dest, &category)
	}
	if cols.Metadata {
		dest = append(dest, &metadata)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	t.Description = description.String
	t.SourceID = sourceID.String
	t.Category = category.String
	t.ContextURL = contextURL.String
	t.Urgency = domain.UrgencyWhenever
	if urgency.Valid && urgency.String != "" {
		t.Urgency = domain.Urgency(urgency.String)
	}
	if completedAt.Valid {
		completed := completedAt.Time
		t.CompletedAt = &completed
	}
	t.Tags = decodeTags(tags.String)
	t.Metadata = decodeMetadata(metadata.String)
	return &t, nil
}
