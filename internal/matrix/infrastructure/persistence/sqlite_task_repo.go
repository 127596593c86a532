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

// SQLiteTaskRepository is the local fallback store, selected when no durable
// store is configured. Timestamps are stored as RFC 3339 text.
type SQLiteTaskRepository struct {
	db database.Executor
}

// NewSQLiteTaskRepository creates a SQLite-backed task repository.
func NewSQLiteTaskRepository(db database.Executor) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{db: db}
}

// List returns tasks matching the filter, newest first.
func (r *SQLiteTaskRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Task, error) {
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

func (r *SQLiteTaskRepository) buildListQuery(filter domain.ListFilter, cols columnSet) (string, []any) {
	var conditions []string
	var args []any

	if !filter.AllStatuses {
		status := filter.Status
		if status == "" {
			status = domain.StatusActive
		}
		conditions = append(conditions, "status = ?")
		args = append(args, string(status))
	}
	if filter.Urgency != "" && cols.Urgency {
		conditions = append(conditions, "urgency = ?")
		args = append(args, string(filter.Urgency))
	}
	if filter.Category != "" && cols.Category {
		// Matches the category itself and any child path "parent > child".
		conditions = append(conditions, "(category = ? OR category LIKE ?)")
		args = append(args, filter.Category, childCategoryPattern(filter.Category))
	}

	query := "SELECT " + strings.Join(cols.selectColumns(), ", ") + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	return query, args
}

// FindByID returns a single task or domain.ErrTaskNotFound.
func (r *SQLiteTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task *domain.Task
	err := runLadder(func(cols columnSet) error {
		query := "SELECT " + strings.Join(cols.selectColumns(), ", ") + " FROM tasks WHERE id = ?"
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
func (r *SQLiteTaskRepository) Insert(ctx context.Context, draft domain.Draft) (*domain.Task, error) {
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

// InsertBatch persists drafts through the column ladder, skipping rows an
// earlier import already claimed by source_id.
func (r *SQLiteTaskRepository) InsertBatch(ctx context.Context, drafts []domain.Draft) ([]domain.Task, int, error) {
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

func (r *SQLiteTaskRepository) insertAtRung(ctx context.Context, rows []domain.Task, cols columnSet) ([]domain.Task, int, error) {
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

func (r *SQLiteTaskRepository) execInsert(ctx context.Context, rows []domain.Task, cols columnSet) error {
	columns := cols.insertColumns()
	args := make([]any, 0, len(columns)*len(rows))
	for _, row := range rows {
		args = append(args, r.insertArgs(row, cols)...)
	}
	_, err := r.db.Exec(ctx, insertQuery(columns, len(rows), database.DriverSQLite), args...)
	return err
}

func (r *SQLiteTaskRepository) insertArgs(t domain.Task, cols columnSet) []any {
	args := []any{
		t.ID.String(), t.Title, nullString(t.Description), string(t.Source), nullString(t.SourceID),
		t.Leverage, t.Effort, string(t.Status), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
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

// Update applies a partial update and returns the stored task.
func (r *SQLiteTaskRepository) Update(ctx context.Context, id uuid.UUID, changes domain.Update) (*domain.Task, error) {
	now := time.Now().UTC()
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(now)}

	addSet := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
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
			addSet("completed_at", formatTime(now))
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
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ?", strings.Join(sets, ", "))

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
func (r *SQLiteTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, "DELETE FROM tasks WHERE id = ?", id)
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
func (r *SQLiteTaskRepository) ExistingSourceIDs(ctx context.Context, sourceIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(sourceIDs) == 0 {
		return existing, nil
	}

	placeholders := make([]string, len(sourceIDs))
	args := make([]any, len(sourceIDs))
	for i, id := range sourceIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := "SELECT source_id FROM tasks WHERE source_id IN (" + strings.Join(placeholders, ", ") + ")"
	rows, err := r.db.Query(ctx, query, args...)
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

func (r *SQLiteTaskRepository) scanTask(row database.Row, cols columnSet) (*domain.Task, error) {
	var t domain.Task
	var id string
	var description, sourceID, category, contextURL, tags, metadata sql.NullString
	var urgency, createdAt, updatedAt, completedAt sql.NullString

	dest := []any{
		&id, &t.Title, &description, &t.Source, &sourceID,
		&t.Leverage, &t.Effort, &t.Status, &createdAt, &updatedAt,
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

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", id, err)
	}
	t.ID = parsed
	t.Description = description.String
	t.SourceID = sourceID.String
	t.Category = category.String
	t.ContextURL = contextURL.String
	t.Urgency = domain.UrgencyWhenever
	if urgency.Valid && urgency.String != "" {
		t.Urgency = domain.Urgency(urgency.String)
	}
	t.CreatedAt = parseTime(createdAt.String)
	t.UpdatedAt = parseTime(updatedAt.String)
	if completedAt.Valid && completedAt.String != "" {
		completed := parseTime(completedAt.String)
		t.CompletedAt = &completed
	}
	t.Tags = decodeTags(tags.String)
	t.Metadata = decodeMetadata(metadata.String)
	return &t, nil
}

// sqliteTimeLayout keeps a fixed-width fraction so text comparison orders
// timestamps correctly. RFC3339Nano drops trailing zeros and does not.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
