package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/database"
)

// fakeExecutor simulates a store whose schema may be missing columns.
type fakeExecutor struct {
	execFn func(query string, args []any) error
	execs  []string
}

func (f *fakeExecutor) Exec(_ context.Context, query string, args ...any) (database.Result, error) {
	f.execs = append(f.execs, query)
	if err := f.execFn(query, args); err != nil {
		return nil, err
	}
	return fakeResult{}, nil
}

func (f *fakeExecutor) QueryRow(_ context.Context, query string, _ ...any) database.Row {
	f.execs = append(f.execs, query)
	return errRow{err: errors.New("not implemented")}
}

func (f *fakeExecutor) Query(_ context.Context, query string, _ ...any) (database.Rows, error) {
	f.execs = append(f.execs, query)
	return nil, errors.New("not implemented")
}

type fakeResult struct{}

func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// missingColumns rejects any statement referencing the named columns with a
// Postgres-style undefined-column message.
func missingColumns(names ...string) func(query string, args []any) error {
	return func(query string, _ []any) error {
		for _, name := range names {
			if strings.Contains(query, name) {
				return fmt.Errorf("column %q of relation \"tasks\" does not exist", name)
			}
		}
		return nil
	}
}

func draftsForTest(n int) []domain.Draft {
	drafts := make([]domain.Draft, n)
	for i := range drafts {
		d, _ := domain.NewDraft(fmt.Sprintf("task %d", i))
		d.Source = domain.SourceSlack
		d.SourceID = fmt.Sprintf("slack_%d", i)
		d.Urgency = domain.UrgencyToday
		d.Category = "work"
		d.Metadata = domain.Metadata{"channel": "general"}
		drafts[i] = d
	}
	return drafts
}

func TestInsertBatch_StopsAtFirstFittingRung(t *testing.T) {
	// Store missing metadata and category: rung 1 and 2 fail, rung 3
	// (core + urgency) succeeds, rung 4 must not be tried.
	exec := &fakeExecutor{execFn: missingColumns("metadata", "category")}
	repo := NewPostgresTaskRepository(exec)

	tasks, skipped, err := repo.InsertBatch(context.Background(), draftsForTest(2))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, tasks, 2)

	require.Len(t, exec.execs, 3)
	assert.Contains(t, exec.execs[0], "metadata")
	assert.Contains(t, exec.execs[1], "category")
	assert.NotContains(t, exec.execs[1], "metadata")
	assert.Contains(t, exec.execs[2], "urgency")
	assert.NotContains(t, exec.execs[2], "category")

	// Fields the surviving rung did not persist are reported at defaults.
	assert.Equal(t, domain.UrgencyToday, tasks[0].Urgency)
	assert.Empty(t, tasks[0].Category)
	assert.Nil(t, tasks[0].Metadata)
}

func TestInsertBatch_FullSchemaUsesFirstRung(t *testing.T) {
	exec := &fakeExecutor{execFn: func(string, []any) error { return nil }}
	repo := NewPostgresTaskRepository(exec)

	tasks, skipped, err := repo.InsertBatch(context.Background(), draftsForTest(1))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, tasks, 1)
	require.Len(t, exec.execs, 1)
	assert.Contains(t, exec.execs[0], "metadata")
	assert.Equal(t, domain.Metadata{"channel": "general"}, tasks[0].Metadata)
}

func TestInsertBatch_NonSchemaErrorIsFatal(t *testing.T) {
	boom := errors.New("connection refused")
	exec := &fakeExecutor{execFn: func(string, []any) error { return boom }}
	repo := NewPostgresTaskRepository(exec)

	_, _, err := repo.InsertBatch(context.Background(), draftsForTest(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, exec.execs, 1, "must not step the ladder on a non-schema error")
}

func TestInsertBatch_AllRungsFail(t *testing.T) {
	exec := &fakeExecutor{execFn: func(string, []any) error {
		return errors.New(`column "title" of relation "tasks" does not exist`)
	}}
	repo := NewPostgresTaskRepository(exec)

	_, _, err := repo.InsertBatch(context.Background(), draftsForTest(1))
	require.Error(t, err)

	var exhausted *SchemaExhaustedError
	assert.ErrorAs(t, err, &exhausted)
	assert.Len(t, exec.execs, len(ladder), "ladder is bounded")
}

func TestInsertBatch_UniqueViolationRetriesRowByRow(t *testing.T) {
	batchCalls := 0
	exec := &fakeExecutor{}
	exec.execFn = func(query string, args []any) error {
		rows := strings.Count(query, "(")
		if rows > 2 { // the batch statement; reject it once
			batchCalls++
			return errors.New(`duplicate key value violates unique constraint "tasks_source_id_key"`)
		}
		// Single-row retries: the second draft is already claimed.
		for _, arg := range args {
			if arg == "slack_1" {
				return errors.New(`duplicate key value violates unique constraint "tasks_source_id_key"`)
			}
		}
		return nil
	}
	repo := NewPostgresTaskRepository(exec)

	tasks, skipped, err := repo.InsertBatch(context.Background(), draftsForTest(3))
	require.NoError(t, err)
	assert.Equal(t, 1, batchCalls)
	assert.Equal(t, 1, skipped)
	require.Len(t, tasks, 2)
	assert.Equal(t, "slack_0", tasks[0].SourceID)
	assert.Equal(t, "slack_2", tasks[1].SourceID)
}

func TestInsertBatch_EmptyBatch(t *testing.T) {
	exec := &fakeExecutor{execFn: func(string, []any) error {
		t.Fatal("no statement expected for an empty batch")
		return nil
	}}
	repo := NewPostgresTaskRepository(exec)

	tasks, skipped, err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, 0, skipped)
}

func TestInsertQuery_Placeholders(t *testing.T) {
	cols := columnSet{Urgency: true}.insertColumns()

	pg := insertQuery(cols, 2, database.DriverPostgres)
	assert.Contains(t, pg, "$1")
	assert.Contains(t, pg, fmt.Sprintf("$%d", len(cols)*2))
	assert.NotContains(t, pg, "?")

	lite := insertQuery(cols, 2, database.DriverSQLite)
	assert.Equal(t, len(cols)*2, strings.Count(lite, "?"))
}

func TestNewTaskFromDraft_Defaults(t *testing.T) {
	task := newTaskFromDraft(domain.Draft{Title: "bare"}, time.Now().UTC())
	assert.Equal(t, domain.SourceManual, task.Source)
	assert.Equal(t, 5, task.Leverage)
	assert.Equal(t, 5, task.Effort)
	assert.Equal(t, domain.UrgencyWhenever, task.Urgency)
	assert.Equal(t, domain.StatusActive, task.Status)
	assert.NotNil(t, task.Tags)
	assert.NotEqual(t, task.ID.String(), "00000000-0000-0000-0000-000000000000")
}
