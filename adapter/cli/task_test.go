package cli

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airrdigital/taskmatrix/internal/app"
	"github.com/airrdigital/taskmatrix/internal/matrix/application/commands"
	"github.com/airrdigital/taskmatrix/internal/matrix/application/queries"
	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

// memStore is a minimal in-memory Repository for command-level tests.
type memStore struct {
	tasks []domain.Task
}

func (m *memStore) List(_ context.Context, filter domain.ListFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range m.tasks {
		if !filter.AllStatuses && filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Urgency != "" && t.Urgency != filter.Urgency {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			t := m.tasks[i]
			return &t, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (m *memStore) Insert(_ context.Context, draft domain.Draft) (*domain.Task, error) {
	now := time.Now().UTC()
	task := domain.Task{
		ID:          uuid.New(),
		Title:       draft.Title,
		Description: draft.Description,
		Source:      draft.Source,
		SourceID:    draft.SourceID,
		Leverage:    draft.Leverage,
		Effort:      draft.Effort,
		Urgency:     draft.Urgency,
		Category:    draft.Category,
		Status:      draft.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
		ContextURL:  draft.ContextURL,
		Tags:        draft.Tags,
		Metadata:    draft.Metadata,
	}
	m.tasks = append(m.tasks, task)
	return &task, nil
}

func (m *memStore) InsertBatch(ctx context.Context, drafts []domain.Draft) ([]domain.Task, int, error) {
	var out []domain.Task
	for _, d := range drafts {
		t, err := m.Insert(ctx, d)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, 0, nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, changes domain.Update) (*domain.Task, error) {
	for i := range m.tasks {
		if m.tasks[i].ID != id {
			continue
		}
		t := &m.tasks[i]
		if changes.Status != nil {
			t.Status = *changes.Status
			if *changes.Status == domain.StatusCompleted {
				now := time.Now().UTC()
				t.CompletedAt = &now
			}
		}
		t.UpdatedAt = time.Now().UTC()
		out := *t
		return &out, nil
	}
	return nil, domain.ErrTaskNotFound
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return domain.ErrTaskNotFound
}

func (m *memStore) ExistingSourceIDs(_ context.Context, sourceIDs []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	for _, t := range m.tasks {
		for _, id := range sourceIDs {
			if t.SourceID == id {
				known[id] = struct{}{}
			}
		}
	}
	return known, nil
}

var _ domain.Repository = (*memStore)(nil)

func setupCLI(t *testing.T) *memStore {
	t.Helper()

	store := &memStore{}
	prev := container
	container = &app.Container{
		TaskRepo:   store,
		CreateTask: commands.NewCreateTaskHandler(store, nil, nil),
		UpdateTask: commands.NewUpdateTaskHandler(store, nil, nil),
		DeleteTask: commands.NewDeleteTaskHandler(store, nil),
		ListTasks:  queries.NewListTasksHandler(store),
	}
	t.Cleanup(func() { container = prev })
	return store
}

func runCommand(t *testing.T, cmd *cobra.Command, args []string) string {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	cmd.SetArgs(args)
	require.NoError(t, cmd.RunE(cmd, args))
	return out.String()
}

func TestTaskListCommand_RanksByUrgencyThenScore(t *testing.T) {
	store := setupCLI(t)
	seed := func(title string, urgency domain.Urgency, leverage, effort int) {
		draft, err := domain.NewDraft(title)
		require.NoError(t, err)
		draft.Urgency = urgency
		draft.Leverage = leverage
		draft.Effort = effort
		_, err = store.Insert(context.Background(), draft)
		require.NoError(t, err)
	}
	seed("low leverage chore", domain.UrgencyWhenever, 2, 8)
	seed("ship the launch", domain.UrgencyToday, 9, 3)
	seed("tidy the backlog", domain.UrgencyThisWeek, 6, 2)

	out := runCommand(t, taskListCmd, nil)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "ship the launch")
	assert.Contains(t, lines[1], "Quick Win")
	assert.Contains(t, lines[1], "3.00")
	assert.Contains(t, lines[2], "tidy the backlog")
	assert.Contains(t, lines[3], "low leverage chore")
	assert.Contains(t, lines[3], "Eliminate")
	assert.Contains(t, lines[3], "0.25")
}

func TestTaskListCommand_Empty(t *testing.T) {
	setupCLI(t)

	out := runCommand(t, taskListCmd, nil)
	assert.Equal(t, "No tasks found.\n", out)
}

func TestTaskAddCommand(t *testing.T) {
	store := setupCLI(t)
	addLeverage, addEffort = 8, 2
	t.Cleanup(func() { addLeverage, addEffort = 5, 5 })

	out := runCommand(t, taskAddCmd, []string{"write the quarterly update"})

	assert.Contains(t, out, "write the quarterly update")
	assert.Contains(t, out, "Quick Win")
	assert.Contains(t, out, "4.00")
	require.Len(t, store.tasks, 1)
	assert.Equal(t, domain.SourceManual, store.tasks[0].Source)
}

func TestTaskDoneCommand(t *testing.T) {
	store := setupCLI(t)
	draft, err := domain.NewDraft("close the books")
	require.NoError(t, err)
	task, err := store.Insert(context.Background(), draft)
	require.NoError(t, err)

	out := runCommand(t, taskDoneCmd, []string{task.ID.String()})

	assert.Contains(t, out, "Completed")
	assert.Contains(t, out, "close the books")
	assert.Equal(t, domain.StatusCompleted, store.tasks[0].Status)
	require.NotNil(t, store.tasks[0].CompletedAt)
}

func TestTaskDoneCommand_InvalidID(t *testing.T) {
	setupCLI(t)

	taskDoneCmd.SetContext(context.Background())
	err := taskDoneCmd.RunE(taskDoneCmd, []string{"not-a-uuid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task id")
}
