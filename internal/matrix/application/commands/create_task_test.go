package commands

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/eventbus"
)

func TestCreateTask_Defaults(t *testing.T) {
	repo := &memRepo{}
	handler := NewCreateTaskHandler(repo, nil, discardLogger())

	task, err := handler.Handle(context.Background(), CreateTaskInput{Title: "  write the rollout plan  "})
	require.NoError(t, err)
	assert.Equal(t, "write the rollout plan", task.Title)
	assert.Equal(t, domain.SourceManual, task.Source)
	assert.Equal(t, 5, task.Leverage)
	assert.Equal(t, 5, task.Effort)
	assert.Equal(t, domain.UrgencyWhenever, task.Urgency)
	assert.Equal(t, domain.StatusActive, task.Status)
	assert.Empty(t, task.SourceID)
}

func TestCreateTask_ExplicitFields(t *testing.T) {
	repo := &memRepo{}
	handler := NewCreateTaskHandler(repo, nil, discardLogger())

	leverage, effort := 8, 3
	task, err := handler.Handle(context.Background(), CreateTaskInput{
		Title:    "tune the cache",
		Leverage: &leverage,
		Effort:   &effort,
		Urgency:  "today",
		Category: "Infra > Caching",
		Tags:     []string{"perf"},
		Metadata: map[string]string{"origin": "retro"},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, task.Leverage)
	assert.Equal(t, 3, task.Effort)
	assert.Equal(t, domain.UrgencyToday, task.Urgency)
	assert.Equal(t, "Infra > Caching", task.Category)
	assert.Equal(t, []string{"perf"}, task.Tags)
	assert.Equal(t, domain.Metadata{"origin": "retro"}, task.Metadata)
}

func TestCreateTask_EmptyTitle(t *testing.T) {
	handler := NewCreateTaskHandler(&memRepo{}, nil, discardLogger())

	_, err := handler.Handle(context.Background(), CreateTaskInput{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)
}

func TestCreateTask_Truncation(t *testing.T) {
	handler := NewCreateTaskHandler(&memRepo{}, nil, discardLogger())

	task, err := handler.Handle(context.Background(), CreateTaskInput{
		Title:       strings.Repeat("t", 250),
		Description: strings.Repeat("d", 600),
	})
	require.NoError(t, err)
	assert.Len(t, task.Title, domain.TitleMaxLen)
	assert.Len(t, task.Description, domain.DescriptionMaxLen)
}

func TestCreateTask_PublishesCreatedEvent(t *testing.T) {
	bus := eventbus.NewInProcessBus(discardLogger())
	var got domain.TaskCreatedEvent
	bus.Subscribe(domain.RoutingKeyTaskCreated, func(_ context.Context, _ string, payload []byte) {
		require.NoError(t, json.Unmarshal(payload, &got))
	})

	handler := NewCreateTaskHandler(&memRepo{}, bus, discardLogger())
	task, err := handler.Handle(context.Background(), CreateTaskInput{Title: "announce it"})
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.TaskID)
	assert.Equal(t, "announce it", got.Title)
}

func TestBulkCreate(t *testing.T) {
	repo := &memRepo{}
	handler := NewBulkCreateHandler(repo, discardLogger())

	tasks, skipped, err := handler.Handle(context.Background(), []CreateTaskInput{
		{Title: "one"},
		{Title: "two", Urgency: "this_week"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.UrgencyThisWeek, tasks[1].Urgency)
}

func TestBulkCreate_RejectsInvalidElement(t *testing.T) {
	repo := &memRepo{}
	handler := NewBulkCreateHandler(repo, discardLogger())

	_, _, err := handler.Handle(context.Background(), []CreateTaskInput{
		{Title: "fine"},
		{Title: ""},
	})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)
	assert.Empty(t, repo.tasks, "validation happens before any insert")
}
