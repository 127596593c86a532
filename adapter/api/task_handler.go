package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/airrdigital/taskmatrix/internal/matrix/application/commands"
	"github.com/airrdigital/taskmatrix/internal/matrix/application/queries"
	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/matrix/infrastructure/persistence"
)

// TaskHandler handles the task CRUD API.
type TaskHandler struct {
	create *commands.CreateTaskHandler
	update *commands.UpdateTaskHandler
	del    *commands.DeleteTaskHandler
	bulk   *commands.BulkCreateHandler
	list   *queries.ListTasksHandler
	logger *slog.Logger
}

// TaskHandlerConfig holds dependencies for the task handler.
type TaskHandlerConfig struct {
	Create *commands.CreateTaskHandler
	Update *commands.UpdateTaskHandler
	Delete *commands.DeleteTaskHandler
	Bulk   *commands.BulkCreateHandler
	List   *queries.ListTasksHandler
	Logger *slog.Logger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(cfg TaskHandlerConfig) *TaskHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TaskHandler{
		create: cfg.Create,
		update: cfg.Update,
		del:    cfg.Delete,
		bulk:   cfg.Bulk,
		list:   cfg.List,
		logger: cfg.Logger,
	}
}

// ListTasks handles GET /api/v1/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	params := queries.ListTasksParams{
		Status:   r.URL.Query().Get("status"),
		Urgency:  r.URL.Query().Get("urgency"),
		Category: r.URL.Query().Get("category"),
	}

	tasks, err := h.list.Handle(r.Context(), params)
	if err != nil {
		h.respondError(w, err, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /api/v1/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var input commands.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	task, err := h.create.Handle(r.Context(), input)
	if err != nil {
		h.respondError(w, err, "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// BulkCreate handles POST /api/v1/tasks/bulk
func (h *TaskHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tasks []commands.CreateTaskInput `json:"tasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(body.Tasks) == 0 {
		writeError(w, http.StatusBadRequest, "No tasks provided")
		return
	}

	tasks, skipped, err := h.bulk.Handle(r.Context(), body.Tasks)
	if err != nil {
		h.respondError(w, err, "failed to bulk create tasks")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"tasks":   tasks,
		"skipped": skipped,
	})
}

type updateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Leverage    *int      `json:"leverage"`
	Effort      *int      `json:"effort"`
	Status      *string   `json:"status"`
	Tags        *[]string `json:"tags"`
	Urgency     *string   `json:"urgency"`
	Category    *string   `json:"category"`
}

// UpdateTask handles PUT /api/v1/tasks/{taskID}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("taskID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var body updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	changes := domain.Update{
		Title:       body.Title,
		Description: body.Description,
		Leverage:    body.Leverage,
		Effort:      body.Effort,
		Tags:        body.Tags,
	}
	if body.Status != nil {
		status := domain.Status(*body.Status)
		changes.Status = &status
	}
	if body.Urgency != nil {
		urgency := domain.Urgency(*body.Urgency)
		changes.Urgency = &urgency
	}
	if body.Category != nil {
		changes.Category = body.Category
	}

	task, err := h.update.Handle(r.Context(), id, changes)
	if err != nil {
		h.respondError(w, err, "failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/v1/tasks/{taskID}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("taskID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	if err := h.del.Handle(r.Context(), id); err != nil {
		h.respondError(w, err, "failed to delete task")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// respondError maps application errors onto HTTP statuses.
func (h *TaskHandler) respondError(w http.ResponseWriter, err error, logMsg string) {
	var exhausted *persistence.SchemaExhaustedError

	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, domain.ErrEmptyTitle):
		writeError(w, http.StatusBadRequest, "Title is required")
	case errors.Is(err, commands.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &exhausted):
		writeError(w, http.StatusServiceUnavailable,
			"Database not set up yet. Apply the schema migration first.")
	default:
		h.logger.Error(logMsg, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
