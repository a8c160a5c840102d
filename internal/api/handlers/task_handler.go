package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/avelar/taskhive-be/internal/auth"
	"github.com/avelar/taskhive-be/internal/models"
	"github.com/avelar/taskhive-be/internal/services"
)

// TaskHandler handles HTTP requests for task management. Every operation is
// scoped to the authenticated user resolved by the auth middleware.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// CreateTaskPayload defines the structure for task creation requests.
type CreateTaskPayload struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
}

func taskID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// GetAll returns the authenticated user's tasks, optionally filtered by
// status and priority query parameters.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	statusFilter := r.URL.Query().Get("status_filter")
	priorityFilter := r.URL.Query().Get("priority_filter")

	tasks, err := h.service.GetTasksForUser(user.ID, statusFilter, priorityFilter)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list tasks")
		writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	writeJSON(w, http.StatusOK, tasks)
}

// Get returns a single task by id.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	id, err := taskID(r)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	task, err := h.service.GetTaskByID(id, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Create handles the request to create a new task for the authenticated user.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	var payload CreateTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(payload); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	task, err := h.service.CreateTask(models.Task{
		Title:       payload.Title,
		Description: payload.Description,
		Status:      payload.Status,
		Priority:    payload.Priority,
		DueDate:     payload.DueDate,
	}, user.ID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to create task")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// Update applies a partial update to an existing task. Only fields present in
// the request body change.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	id, err := taskID(r)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.service.UpdateTask(id, patch, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	id, err := taskID(r)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteTask(id, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
