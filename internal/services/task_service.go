package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/avelar/taskhive-be/internal/models"
)

// TaskServiceProvider defines the interface for task services. Every
// operation takes the requesting user's id and applies it as a hard filter;
// there is no way to reach another user's task through this interface.
type TaskServiceProvider interface {
	GetTasksForUser(ownerID int64, statusFilter, priorityFilter string) ([]models.Task, error)
	GetTaskByID(taskID, ownerID int64) (models.Task, error)
	CreateTask(task models.Task, ownerID int64) (models.Task, error)
	UpdateTask(taskID int64, patch models.TaskPatch, ownerID int64) (models.Task, error)
	DeleteTask(taskID, ownerID int64) error
}

// TaskService provides business logic for task management.
type TaskService struct {
	db *sql.DB
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

const taskColumns = "id, title, description, status, priority, due_date, user_id, created_at, updated_at"

// GetTasksForUser retrieves all tasks owned by ownerID, newest first,
// optionally narrowed by exact-match status and priority. Filter values
// outside the known vocabularies simply match nothing.
func (s *TaskService) GetTasksForUser(ownerID int64, statusFilter, priorityFilter string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ?"
	args := []interface{}{ownerID}

	if statusFilter != "" {
		query += " AND status = ?"
		args = append(args, statusFilter)
	}
	if priorityFilter != "" {
		query += " AND priority = ?"
		args = append(args, priorityFilter)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanTasks(rows)
}

// GetTaskByID retrieves a single task, but only if ownerID owns it. A task
// owned by someone else is indistinguishable from one that does not exist.
func (s *TaskService) GetTaskByID(taskID, ownerID int64) (models.Task, error) {
	row := s.db.QueryRow(
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?",
		taskID, ownerID,
	)
	return s.scanTask(row)
}

// CreateTask creates a new task owned by ownerID. The owner always comes from
// the caller's resolved identity, never from client input. Status defaults to
// pending and priority to medium when unset.
func (s *TaskService) CreateTask(task models.Task, ownerID int64) (models.Task, error) {
	if task.Title == "" {
		return models.Task{}, &ValidationError{Field: "title", Message: "is required"}
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if !task.Status.Valid() {
		return models.Task{}, &ValidationError{Field: "status", Message: "must be one of pending, in-progress, completed"}
	}
	if !task.Priority.Valid() {
		return models.Task{}, &ValidationError{Field: "priority", Message: "must be one of low, medium, high"}
	}

	now := toMillis(time.Now())
	res, err := s.db.Exec(`
		INSERT INTO tasks (title, description, status, priority, due_date, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Title, task.Description, task.Status, task.Priority, dueMillis(task.DueDate), ownerID, now, now,
	)
	if err != nil {
		return models.Task{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, err
	}
	return s.GetTaskByID(id, ownerID)
}

// UpdateTask applies a merge-patch to an existing task: only fields present
// in the patch change, everything else keeps its prior value. The update
// timestamp is refreshed on every successful call, even a no-op patch.
// Ownership is enforced by resolving through GetTaskByID first.
func (s *TaskService) UpdateTask(taskID int64, patch models.TaskPatch, ownerID int64) (models.Task, error) {
	task, err := s.GetTaskByID(taskID, ownerID)
	if err != nil {
		return models.Task{}, err
	}

	if patch.Title != nil {
		if *patch.Title == "" {
			return models.Task{}, &ValidationError{Field: "title", Message: "is required"}
		}
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return models.Task{}, &ValidationError{Field: "status", Message: "must be one of pending, in-progress, completed"}
		}
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return models.Task{}, &ValidationError{Field: "priority", Message: "must be one of low, medium, high"}
		}
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}

	_, err = s.db.Exec(`
		UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, task.Status, task.Priority, dueMillis(task.DueDate), toMillis(time.Now()),
		taskID, ownerID,
	)
	if err != nil {
		return models.Task{}, err
	}
	return s.GetTaskByID(taskID, ownerID)
}

// DeleteTask removes a task after resolving ownership. Deletion is immediate
// and unrecoverable.
func (s *TaskService) DeleteTask(taskID, ownerID int64) error {
	if _, err := s.GetTaskByID(taskID, ownerID); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, ownerID)
	return err
}

// scanTasks is a helper to scan multiple rows into a slice of Tasks.
func (s *TaskService) scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// scanTask is a helper to scan a single row into a Task struct.
func (s *TaskService) scanTask(scanner interface{ Scan(...interface{}) error }) (models.Task, error) {
	var task models.Task
	var dueDate sql.NullInt64
	var createdAt, updatedAt int64
	err := scanner.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&dueDate,
		&task.UserID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	if dueDate.Valid {
		due := fromMillis(dueDate.Int64)
		task.DueDate = &due
	}
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return task, nil
}

func dueMillis(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}
