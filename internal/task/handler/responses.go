package handler

import (
	"time"

	"taskflow/internal/task/models"
	id "taskflow/pkg/domain"
)

// UserRef is a user id with its display name, as list views render it.
type UserRef struct {
	ID   id.UserID `json:"id"`
	Name string    `json:"name,omitempty"`
}

// TaskResponse is the wire form of a task with its people resolved to names.
type TaskResponse struct {
	ID          id.TaskID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      models.Status   `json:"status"`
	Priority    models.Priority `json:"priority"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	CreatedBy   UserRef         `json:"createdBy"`
	AssignedTo  *UserRef        `json:"assignedTo,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toResponse(t *models.Task, names map[id.UserID]string) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedBy:   UserRef{ID: t.CreatedBy, Name: names[t.CreatedBy]},
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		resp.AssignedTo = &UserRef{ID: *t.AssignedTo, Name: names[*t.AssignedTo]}
	}
	return resp
}

// MessageResponse acknowledges an operation with no entity to return.
type MessageResponse struct {
	Message string `json:"message"`
}
