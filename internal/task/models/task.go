package models

import (
	"strings"
	"time"

	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// ParseStatus validates a status value received at the API boundary.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.IsValid() {
		return "", dErrors.Validation("status", "status must be one of pending, in_progress, completed, archived")
	}
	return s, nil
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority validates a priority value received at the API boundary.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.TrimSpace(raw))
	if !p.IsValid() {
		return "", dErrors.Validation("priority", "priority must be one of low, medium, high")
	}
	return p, nil
}

// maxTitleLength keeps titles to something a list view can render.
const maxTitleLength = 200

// Task is a unit of work owned by its creator.
//
// Invariants:
//   - Title is non-empty after trimming
//   - Status and Priority are members of their enums
//   - CreatedBy is set once at construction and never changes
//   - A task with no assignee is visible only to its creator
type Task struct {
	ID          id.TaskID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedBy   id.UserID  `json:"createdBy"`
	AssignedTo  *id.UserID `json:"assignedTo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsAssignedTo reports whether user is the current assignee.
func (t *Task) IsAssignedTo(user id.UserID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == user
}

// CanAccess reports whether caller may read or mutate the task: the creator
// or the current assignee.
func (t *Task) CanAccess(caller id.UserID) bool {
	return t.CreatedBy == caller || t.IsAssignedTo(caller)
}

// CanDelete reports whether caller may delete the task. Owner only.
func (t *Task) CanDelete(caller id.UserID) bool {
	return t.CreatedBy == caller
}

// Clone returns a deep copy so stores never share pointers with callers.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		c.AssignedTo = &assignee
	}
	return &c
}

// CreateFields are the caller-supplied values for a new task.
// Zero Status/Priority select the defaults.
type CreateFields struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueDate     *time.Time
	AssignedTo  *id.UserID
}

func validateTitle(title string) error {
	if title == "" {
		return dErrors.Validation("title", "title is required")
	}
	if len(title) > maxTitleLength {
		return dErrors.Validation("title", "title must be 200 characters or less")
	}
	return nil
}

// NewTask builds a task owned by createdBy, applying defaults and invariants.
func NewTask(taskID id.TaskID, createdBy id.UserID, fields CreateFields, now time.Time) (*Task, error) {
	title := strings.TrimSpace(fields.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	status := fields.Status
	if status == "" {
		status = StatusPending
	}
	if !status.IsValid() {
		return nil, dErrors.Validation("status", "invalid status")
	}
	priority := fields.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, dErrors.Validation("priority", "invalid priority")
	}

	t := &Task{
		ID:          taskID,
		Title:       title,
		Description: strings.TrimSpace(fields.Description),
		Status:      status,
		Priority:    priority,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if fields.DueDate != nil {
		due := fields.DueDate.UTC()
		t.DueDate = &due
	}
	if fields.AssignedTo != nil && !fields.AssignedTo.IsNil() {
		assignee := *fields.AssignedTo
		t.AssignedTo = &assignee
	}
	return t, nil
}
