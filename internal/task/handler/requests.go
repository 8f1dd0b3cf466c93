package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"taskflow/internal/task/models"
	"taskflow/internal/task/query"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
)

// optionalString records whether a JSON field was present, and whether it
// was null, so a patch can tell "leave unchanged" from "clear".
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func parseAssignee(raw string) (*id.UserID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	assignee, err := id.ParseUserID(raw)
	if err != nil {
		return nil, dErrors.Validation("assignedTo", "assignedTo must be a user id")
	}
	return &assignee, nil
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
	AssignedTo  *string `json:"assignedTo"`

	fields models.CreateFields
}

func (r *CreateTaskRequest) Validate() error {
	fields := models.CreateFields{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
	}
	if fields.Title == "" {
		return dErrors.Validation("title", "title is required")
	}
	if strings.TrimSpace(r.Status) != "" {
		status, err := models.ParseStatus(r.Status)
		if err != nil {
			return err
		}
		fields.Status = status
	}
	if strings.TrimSpace(r.Priority) != "" {
		priority, err := models.ParsePriority(r.Priority)
		if err != nil {
			return err
		}
		fields.Priority = priority
	}
	if r.DueDate != nil && strings.TrimSpace(*r.DueDate) != "" {
		due, err := query.ParseDueDate(*r.DueDate)
		if err != nil {
			return err
		}
		fields.DueDate = &due
	}
	if r.AssignedTo != nil {
		assignee, err := parseAssignee(*r.AssignedTo)
		if err != nil {
			return err
		}
		fields.AssignedTo = assignee
	}
	r.fields = fields
	return nil
}

// Fields returns the validated create fields. Call after Validate.
func (r *CreateTaskRequest) Fields() models.CreateFields {
	return r.fields
}

// UpdateTaskRequest is the body of PUT /api/tasks/{id}. Absent fields are
// left unchanged; dueDate and assignedTo may be null (or "") to clear them.
// Fields outside this allow-list, such as createdBy, are ignored.
type UpdateTaskRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *string        `json:"status"`
	Priority    *string        `json:"priority"`
	DueDate     optionalString `json:"dueDate"`
	AssignedTo  optionalString `json:"assignedTo"`

	patch models.TaskPatch
}

func (r *UpdateTaskRequest) Validate() error {
	patch := models.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Status != nil {
		status, err := models.ParseStatus(*r.Status)
		if err != nil {
			return err
		}
		patch.Status = &status
	}
	if r.Priority != nil {
		priority, err := models.ParsePriority(*r.Priority)
		if err != nil {
			return err
		}
		patch.Priority = &priority
	}
	if r.DueDate.Set {
		if r.DueDate.Value == nil || strings.TrimSpace(*r.DueDate.Value) == "" {
			patch.DueDate = models.Clear[time.Time]()
		} else {
			due, err := query.ParseDueDate(*r.DueDate.Value)
			if err != nil {
				return err
			}
			patch.DueDate = models.Some(due)
		}
	}
	if r.AssignedTo.Set {
		var assignee *id.UserID
		if r.AssignedTo.Value != nil {
			parsed, err := parseAssignee(*r.AssignedTo.Value)
			if err != nil {
				return err
			}
			assignee = parsed
		}
		if assignee == nil {
			patch.AssignedTo = models.Clear[id.UserID]()
		} else {
			patch.AssignedTo = models.Some(*assignee)
		}
	}
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return err
	}
	r.patch = patch
	return nil
}

// Patch returns the validated patch. Call after Validate.
func (r *UpdateTaskRequest) Patch() models.TaskPatch {
	return r.patch
}
