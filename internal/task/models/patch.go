package models

import (
	"strings"
	"time"

	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
)

// Optional distinguishes "leave unchanged" (Set=false) from "clear"
// (Set=true, Value=nil) for nullable fields.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some sets the field to v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Clear sets the field to null.
func Clear[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// TaskPatch is the allow-list of fields a caller may change on a task.
// There is deliberately no way to express CreatedBy, ID, or CreatedAt.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	DueDate     Optional[time.Time]
	AssignedTo  Optional[id.UserID]
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && !p.DueDate.Set && !p.AssignedTo.Set
}

// Normalize trims text fields and folds a nil-UUID assignee into "unassign".
func (p *TaskPatch) Normalize() {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		p.Description = &desc
	}
	if p.AssignedTo.Set && p.AssignedTo.Value != nil && p.AssignedTo.Value.IsNil() {
		p.AssignedTo.Value = nil
	}
	if p.DueDate.Set && p.DueDate.Value != nil {
		due := p.DueDate.Value.UTC()
		p.DueDate.Value = &due
	}
}

// Validate checks the invariants a patched task must still satisfy.
func (p TaskPatch) Validate() error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.IsValid() {
		return dErrors.Validation("status", "invalid status")
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return dErrors.Validation("priority", "invalid priority")
	}
	return nil
}

// NewAssignee returns the assignee this patch moves the task to, if the patch
// assigns it to someone other than the current assignee. Unassigning and
// re-setting the same assignee report false.
func (p TaskPatch) NewAssignee(current *Task) (id.UserID, bool) {
	if !p.AssignedTo.Set || p.AssignedTo.Value == nil {
		return id.UserID{}, false
	}
	next := *p.AssignedTo.Value
	if current.IsAssignedTo(next) {
		return id.UserID{}, false
	}
	return next, true
}

// TitleAfter returns the title the task will have once the patch is applied.
func (p TaskPatch) TitleAfter(current *Task) string {
	if p.Title != nil {
		return *p.Title
	}
	return current.Title
}

// Apply merges the patch into t. Unset fields are left unchanged.
func (t *Task) Apply(p TaskPatch, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate.Set {
		if p.DueDate.Value == nil {
			t.DueDate = nil
		} else {
			due := *p.DueDate.Value
			t.DueDate = &due
		}
	}
	if p.AssignedTo.Set {
		if p.AssignedTo.Value == nil {
			t.AssignedTo = nil
		} else {
			assignee := *p.AssignedTo.Value
			t.AssignedTo = &assignee
		}
	}
	t.UpdatedAt = now
}
