// Package query turns list/filter/search parameters into a Predicate that
// every task store backend evaluates the same way.
//
// A Predicate always carries the ownership constraint: a caller only ever
// sees tasks they created or are assigned to. Every other dimension is
// optional and ANDed on top; an absent parameter never excludes anything.
package query

import (
	"strings"
	"time"

	"taskflow/internal/task/models"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
)

// maxSearchLength bounds the substring a caller can search for.
const maxSearchLength = 200

// Params are the raw list/search parameters as received from the caller.
// Empty strings mean "no constraint".
type Params struct {
	Status        string
	Priority      string
	DueDateBefore string
	Search        string
}

// Predicate is a conjunction of constraints over tasks.
type Predicate struct {
	// Caller is the ownership constraint: CreatedBy == Caller OR AssignedTo == Caller.
	Caller    id.UserID
	Status    *models.Status
	Priority  *models.Priority
	DueBefore *time.Time
	// Search is matched case-insensitively as a literal substring of Title OR Description.
	Search string
}

// Owned returns the base predicate with no additional constraints.
func Owned(caller id.UserID) Predicate {
	return Predicate{Caller: caller}
}

// BuildFilter validates params and composes them onto the ownership predicate.
func BuildFilter(caller id.UserID, params Params) (Predicate, error) {
	p := Owned(caller)

	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return Predicate{}, err
		}
		p.Status = &status
	}

	if raw := strings.TrimSpace(params.Priority); raw != "" {
		priority, err := models.ParsePriority(raw)
		if err != nil {
			return Predicate{}, err
		}
		p.Priority = &priority
	}

	if raw := strings.TrimSpace(params.DueDateBefore); raw != "" {
		due, err := ParseDueDate(raw)
		if err != nil {
			return Predicate{}, err
		}
		p.DueBefore = &due
	}

	if search := strings.TrimSpace(params.Search); search != "" {
		if len(search) > maxSearchLength {
			return Predicate{}, dErrors.Validation("search", "search must be 200 characters or less")
		}
		p.Search = search
	}

	return p, nil
}

// ParseDueDate accepts RFC3339 timestamps or bare YYYY-MM-DD dates (midnight UTC).
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, dErrors.Validation("dueDate", "dueDate must be an RFC3339 timestamp or YYYY-MM-DD date")
}

// Matches evaluates the predicate against a single task.
func (p Predicate) Matches(t *models.Task) bool {
	if !t.CanAccess(p.Caller) {
		return false
	}
	if p.Status != nil && t.Status != *p.Status {
		return false
	}
	if p.Priority != nil && t.Priority != *p.Priority {
		return false
	}
	if p.DueBefore != nil {
		if t.DueDate == nil || t.DueDate.After(*p.DueBefore) {
			return false
		}
	}
	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

// NewestFirst orders tasks by CreatedAt descending, breaking ties by ID so
// listings are stable across backends.
func NewestFirst(a, b *models.Task) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID.String(), a.ID.String())
}
