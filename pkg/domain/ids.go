// Package domain holds the typed identifiers shared across modules.
//
// Each identifier wraps a UUID so a TaskID can never be passed where a UserID
// is expected. Parsing happens once at the trust boundary (HTTP params, JSON
// bodies, token claims); everything behind it works with typed values.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "taskflow/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	TaskID         uuid.UUID
	NotificationID uuid.UUID
)

// maxIDLength bounds input before it reaches uuid.Parse.
const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+kind)
	}
	return u, nil
}

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewTaskID() TaskID                 { return TaskID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// ParseUserID parses a non-nil UUID string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user id", s)
	return UserID(u), err
}

// ParseTaskID parses a non-nil UUID string into a TaskID.
func ParseTaskID(s string) (TaskID, error) {
	u, err := parseUUID("task id", s)
	return TaskID(u), err
}

// ParseNotificationID parses a non-nil UUID string into a NotificationID.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID("notification id", s)
	return NotificationID(u), err
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id TaskID) String() string { return uuid.UUID(id).String() }
func (id TaskID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id TaskID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TaskID) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id NotificationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id NotificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *NotificationID) UnmarshalText(b []byte) error {
	parsed, err := ParseNotificationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
