package models

import (
	"time"

	id "taskflow/pkg/domain"
)

type Type string

// TypeTaskAssigned is the only notification kind the system emits.
const TypeTaskAssigned Type = "task_assigned"

// Notification is a message addressed to a single recipient.
//
// Invariants:
//   - Recipient is immutable and is the only user who may read, mark, or delete it
//   - Task is a weak reference: it may point at a task that no longer exists
//   - Read only ever moves from false to true
type Notification struct {
	ID        id.NotificationID `json:"id"`
	Recipient id.UserID         `json:"recipient"`
	Sender    *id.UserID        `json:"sender,omitempty"`
	Task      *id.TaskID        `json:"task,omitempty"`
	Message   string            `json:"message"`
	Type      Type              `json:"type"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
}

// IsRecipient reports whether user owns the notification.
func (n *Notification) IsRecipient(user id.UserID) bool {
	return n.Recipient == user
}

// Clone returns a deep copy so stores never share pointers with callers.
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	c := *n
	if n.Sender != nil {
		sender := *n.Sender
		c.Sender = &sender
	}
	if n.Task != nil {
		task := *n.Task
		c.Task = &task
	}
	return &c
}

// NewAssignment builds an unread task_assigned notification.
// A nil sender is stored as absent.
func NewAssignment(notificationID id.NotificationID, recipient, sender id.UserID, taskID id.TaskID, message string, now time.Time) *Notification {
	n := &Notification{
		ID:        notificationID,
		Recipient: recipient,
		Message:   message,
		Type:      TypeTaskAssigned,
		CreatedAt: now,
	}
	if !sender.IsNil() {
		n.Sender = &sender
	}
	if !taskID.IsNil() {
		n.Task = &taskID
	}
	return n
}
