package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/notification/models"
	id "taskflow/pkg/domain"
)

func TestNewEvent(t *testing.T) {
	recipient, sender, taskID := id.NewUserID(), id.NewUserID(), id.NewTaskID()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := models.NewAssignment(id.NewNotificationID(), recipient, sender, taskID, "You have been assigned a task: x", at)

	body, err := json.Marshal(NewEvent(n))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, EventCreated, decoded["type"])
	assert.Equal(t, recipient.String(), decoded["recipient"])
	assert.Equal(t, sender.String(), decoded["sender"])
	assert.Equal(t, taskID.String(), decoded["task"])
	assert.Equal(t, "task_assigned", decoded["kind"])
	assert.Equal(t, "2026-03-01T12:00:00Z", decoded["createdAt"])
}

func TestNewEventOmitsAbsentReferences(t *testing.T) {
	n := models.NewAssignment(id.NewNotificationID(), id.NewUserID(), id.UserID{}, id.TaskID{}, "x", time.Now())

	body, err := json.Marshal(NewEvent(n))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.NotContains(t, decoded, "sender")
	assert.NotContains(t, decoded, "task")
}

func TestNoop(t *testing.T) {
	var p Noop
	assert.NoError(t, p.Publish(context.Background(), &models.Notification{}))
	assert.NoError(t, p.Flush(context.Background()))
}
