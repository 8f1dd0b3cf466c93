package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taskflow/internal/notification/models"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/platform/httputil"
	"taskflow/pkg/requestcontext"
)

// Service defines the notification operations exposed to recipients.
type Service interface {
	ListNotifications(ctx context.Context, caller id.UserID) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, caller id.UserID) (int, error)
	MarkRead(ctx context.Context, caller id.UserID, notificationID id.NotificationID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, caller id.UserID) (int, error)
	DeleteNotification(ctx context.Context, caller id.UserID, notificationID id.NotificationID) error
	ClearRead(ctx context.Context, caller id.UserID) (int, error)
}

// NameResolver maps user ids to display names.
type NameResolver interface {
	DisplayNames(ctx context.Context, ids []id.UserID) (map[id.UserID]string, error)
}

type Handler struct {
	service Service
	names   NameResolver
	logger  *slog.Logger
}

func New(service Service, names NameResolver, logger *slog.Logger) *Handler {
	return &Handler{service: service, names: names, logger: logger}
}

// Register registers the notification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Delete("/notifications", h.handleClearRead)
	r.Get("/notifications/unread/count", h.handleUnreadCount)
	r.Put("/notifications/read/all", h.handleMarkAllRead)
	r.Put("/notifications/{id}", h.handleMarkRead)
	r.Delete("/notifications/{id}", h.handleDelete)
}

// SenderRef is the sender of a notification with its display name.
type SenderRef struct {
	ID   id.UserID `json:"id"`
	Name string    `json:"name,omitempty"`
}

type NotificationResponse struct {
	ID        id.NotificationID `json:"id"`
	Recipient id.UserID         `json:"recipient"`
	Sender    *SenderRef        `json:"sender,omitempty"`
	Task      *id.TaskID        `json:"task,omitempty"`
	Message   string            `json:"message"`
	Type      models.Type       `json:"type"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
}

type CountResponse struct {
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListNotifications(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "list notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponses(ctx, list))
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.service.UnreadCount(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "count unread notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notificationID, ok := notificationIDParam(w, r)
	if !ok {
		return
	}
	n, err := h.service.MarkRead(ctx, requestcontext.UserID(ctx), notificationID)
	if err != nil {
		h.writeError(ctx, w, "mark notification read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponses(ctx, []*models.Notification{n})[0])
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.service.MarkAllRead(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "mark all notifications read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count, Message: "All notifications marked as read"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notificationID, ok := notificationIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteNotification(ctx, requestcontext.UserID(ctx), notificationID); err != nil {
		h.writeError(ctx, w, "delete notification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Notification removed"})
}

func (h *Handler) handleClearRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.service.ClearRead(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "clear read notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count, Message: "All read notifications removed"})
}

func notificationIDParam(w http.ResponseWriter, r *http.Request) (id.NotificationID, bool) {
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "notification not found"))
		return id.NotificationID{}, false
	}
	return notificationID, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if de, ok := dErrors.From(err); !ok || httputil.StatusFor(de.Code) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func (h *Handler) senderNames(ctx context.Context, list []*models.Notification) map[id.UserID]string {
	if h.names == nil {
		return nil
	}
	seen := make(map[id.UserID]struct{})
	var senders []id.UserID
	for _, n := range list {
		if n.Sender == nil {
			continue
		}
		if _, ok := seen[*n.Sender]; !ok {
			seen[*n.Sender] = struct{}{}
			senders = append(senders, *n.Sender)
		}
	}
	if len(senders) == 0 {
		return nil
	}
	names, err := h.names.DisplayNames(ctx, senders)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to resolve sender names",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil
	}
	return names
}

func (h *Handler) toResponses(ctx context.Context, list []*models.Notification) []NotificationResponse {
	names := h.senderNames(ctx, list)
	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp := NotificationResponse{
			ID:        n.ID,
			Recipient: n.Recipient,
			Task:      n.Task,
			Message:   n.Message,
			Type:      n.Type,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
		if n.Sender != nil {
			resp.Sender = &SenderRef{ID: *n.Sender, Name: names[*n.Sender]}
		}
		out = append(out, resp)
	}
	return out
}
