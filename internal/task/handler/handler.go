package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskflow/internal/task/models"
	"taskflow/internal/task/query"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/platform/httputil"
	"taskflow/pkg/requestcontext"
)

// Service defines the task operations the handler exposes.
type Service interface {
	CreateTask(ctx context.Context, caller id.UserID, fields models.CreateFields) (*models.Task, error)
	GetTask(ctx context.Context, caller id.UserID, taskID id.TaskID) (*models.Task, error)
	ListTasks(ctx context.Context, caller id.UserID, p query.Predicate) ([]*models.Task, error)
	SearchTasks(ctx context.Context, caller id.UserID, params query.Params) ([]*models.Task, error)
	UpdateTask(ctx context.Context, caller id.UserID, taskID id.TaskID, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, caller id.UserID, taskID id.TaskID) error
}

// NameResolver maps user ids to display names.
type NameResolver interface {
	DisplayNames(ctx context.Context, ids []id.UserID) (map[id.UserID]string, error)
}

// Handler serves the /tasks routes. Routes expect RequireAuth upstream.
type Handler struct {
	service Service
	names   NameResolver
	logger  *slog.Logger
}

// New creates a task Handler. names may be nil, in which case responses
// carry ids without display names.
func New(service Service, names NameResolver, logger *slog.Logger) *Handler {
	return &Handler{service: service, names: names, logger: logger}
}

// Register registers the task routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tasks", h.handleList)
	r.Post("/tasks", h.handleCreate)
	r.Get("/tasks/filter/search", h.handleSearch)
	r.Get("/tasks/{id}", h.handleGet)
	r.Put("/tasks/{id}", h.handleUpdate)
	r.Delete("/tasks/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.UserID(ctx)

	tasks, err := h.service.ListTasks(ctx, caller, query.Owned(caller))
	if err != nil {
		h.writeError(ctx, w, "list tasks", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponses(ctx, tasks))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.UserID(ctx)
	q := r.URL.Query()

	due := q.Get("dueDateBefore")
	if due == "" {
		due = q.Get("dueDate")
	}
	params := query.Params{
		Status:        q.Get("status"),
		Priority:      q.Get("priority"),
		DueDateBefore: due,
		Search:        q.Get("search"),
	}
	tasks, err := h.service.SearchTasks(ctx, caller, params)
	if err != nil {
		h.writeError(ctx, w, "search tasks", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponses(ctx, tasks))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTaskRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	task, err := h.service.CreateTask(ctx, caller, req.Fields())
	if err != nil {
		h.writeError(ctx, w, "create task", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, h.toResponse(ctx, task))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, ok := h.taskID(w, r)
	if !ok {
		return
	}
	task, err := h.service.GetTask(ctx, requestcontext.UserID(ctx), taskID)
	if err != nil {
		h.writeError(ctx, w, "get task", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(ctx, task))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	taskID, ok := h.taskID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateTaskRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	task, err := h.service.UpdateTask(ctx, requestcontext.UserID(ctx), taskID, req.Patch())
	if err != nil {
		h.writeError(ctx, w, "update task", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(ctx, task))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, ok := h.taskID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTask(ctx, requestcontext.UserID(ctx), taskID); err != nil {
		h.writeError(ctx, w, "delete task", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Task removed"})
}

// taskID parses the path id. An id that cannot name any task is reported as
// not found rather than as a malformed request.
func (h *Handler) taskID(w http.ResponseWriter, r *http.Request) (id.TaskID, bool) {
	taskID, err := id.ParseTaskID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "task not found"))
		return id.TaskID{}, false
	}
	return taskID, true
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

func (h *Handler) resolveNames(ctx context.Context, tasks []*models.Task) map[id.UserID]string {
	if h.names == nil || len(tasks) == 0 {
		return nil
	}
	seen := make(map[id.UserID]struct{})
	ids := make([]id.UserID, 0, len(tasks)*2)
	add := func(u id.UserID) {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			ids = append(ids, u)
		}
	}
	for _, t := range tasks {
		add(t.CreatedBy)
		if t.AssignedTo != nil {
			add(*t.AssignedTo)
		}
	}
	names, err := h.names.DisplayNames(ctx, ids)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to resolve user names",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil
	}
	return names
}

func (h *Handler) toResponse(ctx context.Context, task *models.Task) TaskResponse {
	return toResponse(task, h.resolveNames(ctx, []*models.Task{task}))
}

func (h *Handler) toResponses(ctx context.Context, tasks []*models.Task) []TaskResponse {
	names := h.resolveNames(ctx, tasks)
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toResponse(t, names))
	}
	return out
}
