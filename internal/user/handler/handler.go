package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"taskflow/internal/identity/token"
	"taskflow/internal/user/models"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/platform/httputil"
	"taskflow/pkg/requestcontext"
)

// Service defines the account operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, reg models.Registration) (*models.User, *token.Issued, error)
	Login(ctx context.Context, email, password string) (*token.Issued, error)
	Logout(ctx context.Context, caller id.UserID, jti string, expiresAt time.Time) error
	Me(ctx context.Context, caller id.UserID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, userID id.UserID) (*models.User, error)
	UpdateProfile(ctx context.Context, caller, userID id.UserID, name string) (*models.User, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic registers the routes reachable without a credential.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
}

// Register registers the routes that expect RequireAuth upstream.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/user", h.handleMe)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/users", h.handleList)
	r.Get("/users/{id}", h.handleGet)
	r.Put("/users/{id}", h.handleUpdate)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.Validation("name", "name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return dErrors.Validation("email", "email is required")
	}
	if r.Password == "" {
		return dErrors.Validation("password", "password is required")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return dErrors.Validation("email", "email is required")
	}
	if r.Password == "" {
		return dErrors.Validation("password", "password is required")
	}
	return nil
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

func (r *UpdateProfileRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.Validation("name", "name is required")
	}
	return nil
}

type TokenResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *UserResponse `json:"user,omitempty"`
}

// UserResponse is a user without credentials.
type UserResponse struct {
	ID        id.UserID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResponse(u *models.User) *UserResponse {
	return &UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	user, issued, err := h.service.Register(ctx, models.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(ctx, w, "register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, TokenResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		User:      toResponse(user),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	issued, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeError(ctx, w, "login", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	info, ok := requestcontext.Token(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeMissingCredential, "no token, authorization denied"))
		return
	}
	if err := h.service.Logout(ctx, requestcontext.UserID(ctx), info.JTI, info.ExpiresAt); err != nil {
		h.writeError(ctx, w, "logout", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.service.Me(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "get current user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.service.List(ctx)
	if err != nil {
		h.writeError(ctx, w, "list users", err)
		return
	}
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(ctx, userID)
	if err != nil {
		h.writeError(ctx, w, "get user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	user, err := h.service.UpdateProfile(ctx, requestcontext.UserID(ctx), userID, req.Name)
	if err != nil {
		h.writeError(ctx, w, "update user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(user))
}

func userIDParam(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
		return id.UserID{}, false
	}
	return userID, true
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
