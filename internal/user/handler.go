package user

import (
	"context"
	"net/http"

	"github.com/cpdo/zoning-tracker/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]*User, error)
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, dto CreateUserDTO) (*User, error)
	Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error)
	Delete(ctx context.Context, id int64) error
	Directory(ctx context.Context) ([]DirectoryEntry, error)
	UpdateProfile(ctx context.Context, dto UpdateProfileDTO) (*User, error)
	ChangePassword(ctx context.Context, dto ChangePasswordDTO) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := transport.ParseID(chi.URLParam(r, "id"))
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
	}
	return id, ok
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Users: users, Total: len(users)})
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	u, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	u, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("CreateUser: service error", "error", err, "username", dto.Username)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

// UpdateUser handles PUT /users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var dto UpdateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	u, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.Logger.Warn("UpdateUser: service error", "error", err, "user_id", id)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.Logger.Warn("DeleteUser: service error", "error", err, "user_id", id)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDirectory handles GET /users/directory
func (h *Handler) GetDirectory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.Directory(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, DirectoryResponse{Users: entries})
}

// UpdateProfile handles PUT /settings/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.RequirePrincipal(w, r); !ok {
		return
	}
	var dto UpdateProfileDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	u, err := h.Service.UpdateProfile(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// ChangePassword handles PUT /settings/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.RequirePrincipal(w, r)
	if !ok {
		return
	}
	var dto ChangePasswordDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	if err := h.Service.ChangePassword(r.Context(), dto); err != nil {
		h.Logger.Warn("ChangePassword: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckPasswordStrength handles POST /settings/password/strength
func (h *Handler) CheckPasswordStrength(w http.ResponseWriter, r *http.Request) {
	var dto PasswordStrengthDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	h.WriteJSON(w, http.StatusOK, PasswordStrength(dto.Password))
}
