package file

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cpdo/zoning-tracker/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, q ListQuery) (*ListResponse, error)
	Suggest(ctx context.Context, query string) ([]Suggestion, error)
	Get(ctx context.Context, id int64) (*Entry, error)
	Delete(ctx context.Context, id int64) error
	Open(ctx context.Context, id int64) (*Download, error)
	Link(ctx context.Context, id int64) (*SignedLink, error)
	OpenSigned(ctx context.Context, token string) (*Download, error)
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

type SuggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

func (h *Handler) fileID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := transport.ParseID(chi.URLParam(r, "id"))
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid file ID")
	}
	return id, ok
}

// ListFiles handles GET /files?q=&year=
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.List(r.Context(), ListQuery{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Year:  transport.QueryYear(r),
	})
	if err != nil {
		h.Logger.Error("ListFiles: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// SuggestFiles handles GET /files/suggest?q=
func (h *Handler) SuggestFiles(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.Service.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, SuggestResponse{Suggestions: suggestions})
}

// GetFile handles GET /files/{id}
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fileID(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, entry)
}

// DeleteFile handles DELETE /files/{id}
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.RequirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := h.fileID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.Logger.Warn("DeleteFile: service error", "error", err, "file_id", id, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadFile handles GET /files/{id}/download
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fileID(w, r)
	if !ok {
		return
	}
	download, err := h.Service.Open(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.stream(w, download)
}

// CreateLink handles GET /files/{id}/link
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fileID(w, r)
	if !ok {
		return
	}
	link, err := h.Service.Link(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, link)
}

// DownloadSigned handles GET /files/signed/{token}
func (h *Handler) DownloadSigned(w http.ResponseWriter, r *http.Request) {
	download, err := h.Service.OpenSigned(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.Logger.Warn("DownloadSigned: rejected", "error", err, "ip", transport.ClientIP(r))
		h.HandleServiceError(w, err)
		return
	}
	h.stream(w, download)
}

func (h *Handler) stream(w http.ResponseWriter, d *Download) {
	defer d.Content.Close()

	contentType := d.Entry.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Entry.Name))
	if info, err := d.Content.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, d.Content); err != nil {
		h.Logger.Error("failed to stream file", "file_id", d.Entry.ID, "error", err)
	}
}
