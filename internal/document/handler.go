package document

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cpdo/zoning-tracker/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Search(ctx context.Context, q ListQuery) (*ListResponse, error)
	GetByID(ctx context.Context, id int64) (*Document, error)
	Create(ctx context.Context, dto CreateDocumentDTO) (*Document, error)
	Update(ctx context.Context, id int64, dto UpdateDocumentDTO) (*Document, error)
	Delete(ctx context.Context, id int64) error
	Export(ctx context.Context, q ListQuery, format string) (*ExportResult, error)
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

func listQuery(r *http.Request) ListQuery {
	return ListQuery{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Year:  transport.QueryYear(r),
	}
}

// ListDocuments handles GET /documents?q=&year=
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Search(r.Context(), listQuery(r))
	if err != nil {
		h.Logger.Error("ListDocuments: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// GetDocument handles GET /documents/{id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := transport.ParseID(chi.URLParam(r, "id"))
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid document ID")
		return
	}
	doc, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /documents
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := h.RequirePrincipal(w, r)
	if !ok {
		return
	}

	var dto CreateDocumentDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	doc, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("CreateDocument: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateDocument: document created",
		"document_id", doc.ID,
		"number", doc.ZoningApplicationNumber,
		"user_id", user.ID)
	h.WriteJSON(w, http.StatusCreated, doc)
}

// UpdateDocument handles PUT /documents/{id}
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := h.RequirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := transport.ParseID(chi.URLParam(r, "id"))
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	var dto UpdateDocumentDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	doc, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.Logger.Warn("UpdateDocument: service error", "error", err, "document_id", id, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /documents/{id}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := h.RequirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := transport.ParseID(chi.URLParam(r, "id"))
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.Logger.Warn("DeleteDocument: service error", "error", err, "document_id", id, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportDocuments handles GET /documents/export?format=csv|pdf&q=&year=
func (h *Handler) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Export(r.Context(), listQuery(r), strings.ToLower(r.URL.Query().Get("format")))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Body); err != nil {
		h.Logger.Error("ExportDocuments: failed to write body", "error", err)
	}
}
