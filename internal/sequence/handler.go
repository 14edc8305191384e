package sequence

import (
	"context"
	"net/http"

	"github.com/cpdo/zoning-tracker/internal/transport"
)

type ServiceAPI interface {
	Peek(ctx context.Context, title string) (string, error)
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

type PreviewResponse struct {
	Title  string `json:"title"`
	Prefix string `json:"prefix"`
	Number string `json:"number"`
}

// Preview handles GET /sequence/preview?title=
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")

	number, err := h.Service.Peek(r.Context(), title)
	if err != nil {
		h.Logger.Error("Preview: failed to peek sequence", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PreviewResponse{
		Title:  title,
		Prefix: Prefix(title),
		Number: number,
	})
}
