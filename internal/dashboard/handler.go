package dashboard

import (
	"context"
	"net/http"

	"github.com/cpdo/zoning-tracker/internal/transport"
)

type ServiceAPI interface {
	Summary(ctx context.Context, year *int) (*Summary, error)
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

// GetSummary handles GET /dashboard?year=
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context(), transport.QueryYear(r))
	if err != nil {
		h.Logger.Error("GetSummary: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}
