package options

import (
	"net/http"

	"github.com/cpdo/zoning-tracker/internal/transport"
)

type ServiceAPI interface {
	Titles() []string
	Zonings() []string
	ProjectTypes(zoning string) ([]string, error)
	Barangays() []string
	Puroks(barangay string) ([]string, error)
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

type ListResponse struct {
	Group string   `json:"group,omitempty"`
	Items []string `json:"items"`
}

// GetTitles handles GET /options/titles
func (h *Handler) GetTitles(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, ListResponse{Items: h.Service.Titles()})
}

// GetZonings handles GET /options/zonings
func (h *Handler) GetZonings(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, ListResponse{Items: h.Service.Zonings()})
}

// GetProjectTypes handles GET /options/project-types?zoning=
func (h *Handler) GetProjectTypes(w http.ResponseWriter, r *http.Request) {
	zoning := r.URL.Query().Get("zoning")
	items, err := h.Service.ProjectTypes(zoning)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Group: zoning, Items: items})
}

// GetBarangays handles GET /options/barangays
func (h *Handler) GetBarangays(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, ListResponse{Items: h.Service.Barangays()})
}

// GetPuroks handles GET /options/puroks?barangay=
func (h *Handler) GetPuroks(w http.ResponseWriter, r *http.Request) {
	barangay := r.URL.Query().Get("barangay")
	items, err := h.Service.Puroks(barangay)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Group: barangay, Items: items})
}
