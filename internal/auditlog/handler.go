package auditlog

import (
	"net/http"
	"strings"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/transport"
)

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

// first returns the first non-empty query value among keys.
func first(r *http.Request, keys ...string) string {
	q := r.URL.Query()
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// ParseFilter reads the listing filter from query parameters. The user
// parameter is an id when numeric and a username otherwise.
func ParseFilter(r *http.Request) (Filter, error) {
	f := Filter{
		Page:   transport.QueryInt(r, "page", 1),
		Limit:  transport.QueryInt(r, "limit", DefaultLimit),
		Module: first(r, "module"),
		Action: first(r, "action"),
		Search: first(r, "search"),
	}

	if u := first(r, "user"); u != "" {
		if id, ok := transport.ParseID(u); ok {
			f.UserID = &id
		} else {
			f.Username = u
		}
	}

	if raw := first(r, "date_from", "dateFrom"); raw != "" {
		t, ok := ParseDateFrom(raw)
		if !ok {
			return f, internal.NewValidationFieldError("date_from", "date_from must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
		}
		f.DateFrom = t
	}
	if raw := first(r, "date_to", "dateTo"); raw != "" {
		t, ok := ParseDateTo(raw)
		if !ok {
			return f, internal.NewValidationFieldError("date_to", "date_to must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
		}
		f.DateTo = t
	}

	return f, nil
}

// ListLogs handles GET /logs
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.Logger.Warn("ListLogs: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
