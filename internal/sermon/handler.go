package sermon

import (
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/gracechapel/church-backend/internal"
	sermondm "github.com/gracechapel/church-backend/internal/core/datamodel/sermon"
	"github.com/gracechapel/church-backend/internal/transport"
)

type ListResponse struct {
	Sermons []sermondm.Sermon `json:"sermons"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
}

type Handler struct {
	transport.BaseHandler
	Service *Service
	Logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: *transport.NewBaseHandler(logger),
		Service:     service,
		Logger:      logger,
	}
}

// List handles GET /api/sermons
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	sermons, total, err := h.Service.List(r.Context(), page, limit)
	if err != nil {
		h.Logger.Error("failed to list sermons", "error", err)
		h.HandleError(w, errors.NewInternalError("Failed to fetch sermons", err))
		return
	}

	if sermons == nil {
		sermons = []sermondm.Sermon{}
	}

	h.WriteJSON(w, http.StatusOK, ListResponse{
		Sermons: sermons,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// Refresh handles POST /api/sermons/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Sync(r.Context()); err != nil {
		h.Logger.Error("sermon refresh failed", "error", err)
		h.HandleError(w, errors.NewExternalError("Failed to refresh sermons", errors.ErrCodeSermonSyncFailed, err))
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Sermons refreshed"})
}
