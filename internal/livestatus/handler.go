package livestatus

import (
	"log/slog"
	"net/http"

	"github.com/gracechapel/church-backend/internal/transport"
)

type platformStatus struct {
	IsLive bool `json:"isLive"`
}

type StatusResponse struct {
	YouTube  platformStatus `json:"youtube"`
	Facebook platformStatus `json:"facebook"`
}

type Handler struct {
	transport.BaseHandler
	Poller *Poller
	Logger *slog.Logger
}

func NewHandler(poller *Poller, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: *transport.NewBaseHandler(logger),
		Poller:      poller,
		Logger:      logger,
	}
}

// Status handles GET /api/live-status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.Poller.Status()
	h.WriteJSON(w, http.StatusOK, StatusResponse{
		YouTube:  platformStatus{IsLive: status.YouTubeLive},
		Facebook: platformStatus{IsLive: status.FacebookLive},
	})
}
