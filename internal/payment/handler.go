package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/gracechapel/church-backend/internal"
	"github.com/gracechapel/church-backend/internal/transport"
)

// Handler serves the initiate and status endpoints. The callback endpoint
// lives in WebhookHandler because its acknowledgement policy differs.
type Handler struct {
	transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: *transport.NewBaseHandler(logger),
		Service:     service,
		Logger:      logger,
	}
}

// STKPush handles POST /api/mpesa/stkpush
func (h *Handler) STKPush(w http.ResponseWriter, r *http.Request) {
	var req STKPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("STKPush: failed to parse request body", "error", err)
		h.writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.InitiateSTKPush(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.Logger.Info("STKPush: request accepted",
		"checkout_request_id", resp.CheckoutRequestID,
		"amount", req.Amount)

	h.WriteJSON(w, http.StatusOK, resp)
}

// Status handles GET /api/mpesa/status/{checkoutId}
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutId")
	if checkoutID == "" {
		h.writeFailure(w, http.StatusBadRequest, "checkoutId is required")
		return
	}

	txn, err := h.Service.GetStatus(r.Context(), checkoutID)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.StatusCode == http.StatusNotFound {
			h.Logger.Warn("Status: no transaction found", "checkout_request_id", checkoutID)
			h.WriteJSON(w, http.StatusNotFound, StatusResponse{
				Success: false,
				Status:  "unknown",
			})
			return
		}
		h.Logger.Error("Status: failed to fetch transaction", "checkout_request_id", checkoutID, "error", err)
		h.writeFailure(w, http.StatusInternalServerError, "Failed to fetch transaction status")
		return
	}

	h.WriteJSON(w, http.StatusOK, StatusResponse{
		Success: true,
		Status:  txn.Status,
		Data:    txn,
	})
}

// handleServiceError maps AppError status codes onto this API's
// {success:false, message} failure shape. Validation detail is surfaced to
// the client; everything else stays generic.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.IsAppError(err); ok {
		message := appErr.Message
		if appErr.Type == errors.ErrorTypeValidation {
			message = appErr.GetDetailedMessage()
		}
		h.writeFailure(w, appErr.StatusCode, message)
		return
	}

	h.Logger.Error("STKPush: unexpected error", "error", err)
	h.writeFailure(w, http.StatusInternalServerError, "STK Push failed. Please try again.")
}

func (h *Handler) writeFailure(w http.ResponseWriter, statusCode int, message string) {
	h.WriteJSON(w, statusCode, FailureResponse{
		Success: false,
		Message: message,
	})
}
