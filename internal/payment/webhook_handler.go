package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gracechapel/church-backend/internal/transport"
)

// WebhookHandler is the inbound boundary for the gateway's asynchronous
// callback. Shape validation is the only thing that may produce a non-200:
// once the nested stkCallback object is present, the callback is always
// acknowledged, even when processing fails, because the gateway redelivers
// on anything else and duplicates are handled downstream anyway.
type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
	logger         *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    baseHandler,
		paymentService: paymentService,
		logger:         logger,
	}
}

// HandleCallback handles POST /api/mpesa/callback
func (h *WebhookHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var envelope CallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Warn("invalid callback body", "error", err)
		h.WriteJSON(w, http.StatusBadRequest, CallbackAck{Message: "Invalid callback structure"})
		return
	}

	cb := envelope.Body.StkCallback
	if cb == nil {
		h.logger.Warn("callback missing stkCallback object")
		h.WriteJSON(w, http.StatusBadRequest, CallbackAck{Message: "Invalid callback structure"})
		return
	}

	h.logger.Info("received STK callback",
		"checkout_request_id", cb.CheckoutRequestID,
		"result_code", cb.ResultCode,
		"result_desc", cb.ResultDesc)

	outcome, err := h.paymentService.HandleCallback(r.Context(), cb)
	if err != nil {
		// Storage failure: acknowledge anyway so the gateway does not hammer
		// us with redeliveries; the error log is the reconciliation trail.
		h.logger.Error("callback processing failed",
			"error", err,
			"checkout_request_id", cb.CheckoutRequestID)
		h.WriteJSON(w, http.StatusOK, CallbackAck{Message: "Callback received"})
		return
	}

	switch outcome {
	case CallbackDuplicate:
		h.WriteJSON(w, http.StatusOK, CallbackAck{Message: "Duplicate callback ignored"})
	default:
		h.WriteJSON(w, http.StatusOK, CallbackAck{Message: "Callback received successfully"})
	}
}
