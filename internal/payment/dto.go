package payment

import (
	"encoding/json"

	errors "github.com/gracechapel/church-backend/internal"
	"github.com/gracechapel/church-backend/internal/core/common/validation"
	"github.com/gracechapel/church-backend/internal/core/datamodel/transaction"
	"github.com/gracechapel/church-backend/internal/paymentgateway"
)

// STKPushRequest is the initiate-payment body. Type is optional and defaults
// to Other.
type STKPushRequest struct {
	Phone  string `json:"phone"`
	Amount int64  `json:"amount"`
	Type   string `json:"type,omitempty"`
}

// Normalize fills defaults prior to validation.
func (r *STKPushRequest) Normalize() {
	if r.Type == "" {
		r.Type = transaction.CategoryOther
	}
}

// Validate runs every input check before any external call is attempted.
// ceiling is the operator-defined per-transaction maximum in KES.
func (r *STKPushRequest) Validate(ceiling int64) error {
	validator := validation.NewValidator()

	validator.Field("phone", r.Phone).
		Required().
		Pattern(paymentgateway.MSISDNPattern, "phone must be a valid Kenyan mobile number", errors.ErrCodeInvalidPhone)
	validator.Field("amount", r.Amount).
		Required().
		MinInt(1, errors.ErrCodeInvalidAmount).
		MaxInt(ceiling, errors.ErrCodeInvalidAmount)
	validator.Field("type", r.Type).
		OneOf(transaction.Categories, errors.ErrCodeInvalidCategory)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// STKPushResponse is returned to the client after Daraja accepts the push.
type STKPushResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	CheckoutRequestID string `json:"checkoutRequestID"`
}

// StkCallback is the inner callback object Daraja delivers asynchronously.
// Field names are fixed by the gateway.
type StkCallback struct {
	MerchantRequestID string          `json:"MerchantRequestID"`
	CheckoutRequestID string          `json:"CheckoutRequestID"`
	ResultCode        int             `json:"ResultCode"`
	ResultDesc        string          `json:"ResultDesc"`
	CustomerMessage   string          `json:"CustomerMessage"`
	CallbackMetadata  json.RawMessage `json:"CallbackMetadata,omitempty"`
}

// CallbackEnvelope is the outer webhook body: {"Body":{"stkCallback":{...}}}.
// StkCallback is a pointer so an absent object is distinguishable from a
// zero-valued one.
type CallbackEnvelope struct {
	Body struct {
		StkCallback *StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackAck is the body returned to the gateway for every acknowledged
// callback.
type CallbackAck struct {
	Message string `json:"message"`
}

// StatusResponse wraps a transaction for the status read path.
type StatusResponse struct {
	Success bool                     `json:"success"`
	Status  string                   `json:"status"`
	Data    *transaction.Transaction `json:"data,omitempty"`
}

// FailureResponse is the generic client-facing error shape on this API.
type FailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
