package payment

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/gracechapel/church-backend/internal"
	"github.com/gracechapel/church-backend/internal/core/datamodel/transaction"
	"github.com/gracechapel/church-backend/internal/paymentgateway"
)

// TransactionRepository is the persistence port for payment transactions.
type TransactionRepository interface {
	Create(t *transaction.Transaction) error
	GetByCheckoutRequestID(checkoutRequestID string) (*transaction.Transaction, error)
	// Finalize applies the callback result as a single conditional update
	// guarded by callback_received = false, returning the number of rows it
	// changed. Zero rows means the transaction is unknown or already final.
	Finalize(checkoutRequestID, status string, resultCode int, resultDesc, customerMessage string) (int64, error)
}

// GatewayAPI is the outbound port to the payment gateway.
type GatewayAPI interface {
	STKPush(ctx context.Context, req paymentgateway.STKPushRequest) (*paymentgateway.STKPushResult, error)
}

// ServiceAPI is what the HTTP handlers depend on.
type ServiceAPI interface {
	InitiateSTKPush(ctx context.Context, req *STKPushRequest) (*STKPushResponse, error)
	HandleCallback(ctx context.Context, cb *StkCallback) (CallbackOutcome, error)
	GetStatus(ctx context.Context, checkoutRequestID string) (*transaction.Transaction, error)
}

// CallbackOutcome distinguishes first-time processing from the soft paths.
type CallbackOutcome int

const (
	// CallbackApplied: first delivery, state transition performed.
	CallbackApplied CallbackOutcome = iota
	// CallbackDuplicate: transaction already finalized, nothing mutated.
	CallbackDuplicate
	// CallbackUnknown: no transaction carries this correlation id.
	CallbackUnknown
)

func (o CallbackOutcome) String() string {
	switch o {
	case CallbackApplied:
		return "applied"
	case CallbackDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Service orchestrates the payment state machine. It is the only writer of
// transaction state; the two mutation points are the initiate insert and the
// idempotent callback finalize.
type Service struct {
	repo          TransactionRepository
	gateway       GatewayAPI
	logger        *slog.Logger
	amountCeiling int64
	timeout       time.Duration
}

func NewService(repo TransactionRepository, gateway GatewayAPI, amountCeiling int64, timeout time.Duration, logger *slog.Logger) *Service {
	if amountCeiling <= 0 {
		amountCeiling = 150000
	}
	return &Service{
		repo:          repo,
		gateway:       gateway,
		logger:        logger,
		amountCeiling: amountCeiling,
		timeout:       timeout,
	}
}

// InitiateSTKPush validates the request, asks the gateway to prompt the
// payer, and only then records the pending transaction. A gateway failure
// therefore leaves no orphaned row; a storage failure after the gateway
// accepted is surfaced as a 5xx and logged with the correlation id so the
// record can be reconciled when the callback arrives.
func (s *Service) InitiateSTKPush(ctx context.Context, req *STKPushRequest) (*STKPushResponse, error) {
	req.Normalize()
	if err := req.Validate(s.amountCeiling); err != nil {
		s.logger.Warn("STK push validation failed", "error", err)
		return nil, err
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.gateway.STKPush(ctx, paymentgateway.STKPushRequest{
		Phone:            req.Phone,
		Amount:           req.Amount,
		AccountReference: req.Type,
		Description:      req.Type + " payment",
	})
	if err != nil {
		s.logger.Error("STK push failed",
			"error", err,
			"amount", req.Amount,
			"category", req.Type)
		return nil, errors.NewExternalError("STK Push failed. Please try again.", errors.ErrCodeStkPushFailed, err)
	}

	txn := &transaction.Transaction{
		Phone:             paymentgateway.NormalizeMSISDN(req.Phone),
		Amount:            req.Amount,
		Category:          req.Type,
		Status:            transaction.StatusPending,
		CheckoutRequestID: result.CheckoutRequestID,
	}
	if result.MerchantRequestID != "" {
		txn.MerchantRequestID = &result.MerchantRequestID
	}

	if err := s.repo.Create(txn); err != nil {
		// The push is already in flight; keep every identifier in the log
		// for manual reconciliation when the callback lands.
		s.logger.Error("failed to persist pending transaction",
			"error", err,
			"checkout_request_id", result.CheckoutRequestID,
			"merchant_request_id", result.MerchantRequestID,
			"amount", req.Amount)
		return nil, errors.NewInternalError("Payment could not be recorded. Please contact support.", err)
	}

	s.logger.Info("STK push initiated",
		"checkout_request_id", result.CheckoutRequestID,
		"transaction_id", txn.ID,
		"amount", req.Amount,
		"category", req.Type)

	return &STKPushResponse{
		Success:           true,
		Message:           result.CustomerMessage,
		CheckoutRequestID: result.CheckoutRequestID,
	}, nil
}

// HandleCallback applies a gateway callback at most once. The state mutation
// is a single conditional update, so concurrent duplicate deliveries resolve
// to exactly one Applied outcome; every other delivery reports Duplicate.
func (s *Service) HandleCallback(ctx context.Context, cb *StkCallback) (CallbackOutcome, error) {
	status := transaction.StatusFailed
	if cb.ResultCode == 0 {
		status = transaction.StatusSuccess
	}

	rows, err := s.repo.Finalize(cb.CheckoutRequestID, status, cb.ResultCode, cb.ResultDesc, cb.CustomerMessage)
	if err != nil {
		s.logger.Error("failed to finalize transaction",
			"error", err,
			"checkout_request_id", cb.CheckoutRequestID,
			"result_code", cb.ResultCode)
		return CallbackUnknown, errors.NewInternalError("failed to process callback", err)
	}

	if rows > 0 {
		s.logger.Info("callback applied",
			"checkout_request_id", cb.CheckoutRequestID,
			"status", status,
			"result_code", cb.ResultCode)
		return CallbackApplied, nil
	}

	// Zero rows: either the transaction is already final or it was never
	// ours. A second read distinguishes the two for logging; neither mutates.
	existing, err := s.repo.GetByCheckoutRequestID(cb.CheckoutRequestID)
	if err == nil && existing != nil && existing.IsFinal() {
		s.logger.Info("duplicate callback ignored",
			"checkout_request_id", cb.CheckoutRequestID,
			"status", existing.Status)
		return CallbackDuplicate, nil
	}

	s.logger.Warn("callback for unknown transaction",
		"checkout_request_id", cb.CheckoutRequestID,
		"result_code", cb.ResultCode,
		"result_desc", cb.ResultDesc)
	return CallbackUnknown, nil
}

// GetStatus is the pure read path. A missing transaction surfaces as
// ErrTransactionNotFound; a storage failure is wrapped so the caller can tell
// the two apart.
func (s *Service) GetStatus(ctx context.Context, checkoutRequestID string) (*transaction.Transaction, error) {
	txn, err := s.repo.GetByCheckoutRequestID(checkoutRequestID)
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to fetch transaction status",
			"error", err,
			"checkout_request_id", checkoutRequestID)
		return nil, errors.NewInternalError("Failed to fetch transaction status", err)
	}
	if txn == nil {
		return nil, errors.ErrTransactionNotFound
	}
	return txn, nil
}
