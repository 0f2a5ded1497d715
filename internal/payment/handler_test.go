package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/gracechapel/church-backend/internal"
	"github.com/gracechapel/church-backend/internal/core/datamodel/transaction"
	paymentPkg "github.com/gracechapel/church-backend/internal/payment"
)

// Mock service for handler tests
type mockPaymentService struct {
	initiateResp    *paymentPkg.STKPushResponse
	initiateErr     error
	callbackOutcome paymentPkg.CallbackOutcome
	callbackErr     error
	statusTxn       *transaction.Transaction
	statusErr       error
	lastCallback    *paymentPkg.StkCallback
}

func (m *mockPaymentService) InitiateSTKPush(ctx context.Context, req *paymentPkg.STKPushRequest) (*paymentPkg.STKPushResponse, error) {
	if m.initiateErr != nil {
		return nil, m.initiateErr
	}
	return m.initiateResp, nil
}

func (m *mockPaymentService) HandleCallback(ctx context.Context, cb *paymentPkg.StkCallback) (paymentPkg.CallbackOutcome, error) {
	m.lastCallback = cb
	return m.callbackOutcome, m.callbackErr
}

func (m *mockPaymentService) GetStatus(ctx context.Context, checkoutRequestID string) (*transaction.Transaction, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.statusTxn, nil
}

var _ = Describe("PaymentHandler", func() {
	var (
		handler     *paymentPkg.Handler
		mockService *mockPaymentService
		router      *chi.Mux
	)

	BeforeEach(func() {
		mockService = &mockPaymentService{}
		handler = paymentPkg.NewHandler(mockService, testLogger())

		router = chi.NewRouter()
		router.Post("/api/mpesa/stkpush", handler.STKPush)
		router.Get("/api/mpesa/status/{checkoutId}", handler.Status)
	})

	Describe("STKPush", func() {
		Context("when the push is accepted", func() {
			It("should return the checkout id", func() {
				// Given
				mockService.initiateResp = &paymentPkg.STKPushResponse{
					Success:           true,
					Message:           "Success. Request accepted for processing",
					CheckoutRequestID: "ws_CO_191220191020363925",
				}
				body, _ := json.Marshal(map[string]any{
					"phone":  "0712345678",
					"amount": 1000,
					"type":   "Offering",
				})

				// When
				req := httptest.NewRequest(http.MethodPost, "/api/mpesa/stkpush", bytes.NewReader(body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))
				var resp paymentPkg.STKPushResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Success).To(BeTrue())
				Expect(resp.CheckoutRequestID).To(Equal("ws_CO_191220191020363925"))
			})
		})

		Context("when the body is not JSON", func() {
			It("should return 400 with the failure shape", func() {
				// When
				req := httptest.NewRequest(http.MethodPost, "/api/mpesa/stkpush", bytes.NewReader([]byte("not-json")))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				var resp paymentPkg.FailureResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Success).To(BeFalse())
			})
		})

		Context("when validation fails", func() {
			It("should surface the detailed message with 400", func() {
				// Given
				mockService.initiateErr = apperrors.NewValidationFieldError(
					"phone", "phone must be a valid Kenyan mobile number", apperrors.ErrCodeInvalidPhone)
				body, _ := json.Marshal(map[string]any{"phone": "12345", "amount": 1000})

				// When
				req := httptest.NewRequest(http.MethodPost, "/api/mpesa/stkpush", bytes.NewReader(body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				var resp paymentPkg.FailureResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Success).To(BeFalse())
				Expect(resp.Message).To(ContainSubstring("Kenyan mobile number"))
			})
		})

		Context("when the gateway rejects the push", func() {
			It("should return 500 with a generic message", func() {
				// Given
				mockService.initiateErr = apperrors.NewExternalError(
					"STK Push failed. Please try again.", apperrors.ErrCodeStkPushFailed, nil)
				body, _ := json.Marshal(map[string]any{"phone": "0712345678", "amount": 1000})

				// When
				req := httptest.NewRequest(http.MethodPost, "/api/mpesa/stkpush", bytes.NewReader(body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusInternalServerError))
				var resp paymentPkg.FailureResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Success).To(BeFalse())
				Expect(resp.Message).To(Equal("STK Push failed. Please try again."))
			})
		})
	})

	Describe("Status", func() {
		Context("when the transaction exists", func() {
			It("should return the wrapped transaction", func() {
				// Given
				mockService.statusTxn = &transaction.Transaction{
					ID:                1,
					Phone:             "254712345678",
					Amount:            1000,
					Status:            transaction.StatusSuccess,
					CheckoutRequestID: "ws_CO_191220191020363925",
				}

				// When
				req := httptest.NewRequest(http.MethodGet, "/api/mpesa/status/ws_CO_191220191020363925", nil)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))
				var resp paymentPkg.StatusResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Success).To(BeTrue())
				Expect(resp.Status).To(Equal(transaction.StatusSuccess))
				Expect(resp.Data).ToNot(BeNil())
				Expect(resp.Data.CheckoutRequestID).To(Equal("ws_CO_191220191020363925"))
			})
		})

		Context("when no transaction matches", func() {
			It("should return 404 with status unknown", func() {
				// Given
				mockService.statusErr = apperrors.ErrTransactionNotFound

				// When
				req := httptest.NewRequest(http.MethodGet, "/api/mpesa/status/ws_CO_missing", nil)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusNotFound))
				var resp paymentPkg.StatusResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Success).To(BeFalse())
				Expect(resp.Status).To(Equal("unknown"))
			})
		})

		Context("when the status lookup fails", func() {
			It("should return 500, not 404", func() {
				// Given
				mockService.statusErr = apperrors.NewInternalError("Failed to fetch transaction status", errors.New("connection refused"))

				// When
				req := httptest.NewRequest(http.MethodGet, "/api/mpesa/status/ws_CO_191220191020363925", nil)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusInternalServerError))
				var resp paymentPkg.FailureResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Success).To(BeFalse())
				Expect(resp.Message).To(Equal("Failed to fetch transaction status"))
			})
		})
	})
})
