package payment_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	paymentPkg "github.com/gracechapel/church-backend/internal/payment"
	"github.com/gracechapel/church-backend/internal/transport"
)

var _ = Describe("WebhookHandler", func() {
	var (
		handler     *paymentPkg.WebhookHandler
		mockService *mockPaymentService
	)

	post := func(body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/mpesa/callback", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandleCallback(rec, req)
		return rec
	}

	BeforeEach(func() {
		mockService = &mockPaymentService{}
		handler = paymentPkg.NewWebhookHandler(transport.NewBaseHandler(testLogger()), mockService, testLogger())
	})

	Context("when a valid callback arrives", func() {
		It("should acknowledge with 200 and forward the inner object", func() {
			// Given
			body := []byte(`{
				"Body": {
					"stkCallback": {
						"MerchantRequestID": "29115-34620561-1",
						"CheckoutRequestID": "ws_CO_191220191020363925",
						"ResultCode": 0,
						"ResultDesc": "The service request is processed successfully.",
						"CallbackMetadata": {"Item": [{"Name": "Amount", "Value": 1000}]}
					}
				}
			}`)

			// When
			rec := post(body)

			// Then
			Expect(rec.Code).To(Equal(http.StatusOK))
			var ack paymentPkg.CallbackAck
			Expect(json.Unmarshal(rec.Body.Bytes(), &ack)).To(Succeed())
			Expect(ack.Message).To(Equal("Callback received successfully"))

			Expect(mockService.lastCallback).ToNot(BeNil())
			Expect(mockService.lastCallback.CheckoutRequestID).To(Equal("ws_CO_191220191020363925"))
			Expect(mockService.lastCallback.ResultCode).To(Equal(0))
		})
	})

	Context("when the body is not JSON", func() {
		It("should return 400", func() {
			// When
			rec := post([]byte("not-json"))

			// Then
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(mockService.lastCallback).To(BeNil())
		})
	})

	Context("when the stkCallback object is absent", func() {
		It("should return 400 without touching the service", func() {
			// When
			rec := post([]byte(`{"Body": {}}`))

			// Then
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			var ack paymentPkg.CallbackAck
			Expect(json.Unmarshal(rec.Body.Bytes(), &ack)).To(Succeed())
			Expect(ack.Message).To(Equal("Invalid callback structure"))
			Expect(mockService.lastCallback).To(BeNil())
		})
	})

	Context("when the callback is a duplicate", func() {
		It("should still acknowledge with 200", func() {
			// Given
			mockService.callbackOutcome = paymentPkg.CallbackDuplicate
			body := []byte(`{"Body": {"stkCallback": {"CheckoutRequestID": "ws_CO_191220191020363925", "ResultCode": 0, "ResultDesc": "ok"}}}`)

			// When
			rec := post(body)

			// Then
			Expect(rec.Code).To(Equal(http.StatusOK))
			var ack paymentPkg.CallbackAck
			Expect(json.Unmarshal(rec.Body.Bytes(), &ack)).To(Succeed())
			Expect(ack.Message).To(Equal("Duplicate callback ignored"))
		})
	})

	Context("when processing fails internally", func() {
		It("should still acknowledge with 200 so the gateway stops redelivering", func() {
			// Given
			mockService.callbackErr = errors.New("database error")
			body := []byte(`{"Body": {"stkCallback": {"CheckoutRequestID": "ws_CO_191220191020363925", "ResultCode": 0, "ResultDesc": "ok"}}}`)

			// When
			rec := post(body)

			// Then
			Expect(rec.Code).To(Equal(http.StatusOK))
			var ack paymentPkg.CallbackAck
			Expect(json.Unmarshal(rec.Body.Bytes(), &ack)).To(Succeed())
			Expect(ack.Message).To(Equal("Callback received"))
		})
	})
})
