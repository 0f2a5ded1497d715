package transaction

import (
	"time"
)

// Lifecycle states. A transaction starts pending and moves to exactly one
// terminal state when the gateway callback is applied.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Giving categories; AccountReference on the STK push reuses the same value.
const (
	CategoryOffering  = "Offering"
	CategoryTithes    = "Tithes"
	CategoryDonations = "Donations"
	CategoryOther     = "Other"
)

// Categories lists the accepted giving categories.
var Categories = []string{CategoryOffering, CategoryTithes, CategoryDonations, CategoryOther}

// Transaction is the persisted record of one STK push. CheckoutRequestID is
// the gateway-issued correlation id and the join key for callbacks; it is
// assigned before the row is created, so it is never empty.
type Transaction struct {
	ID                int64      `json:"id" gorm:"primaryKey"`
	Phone             string     `json:"phone" gorm:"column:phone;not null"`
	Amount            int64      `json:"amount" gorm:"column:amount;not null"`
	Category          string     `json:"type" gorm:"column:category;default:Other"`
	Status            string     `json:"status" gorm:"column:status;default:pending"`
	ResultCode        *int       `json:"resultCode,omitempty" gorm:"column:result_code"`
	ResultDesc        *string    `json:"description,omitempty" gorm:"column:result_desc"`
	CustomerMessage   *string    `json:"message,omitempty" gorm:"column:customer_message"`
	CheckoutRequestID string     `json:"checkoutRequestID" gorm:"column:checkout_request_id;not null;uniqueIndex"`
	MerchantRequestID *string    `json:"merchantRequestID,omitempty" gorm:"column:merchant_request_id"`
	CallbackReceived  bool       `json:"callbackReceived" gorm:"column:callback_received;default:false"`
	CallbackAt        *time.Time `json:"callbackAt,omitempty" gorm:"column:callback_at"`
	CreatedAt         time.Time  `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" gorm:"column:updated_at"`
}

func (Transaction) TableName() string {
	return "mpesa_transactions"
}

// IsFinal reports whether the transaction has reached a terminal state.
func (t *Transaction) IsFinal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailed
}
