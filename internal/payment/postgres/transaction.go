package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/gracechapel/church-backend/internal"
	"github.com/gracechapel/church-backend/internal/core/datamodel/transaction"
	paymentpkg "github.com/gracechapel/church-backend/internal/payment"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) paymentpkg.TransactionRepository {
	return &TransactionRepository{
		db: db,
	}
}

func (r *TransactionRepository) Create(t *transaction.Transaction) error {
	return r.db.Create(t).Error
}

func (r *TransactionRepository) GetByCheckoutRequestID(checkoutRequestID string) (*transaction.Transaction, error) {
	var t transaction.Transaction
	err := r.db.Where("checkout_request_id = ?", checkoutRequestID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Finalize is the single mutation point for callbacks. The callback_received
// guard in the WHERE clause makes the read-modify-write one atomic statement,
// so two concurrent deliveries of the same callback can never both update:
// the database serializes them and the second matches zero rows.
func (r *TransactionRepository) Finalize(checkoutRequestID, status string, resultCode int, resultDesc, customerMessage string) (int64, error) {
	now := time.Now().UTC()
	res := r.db.Model(&transaction.Transaction{}).
		Where("checkout_request_id = ? AND callback_received = ?", checkoutRequestID, false).
		Updates(map[string]interface{}{
			"status":            status,
			"result_code":       resultCode,
			"result_desc":       resultDesc,
			"customer_message":  customerMessage,
			"callback_received": true,
			"callback_at":       now,
			"updated_at":        now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
