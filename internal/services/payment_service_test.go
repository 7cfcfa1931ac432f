package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/amider/backend/internal/models"
)

func TestCommissionAmount(t *testing.T) {
	// Rates are hundredths of a percent, rounding is half-up.
	tests := []struct {
		name     string
		amount   int64
		rate     int64
		expected int64
	}{
		{"16.67% of 30 rounds down to 5", 30, 1667, 5},
		{"16.67% of 3000", 3000, 1667, 500},
		{"half rounds up", 3, 5000, 2},
		{"10% of 100", 100, 1000, 10},
		{"tiny amount rounds to zero", 1, 1667, 0},
		{"zero rate yields zero", 1000, 0, 0},
		{"100% passes through", 1000, 10000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, commissionAmount(tt.amount, tt.rate))
		})
	}
}

func TestPaymentService_ProcessPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewPaymentService(db, NewLedgerService(db), NewBalanceService(db))
	messengerID := "messenger1"

	rateRows := func(oneTime, monthly int64, active bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"commission_rate_one_time", "commission_rate_monthly", "is_active"}).
			AddRow(oneTime, monthly, active)
	}

	t.Run("one-time payment credits the one-time commission", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT commission_rate_one_time, commission_rate_monthly, is_active").
			WithArgs(messengerID).
			WillReturnRows(rateRows(1667, 1000, true))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.KindMemberPayment,
				int64(3000), "ILS", models.StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.KindMessengerCommission,
				int64(500), "ILS", models.StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE messenger_accounts SET balance = balance \\+ \\$1").
			WithArgs(int64(500), sqlmock.AnyArg(), messengerID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		payment, commission, err := service.ProcessPayment(&PaymentCompletedEvent{
			MessengerID: messengerID,
			MemberID:    "member1",
			Amount:      3000,
			Kind:        PaymentOneTime,
			Currency:    "ILS",
		})
		assert.NoError(t, err)
		assert.Equal(t, models.KindMemberPayment, payment.Kind)
		assert.Equal(t, int64(500), commission.Amount)
		assert.Equal(t, models.StatusCompleted, commission.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("monthly payment uses the monthly rate", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT commission_rate_one_time, commission_rate_monthly, is_active").
			WithArgs(messengerID).
			WillReturnRows(rateRows(1667, 1000, true))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.KindMemberPayment,
				int64(2000), "ILS", models.StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.KindMessengerCommission,
				int64(200), "ILS", models.StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE messenger_accounts SET balance = balance \\+ \\$1").
			WithArgs(int64(200), sqlmock.AnyArg(), messengerID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, commission, err := service.ProcessPayment(&PaymentCompletedEvent{
			MessengerID: messengerID,
			MemberID:    "member1",
			Amount:      2000,
			Kind:        PaymentMonthly,
			Currency:    "ILS",
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(200), commission.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero commission records the payment only", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT commission_rate_one_time, commission_rate_monthly, is_active").
			WithArgs(messengerID).
			WillReturnRows(rateRows(1667, 1000, true))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.KindMemberPayment,
				int64(1), "ILS", models.StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		payment, commission, err := service.ProcessPayment(&PaymentCompletedEvent{
			MessengerID: messengerID,
			Amount:      1,
			Kind:        PaymentOneTime,
			Currency:    "ILS",
		})
		assert.NoError(t, err)
		assert.NotNil(t, payment)
		assert.Nil(t, commission)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive messenger is refused", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT commission_rate_one_time, commission_rate_monthly, is_active").
			WithArgs(messengerID).
			WillReturnRows(rateRows(1667, 1000, false))
		mock.ExpectRollback()

		_, _, err := service.ProcessPayment(&PaymentCompletedEvent{
			MessengerID: messengerID,
			Amount:      3000,
			Kind:        PaymentOneTime,
			Currency:    "ILS",
		})
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentService_ProcessSubscriptionFee(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewPaymentService(db, NewLedgerService(db), NewBalanceService(db))
	messengerID := "messenger1"

	t.Run("fee debits the wallet", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.KindMessengerSubscription,
				int64(1500), "ILS", models.StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE messenger_accounts SET balance = balance - \\$1").
			WithArgs(int64(1500), sqlmock.AnyArg(), messengerID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		entry, err := service.ProcessSubscriptionFee(&PaymentCompletedEvent{
			MessengerID: messengerID,
			Amount:      1500,
			Kind:        PaymentSubscriptionFee,
			Currency:    "ILS",
		})
		assert.NoError(t, err)
		assert.Equal(t, models.KindMessengerSubscription, entry.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fee beyond spendable balance is refused", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.KindMessengerSubscription,
				int64(999999), "ILS", models.StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE messenger_accounts SET balance = balance - \\$1").
			WithArgs(int64(999999), sqlmock.AnyArg(), messengerID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := service.ProcessSubscriptionFee(&PaymentCompletedEvent{
			MessengerID: messengerID,
			Amount:      999999,
			Kind:        PaymentSubscriptionFee,
			Currency:    "ILS",
		})
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
