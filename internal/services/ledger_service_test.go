package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/amider/backend/internal/models"
)

func TestLedgerService_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("records a completed commission entry", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.KindMessengerCommission,
				int64(500), "ILS", models.StatusCompleted, "commission", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		entry, err := service.Record(&NewLedgerEntry{
			MessengerID: "messenger1",
			Kind:        models.KindMessengerCommission,
			Amount:      500,
			Currency:    "ILS",
			Status:      models.StatusCompleted,
			Description: "commission",
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "messenger1", *entry.MessengerID)
		assert.Equal(t, int64(500), entry.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := service.Record(&NewLedgerEntry{
			MessengerID: "messenger1",
			Kind:        models.KindMessengerCommission,
			Amount:      0,
			Currency:    "ILS",
			Status:      models.StatusCompleted,
		})
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := service.Record(&NewLedgerEntry{
			MessengerID: "messenger1",
			Kind:        "mystery_money",
			Amount:      500,
			Currency:    "ILS",
			Status:      models.StatusCompleted,
		})
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects terminal status at creation", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := service.Record(&NewLedgerEntry{
			MessengerID: "messenger1",
			Kind:        models.KindMessengerCommission,
			Amount:      500,
			Currency:    "ILS",
			Status:      models.StatusFailed,
		})
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_Transition(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	messengerID := "messenger1"

	t.Run("pending entry moves to completed", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE ledger_entries").
			WithArgs(models.StatusCompleted, sqlmock.AnyArg(), "settled", "entry1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT id, messenger_id, member_id, kind, amount, currency, status, description, created_at, status_changed_at").
			WithArgs("entry1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "messenger_id", "member_id", "kind", "amount", "currency", "status", "description", "created_at", "status_changed_at"}).
				AddRow("entry1", messengerID, nil, models.KindMessengerCommission, 500, "ILS", models.StatusCompleted, "settled", time.Now(), time.Now()))
		mock.ExpectCommit()

		entry, err := service.Transition("entry1", models.StatusCompleted, "settled")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, entry.Status)
		assert.True(t, entry.IsTerminal())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal entry stays untouched", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE ledger_entries").
			WithArgs(models.StatusFailed, sqlmock.AnyArg(), "", "entry1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT status FROM ledger_entries").
			WithArgs("entry1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.StatusCompleted))
		mock.ExpectRollback()

		_, err := service.Transition("entry1", models.StatusFailed, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Contains(t, err.Error(), "completed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects pending as target status", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := service.Transition("entry1", models.StatusPending, "")
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_QueryByMessenger(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	messengerID := "messenger1"

	t.Run("filters by kind and status", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "messenger_id", "member_id", "kind", "amount", "currency", "status", "description", "created_at", "status_changed_at"}).
			AddRow("entry2", messengerID, nil, models.KindMessengerCommission, 700, "ILS", models.StatusCompleted, "", time.Now(), time.Now()).
			AddRow("entry1", messengerID, nil, models.KindMessengerCommission, 500, "ILS", models.StatusCompleted, "", time.Now().Add(-time.Hour), time.Now())

		mock.ExpectQuery("SELECT id, messenger_id, member_id, kind, amount, currency, status, description, created_at, status_changed_at").
			WithArgs(messengerID, models.KindMessengerCommission, models.StatusCompleted, 50).
			WillReturnRows(rows)

		entries, err := service.QueryByMessenger(messengerID, models.KindMessengerCommission, models.StatusCompleted, time.Time{}, time.Time{}, 50)
		assert.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Equal(t, "entry2", entries[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, messenger_id, member_id, kind, amount, currency, status, description, created_at, status_changed_at").
			WithArgs(messengerID, 50).
			WillReturnRows(sqlmock.NewRows([]string{"id", "messenger_id", "member_id", "kind", "amount", "currency", "status", "description", "created_at", "status_changed_at"}))

		entries, err := service.QueryByMessenger(messengerID, "", "", time.Time{}, time.Time{}, 50)
		assert.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Len(t, entries, 0)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
