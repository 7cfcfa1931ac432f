package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestRevenueService_TotalEarned(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRevenueService(db, nil)
	messengerID := "messenger1"

	t.Run("sums completed commission credits", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\)").
			WithArgs(messengerID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(123400))

		total, err := service.TotalEarned(messengerID)
		assert.NoError(t, err)
		assert.Equal(t, int64(123400), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no entries means zero", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\)").
			WithArgs(messengerID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))

		total, err := service.TotalEarned(messengerID)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRevenueService_CurrentMonthEarned(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRevenueService(db, nil)
	messengerID := "messenger1"

	t.Run("windows on the current calendar month", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\)").
			WithArgs(messengerID, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(5600))

		total, err := service.CurrentMonthEarned(messengerID)
		assert.NoError(t, err)
		assert.Equal(t, int64(5600), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRevenueService_SystemWideRollup(t *testing.T) {
	t.Run("computes counts per month and caches the result", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		service := NewRevenueService(db, redisClient)

		loc, err := time.LoadLocation("Asia/Jerusalem")
		assert.NoError(t, err)
		now := time.Now().In(loc)
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).Format("2006-01")

		expected := []MonthlyRollup{
			{Month: month, NewDonors: 4, NewMessengers: 2, NewPrayers: 7},
		}
		cached, err := json.Marshal(expected)
		assert.NoError(t, err)

		redisMock.ExpectGet("rollup:1").RedisNil()
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM members").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM messengers").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM prayers").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
		redisMock.ExpectSet("rollup:1", cached, 5*time.Minute).SetVal("OK")

		rollups, err := service.SystemWideRollup(context.Background(), 1)
		assert.NoError(t, err)
		assert.Equal(t, expected, rollups)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("serves from cache without hitting the database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		service := NewRevenueService(db, redisClient)

		expected := []MonthlyRollup{
			{Month: "2026-07", NewDonors: 10, NewMessengers: 3, NewPrayers: 20},
		}
		cached, err := json.Marshal(expected)
		assert.NoError(t, err)

		redisMock.ExpectGet("rollup:1").SetVal(string(cached))

		rollups, err := service.SystemWideRollup(context.Background(), 1)
		assert.NoError(t, err)
		assert.Equal(t, expected, rollups)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}
