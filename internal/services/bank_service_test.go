package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBankService_IsKnownBank(t *testing.T) {
	service := NewBankService()

	t.Run("matches by clearing code", func(t *testing.T) {
		assert.True(t, service.IsKnownBank("12"))
		assert.True(t, service.IsKnownBank("10"))
		assert.True(t, service.IsKnownBank("20"))
	})

	t.Run("matches by display name", func(t *testing.T) {
		assert.True(t, service.IsKnownBank("Bank Hapoalim"))
		assert.True(t, service.IsKnownBank("Mizrahi Tefahot Bank"))
	})

	t.Run("rejects unknown banks", func(t *testing.T) {
		assert.False(t, service.IsKnownBank("99"))
		assert.False(t, service.IsKnownBank("Bank of Narnia"))
		assert.False(t, service.IsKnownBank(""))
	})
}

func TestBankService_GetAllBanks(t *testing.T) {
	service := NewBankService()

	req := httptest.NewRequest(http.MethodGet, "/banks", nil)
	w := httptest.NewRecorder()

	service.GetAllBanks(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("Cache-Control"))

	var banks []Bank
	err := json.Unmarshal(w.Body.Bytes(), &banks)
	assert.NoError(t, err)
	assert.NotEmpty(t, banks)

	for _, bank := range banks {
		assert.NotEmpty(t, bank.Code)
		assert.NotEmpty(t, bank.Name)
	}
}
