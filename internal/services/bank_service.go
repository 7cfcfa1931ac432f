package services

import (
	"encoding/json"
	"net/http"
)

type Bank struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Bank of Israel clearing codes. Withdrawal bank details are validated
// against this list before a request is accepted.
var israeliBanks = []Bank{
	{Code: "10", Name: "Bank Leumi"},
	{Code: "11", Name: "Israel Discount Bank"},
	{Code: "12", Name: "Bank Hapoalim"},
	{Code: "13", Name: "Bank Igud"},
	{Code: "14", Name: "Bank Otsar Ha-Hayal"},
	{Code: "17", Name: "Mercantile Discount Bank"},
	{Code: "20", Name: "Mizrahi Tefahot Bank"},
	{Code: "26", Name: "UBank"},
	{Code: "31", Name: "First International Bank of Israel"},
	{Code: "46", Name: "Bank Masad"},
	{Code: "52", Name: "Poaley Agudat Israel Bank"},
	{Code: "54", Name: "Bank of Jerusalem"},
	{Code: "68", Name: "Bank Muzar (Dexia)"},
	{Code: "04", Name: "Bank Yahav"},
	{Code: "09", Name: "Israel Post Bank"},
	{Code: "18", Name: "One Zero Digital Bank"},
}

type BankService struct{}

func NewBankService() *BankService {
	return &BankService{}
}

// IsKnownBank reports whether the value names a supported bank, by clearing
// code or by display name.
func (bs *BankService) IsKnownBank(value string) bool {
	for _, bank := range israeliBanks {
		if bank.Code == value || bank.Name == value {
			return true
		}
	}
	return false
}

// GetAllBanks lists the supported banks
// @Summary List banks
// @Description List the Israeli banks accepted for withdrawal bank details
// @Tags banks
// @Produce json
// @Success 200 {array} services.Bank
// @Router /banks [get]
func (bs *BankService) GetAllBanks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	json.NewEncoder(w).Encode(israeliBanks)
}
