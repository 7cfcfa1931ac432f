package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amider/backend/internal/services"
)

type ReferralHandler struct {
	service   *services.ReferralService
	validator *services.ValidationHelper
}

func NewReferralHandler(service *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GenerateQR generates a referral QR code
// @Summary Generate referral QR code
// @Description Generate a QR code for the authenticated messenger's donation link, optionally pre-filled with an amount
// @Tags referrals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=int64} true "Referral QR request"
// @Success 200 {object} object{link=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /referrals/qr [post]
func (h *ReferralHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	messengerID, ok := r.Context().Value("messengerID").(string)
	if !ok || messengerID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount int64 `json:"amount" validate:"gte=0"`
	}

	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	link, qrImage, err := h.service.GenerateReferralQR(r.Context(), messengerID, req.Amount)
	if err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"link":    link,
		"qrImage": qrImage,
	})
}
