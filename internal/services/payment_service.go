package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amider/backend/internal/audit"
	"github.com/amider/backend/internal/models"
)

// Payment event kinds accepted on the payment-completed endpoint.
const (
	PaymentOneTime         = "one_time"
	PaymentMonthly         = "monthly"
	PaymentSubscriptionFee = "subscription_fee"
)

// PaymentService receives settled donor payments from the external payment
// collaborator, records them, and applies the referring messenger's
// commission to the wallet in the same database transaction.
type PaymentService struct {
	db        *sql.DB
	ledger    *LedgerService
	balance   *BalanceService
	audit     *audit.Logger
	validator *ValidationHelper
}

func NewPaymentService(db *sql.DB, ledger *LedgerService, balance *BalanceService) *PaymentService {
	return &PaymentService{
		db:        db,
		ledger:    ledger,
		balance:   balance,
		audit:     audit.NewLogger(),
		validator: NewValidationHelper(),
	}
}

// PaymentCompletedEvent is the inbound payload posted when a donor payment
// settles on the external payment channel.
type PaymentCompletedEvent struct {
	MessengerID string `json:"messengerId" validate:"required"`
	MemberID    string `json:"memberId"`
	Amount      int64  `json:"amount" validate:"required,gt=0"` // minor units
	Kind        string `json:"kind" validate:"required,oneof=one_time monthly subscription_fee"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Description string `json:"description" validate:"max=200"`
}

// commissionAmount computes the commission on a payment in integer minor
// units. Rates are hundredths of a percent; rounding is half-up to the
// smallest currency unit.
func commissionAmount(amount, rate int64) int64 {
	return (amount*rate + 5000) / 10000
}

// ProcessPayment records the member payment and the derived commission credit
// atomically. Both entries land completed because the external channel only
// reports settled payments.
func (s *PaymentService) ProcessPayment(event *PaymentCompletedEvent) (*models.LedgerEntry, *models.LedgerEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var rateOneTime, rateMonthly int64
	var isActive bool
	err = tx.QueryRow(`
		SELECT commission_rate_one_time, commission_rate_monthly, is_active
		FROM messenger_accounts
		WHERE messenger_id = $1`, event.MessengerID).Scan(&rateOneTime, &rateMonthly, &isActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("%w: no account for messenger %s", ErrValidation, event.MessengerID)
		}
		return nil, nil, err
	}
	if !isActive {
		return nil, nil, fmt.Errorf("%w: messenger %s is not active", ErrValidation, event.MessengerID)
	}

	payment, err := s.ledger.RecordTx(tx, &NewLedgerEntry{
		MessengerID: event.MessengerID,
		MemberID:    event.MemberID,
		Kind:        models.KindMemberPayment,
		Amount:      event.Amount,
		Currency:    event.Currency,
		Status:      models.StatusCompleted,
		Description: event.Description,
	})
	if err != nil {
		return nil, nil, err
	}

	rate := rateOneTime
	if event.Kind == PaymentMonthly {
		rate = rateMonthly
	}

	var commission *models.LedgerEntry
	if amount := commissionAmount(event.Amount, rate); amount > 0 {
		commission, err = s.ledger.RecordTx(tx, &NewLedgerEntry{
			MessengerID: event.MessengerID,
			MemberID:    event.MemberID,
			Kind:        models.KindMessengerCommission,
			Amount:      amount,
			Currency:    event.Currency,
			Status:      models.StatusCompleted,
			Description: fmt.Sprintf("commission on payment %s", payment.ID),
		})
		if err != nil {
			return nil, nil, err
		}

		if err := s.balance.CreditTx(tx, event.MessengerID, amount); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	if commission != nil {
		s.audit.LogCredit(commission.ID, event.MessengerID, commission.Amount)
	}
	return payment, commission, nil
}

// ProcessSubscriptionFee records a platform fee and debits the wallet.
func (s *PaymentService) ProcessSubscriptionFee(event *PaymentCompletedEvent) (*models.LedgerEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.ledger.RecordTx(tx, &NewLedgerEntry{
		MessengerID: event.MessengerID,
		Kind:        models.KindMessengerSubscription,
		Amount:      event.Amount,
		Currency:    event.Currency,
		Status:      models.StatusCompleted,
		Description: event.Description,
	})
	if err != nil {
		return nil, err
	}

	if err := s.balance.DebitTx(tx, event.MessengerID, event.Amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogDebit(entry.ID, event.MessengerID, entry.Amount)
	return entry, nil
}

// HandlePaymentCompleted records a settled payment event
// @Summary Record a settled payment
// @Description Record a donor payment reported by the payment channel and credit the referring messenger's commission
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body PaymentCompletedEvent true "Payment completed event"
// @Success 201 {object} object{payment=models.LedgerEntry,commission=models.LedgerEntry}
// @Failure 400 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /payments/completed [post]
func (s *PaymentService) HandlePaymentCompleted(w http.ResponseWriter, r *http.Request) {
	var event PaymentCompletedEvent
	if err := DecodeJSONBody(w, r, &event); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&event); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if event.Kind == PaymentSubscriptionFee {
		entry, err := s.ProcessSubscriptionFee(&event)
		if err != nil {
			log.Printf("[PAYMENT] Subscription fee failed for messenger %s: %v", event.MessengerID, err)
			SendLedgerError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{"fee": entry})
		return
	}

	payment, commission, err := s.ProcessPayment(&event)
	if err != nil {
		log.Printf("[PAYMENT] Processing failed for messenger %s: %v", event.MessengerID, err)
		SendLedgerError(w, err)
		return
	}

	log.Printf("[PAYMENT] Recorded payment %s for messenger %s", payment.ID, event.MessengerID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"payment":    payment,
		"commission": commission,
	})
}

// SettleEntry transitions a pending non-withdrawal entry
// @Summary Transition a ledger entry
// @Description Move a pending ledger entry to completed, failed or refunded. Completing a commission entry credits the wallet in the same transaction. Withdrawal entries are settled through the withdrawal endpoints.
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param entryId path string true "Ledger entry ID"
// @Param request body object{status=string,note=string} true "Target status"
// @Success 200 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/ledger/{entryId}/status [post]
func (s *PaymentService) SettleEntry(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")

	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	entry, err := s.settleEntry(entryID, req.Status, req.Note)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Entry not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[PAYMENT] Settle failed for entry %s: %v", entryID, err)
		SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// settleEntry couples the status transition with its balance side effect so
// ledger and wallet move together or not at all.
func (s *PaymentService) settleEntry(entryID, status, note string) (*models.LedgerEntry, error) {
	existing, err := s.ledger.GetEntry(entryID)
	if err != nil {
		return nil, err
	}
	if existing.Kind == models.KindWithdrawal {
		return nil, fmt.Errorf("%w: withdrawal entries are settled through the withdrawal workflow", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.ledger.TransitionTx(tx, entryID, status, note)
	if err != nil {
		return nil, err
	}

	if status == models.StatusCompleted && entry.MessengerID != nil {
		switch entry.Kind {
		case models.KindMessengerCommission:
			if err := s.balance.CreditTx(tx, *entry.MessengerID, entry.Amount); err != nil {
				return nil, err
			}
		case models.KindMessengerSubscription:
			if err := s.balance.DebitTx(tx, *entry.MessengerID, entry.Amount); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return entry, nil
}
