package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/amider/backend/internal/audit"
	"github.com/amider/backend/internal/models"
)

// BalanceService is the only component allowed to touch walletBalance and the
// reserved column. Every mutation is a single conditional UPDATE checked by
// affected-row count, so no caller can read a balance and write a stale value
// back in a second step.
type BalanceService struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewBalanceService(db *sql.DB) *BalanceService {
	return &BalanceService{
		db:    db,
		audit: audit.NewLogger(),
	}
}

// ReservationToken identifies funds earmarked for one pending withdrawal.
// Commit and Release both consume it; neither may be called twice for the
// same token because the underlying entry transition is pending-only.
type ReservationToken struct {
	MessengerID string
	Amount      int64
	EntryID     string
}

// GetAccount reads the cached wallet state for one messenger.
func (s *BalanceService) GetAccount(messengerID string) (*models.MessengerAccount, error) {
	account := &models.MessengerAccount{}
	err := s.db.QueryRow(`
		SELECT messenger_id, balance, reserved, commission_rate_one_time, commission_rate_monthly, is_active, updated_at
		FROM messenger_accounts
		WHERE messenger_id = $1`, messengerID).Scan(
		&account.MessengerID, &account.Balance, &account.Reserved,
		&account.CommissionRateOneTime, &account.CommissionRateMonthly,
		&account.IsActive, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CreditTx increments a messenger's balance when a commission entry completes.
// Credits are commutative so this needs no guard beyond atomicity.
func (s *BalanceService) CreditTx(tx *sql.Tx, messengerID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}

	result, err := tx.Exec(`
		UPDATE messenger_accounts
		SET balance = balance + $1, updated_at = $2
		WHERE messenger_id = $3 AND is_active`,
		amount, time.Now(), messengerID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no active account for messenger %s", messengerID)
	}

	return nil
}

// DebitTx decrements the spendable balance directly, used for subscription
// fees. The guard refuses to dip below reserved funds.
func (s *BalanceService) DebitTx(tx *sql.Tx, messengerID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit amount must be positive", ErrValidation)
	}

	result, err := tx.Exec(`
		UPDATE messenger_accounts
		SET balance = balance - $1, updated_at = $2
		WHERE messenger_id = $3 AND is_active AND balance - reserved >= $1`,
		amount, time.Now(), messengerID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: debit of %d exceeds spendable balance", ErrInsufficientBalance, amount)
	}

	return nil
}

// ReserveTx earmarks funds for a withdrawal. The balance itself is not
// decremented yet; the check and the earmark happen in one UPDATE so two
// concurrent reservations can never both pass against the same funds.
func (s *BalanceService) ReserveTx(tx *sql.Tx, messengerID string, amount int64, entryID string) (*ReservationToken, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: reserve amount must be positive", ErrValidation)
	}

	result, err := tx.Exec(`
		UPDATE messenger_accounts
		SET reserved = reserved + $1, updated_at = $2
		WHERE messenger_id = $3 AND is_active AND balance - reserved >= $1`,
		amount, time.Now(), messengerID)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: cannot reserve %d", ErrInsufficientBalance, amount)
	}

	s.audit.LogHold("RESERVE", entryID, messengerID, amount)
	return &ReservationToken{MessengerID: messengerID, Amount: amount, EntryID: entryID}, nil
}

// CommitTx settles a reservation: the earmarked funds leave the wallet.
func (s *BalanceService) CommitTx(tx *sql.Tx, token *ReservationToken) error {
	result, err := tx.Exec(`
		UPDATE messenger_accounts
		SET balance = balance - $1, reserved = reserved - $1, updated_at = $2
		WHERE messenger_id = $3 AND reserved >= $1`,
		token.Amount, time.Now(), token.MessengerID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no reservation of %d held for messenger %s", token.Amount, token.MessengerID)
	}

	s.audit.LogHold("COMMIT", token.EntryID, token.MessengerID, token.Amount)
	return nil
}

// ReleaseTx cancels a reservation with no balance change.
func (s *BalanceService) ReleaseTx(tx *sql.Tx, token *ReservationToken) error {
	result, err := tx.Exec(`
		UPDATE messenger_accounts
		SET reserved = reserved - $1, updated_at = $2
		WHERE messenger_id = $3 AND reserved >= $1`,
		token.Amount, time.Now(), token.MessengerID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no reservation of %d held for messenger %s", token.Amount, token.MessengerID)
	}

	s.audit.LogHold("RELEASE", token.EntryID, token.MessengerID, token.Amount)
	return nil
}

// GetBalance returns the authenticated messenger's wallet state
// @Summary Get wallet balance
// @Description Retrieve the authenticated messenger's balance, reserved funds and spendable amount
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{balance=int64,reserved=int64,spendable=int64}
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /wallet [get]
func (s *BalanceService) GetBalance(w http.ResponseWriter, r *http.Request) {
	messengerID, ok := r.Context().Value("messengerID").(string)
	if !ok || messengerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	account, err := s.GetAccount(messengerID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[BALANCE] Failed to fetch account for messenger %s: %v", messengerID, err)
			SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"messengerId": account.MessengerID,
		"balance":     account.Balance,
		"reserved":    account.Reserved,
		"spendable":   account.Spendable(),
		"currency":    "ILS",
	})
}
