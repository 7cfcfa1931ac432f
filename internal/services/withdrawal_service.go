package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/amider/backend/internal/audit"
	"github.com/amider/backend/internal/models"
)

// WithdrawalService drives a withdrawal request from submission through admin
// approval or rejection. States: pending -> completed | failed, both terminal.
// Funds are reserved at submission and either committed (approve) or released
// (reject); a messenger may hold at most one pending request at a time.
type WithdrawalService struct {
	db            *sql.DB
	redis         *redis.Client
	ledger        *LedgerService
	balance       *BalanceService
	payout        *PayoutService
	banks         *BankService
	audit         *audit.Logger
	validator     *ValidationHelper
	minWithdrawal int64
	currency      string
}

func NewWithdrawalService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService, balance *BalanceService, payout *PayoutService, banks *BankService) *WithdrawalService {
	minWithdrawal := int64(5000) // 50 currency units in minor units
	if envMin := os.Getenv("MIN_WITHDRAWAL"); envMin != "" {
		if val, err := strconv.ParseInt(envMin, 10, 64); err == nil {
			minWithdrawal = val
		}
	}
	currency := "ILS"
	if envCurrency := os.Getenv("LEDGER_CURRENCY"); envCurrency != "" {
		currency = envCurrency
	}
	return &WithdrawalService{
		db:            db,
		redis:         redisClient,
		ledger:        ledger,
		balance:       balance,
		payout:        payout,
		banks:         banks,
		audit:         audit.NewLogger(),
		validator:     NewValidationHelper(),
		minWithdrawal: minWithdrawal,
		currency:      currency,
	}
}

// SubmitRequest is the payload for submitting a withdrawal.
type SubmitRequest struct {
	Amount            int64  `json:"amount" validate:"required,gt=0"`
	BankName          string `json:"bankName" validate:"required,max=100"`
	BankBranch        string `json:"bankBranch" validate:"required,max=20"`
	BankAccountNumber string `json:"bankAccountNumber" validate:"required,max=20"`
	BankAccountHolder string `json:"bankAccountHolder" validate:"required,max=140"`
}

// SubmitWithdrawal reserves the funds and creates the pending ledger entry in
// one transaction. The partial unique index on pending withdrawals is the
// backstop against two concurrent submissions slipping past the EXISTS check.
func (s *WithdrawalService) SubmitWithdrawal(messengerID string, amount int64, bank models.BankDetails) (*models.WithdrawalRequest, error) {
	if amount < s.minWithdrawal {
		return nil, fmt.Errorf("%w: minimum is %d", ErrBelowMinimum, s.minWithdrawal)
	}
	if s.banks != nil && !s.banks.IsKnownBank(bank.BankName) {
		return nil, fmt.Errorf("%w: unknown bank %q", ErrValidation, bank.BankName)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var hasPending bool
	err = tx.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM ledger_entries
			WHERE messenger_id = $1 AND kind = 'withdrawal' AND status = 'pending'
		)`, messengerID).Scan(&hasPending)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, ErrDuplicateRequest
	}

	entryID := uuid.New().String()
	if _, err := s.balance.ReserveTx(tx, messengerID, amount, entryID); err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO ledger_entries
		(id, messenger_id, kind, amount, currency, status, description,
		 bank_name, bank_branch, bank_account_number, bank_account_holder,
		 created_at, status_changed_at)
		VALUES ($1, $2, 'withdrawal', $3, $4, 'pending', $5, $6, $7, $8, $9, $10, $11)`,
		entryID, messengerID, amount, s.currency, "withdrawal request",
		bank.BankName, bank.BankBranch, bank.BankAccountNumber, bank.BankAccountHolder,
		now, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateRequest
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogHold("SUBMIT", entryID, messengerID, amount)

	request := &models.WithdrawalRequest{
		LedgerEntry: models.LedgerEntry{
			ID:              entryID,
			MessengerID:     &messengerID,
			Kind:            models.KindWithdrawal,
			Amount:          amount,
			Currency:        s.currency,
			Status:          models.StatusPending,
			Description:     "withdrawal request",
			CreatedAt:       now,
			StatusChangedAt: now,
		},
		BankDetails: bank,
		RequestedAt: now,
	}
	return request, nil
}

// ApproveWithdrawal commits the reservation and marks the entry completed.
// The row lock makes a duplicate admin click lose the pending-only guard and
// come back as ErrInvalidTransition with the balance untouched.
func (s *WithdrawalService) ApproveWithdrawal(requestID, adminID string) (*models.WithdrawalRequest, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	request, err := s.lockWithdrawal(tx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: request %s is %s", ErrInvalidTransition, requestID, request.Status)
	}

	messengerID := *request.MessengerID
	token := &ReservationToken{MessengerID: messengerID, Amount: request.Amount, EntryID: requestID}
	if err := s.balance.CommitTx(tx, token); err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := tx.Exec(`
		UPDATE ledger_entries
		SET status = 'completed', status_changed_at = $1, approved_at = $1, approved_by_admin_id = $2
		WHERE id = $3 AND status = 'pending'`,
		now, adminID, requestID)
	if err != nil {
		return nil, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: request %s", ErrInvalidTransition, requestID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	request.Status = models.StatusCompleted
	request.StatusChangedAt = now
	request.ApprovedAt = &now
	request.ApprovedByAdminID = &adminID

	s.audit.LogTransition(requestID, messengerID, models.StatusPending, models.StatusCompleted)

	// Queue the payout instruction after commit, like any other settlement.
	if err := s.queueForPayout(request); err != nil {
		log.Printf("[WITHDRAWAL] Failed to queue payout for request %s: %v", requestID, err)
	}

	return request, nil
}

// RejectWithdrawal releases the reservation and records the reason. The
// wallet balance is identical before and after a rejected request.
func (s *WithdrawalService) RejectWithdrawal(requestID, reason string) (*models.WithdrawalRequest, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	request, err := s.lockWithdrawal(tx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: request %s is %s", ErrInvalidTransition, requestID, request.Status)
	}

	messengerID := *request.MessengerID
	token := &ReservationToken{MessengerID: messengerID, Amount: request.Amount, EntryID: requestID}
	if err := s.balance.ReleaseTx(tx, token); err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := tx.Exec(`
		UPDATE ledger_entries
		SET status = 'failed', status_changed_at = $1, rejection_reason = $2
		WHERE id = $3 AND status = 'pending'`,
		now, reason, requestID)
	if err != nil {
		return nil, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: request %s", ErrInvalidTransition, requestID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	request.Status = models.StatusFailed
	request.StatusChangedAt = now
	request.RejectionReason = reason

	s.audit.LogTransition(requestID, messengerID, models.StatusPending, models.StatusFailed)
	return request, nil
}

func (s *WithdrawalService) lockWithdrawal(tx *sql.Tx, requestID string) (*models.WithdrawalRequest, error) {
	request := &models.WithdrawalRequest{}
	err := tx.QueryRow(`
		SELECT id, messenger_id, amount, currency, status, description,
		       COALESCE(bank_name, ''), COALESCE(bank_branch, ''),
		       COALESCE(bank_account_number, ''), COALESCE(bank_account_holder, ''),
		       approved_at, approved_by_admin_id, rejection_reason,
		       created_at, status_changed_at
		FROM ledger_entries
		WHERE id = $1 AND kind = 'withdrawal'
		FOR UPDATE`, requestID).Scan(
		&request.ID, &request.MessengerID, &request.Amount, &request.Currency,
		&request.Status, &request.Description,
		&request.BankName, &request.BankBranch,
		&request.BankAccountNumber, &request.BankAccountHolder,
		&request.ApprovedAt, &request.ApprovedByAdminID, &request.RejectionReason,
		&request.CreatedAt, &request.StatusChangedAt,
	)
	if err != nil {
		return nil, err
	}
	request.Kind = models.KindWithdrawal
	request.RequestedAt = request.CreatedAt
	return request, nil
}

func (s *WithdrawalService) fetchWithdrawals(messengerID, status string, limit int) ([]models.WithdrawalRequest, error) {
	query := `
		SELECT id, messenger_id, amount, currency, status, description,
		       COALESCE(bank_name, ''), COALESCE(bank_branch, ''),
		       COALESCE(bank_account_number, ''), COALESCE(bank_account_holder, ''),
		       approved_at, approved_by_admin_id, rejection_reason,
		       created_at, status_changed_at
		FROM ledger_entries
		WHERE kind = 'withdrawal'`
	args := []interface{}{}
	if messengerID != "" {
		args = append(args, messengerID)
		query += fmt.Sprintf(" AND messenger_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []models.WithdrawalRequest{}
	for rows.Next() {
		request := models.WithdrawalRequest{}
		err := rows.Scan(
			&request.ID, &request.MessengerID, &request.Amount, &request.Currency,
			&request.Status, &request.Description,
			&request.BankName, &request.BankBranch,
			&request.BankAccountNumber, &request.BankAccountHolder,
			&request.ApprovedAt, &request.ApprovedByAdminID, &request.RejectionReason,
			&request.CreatedAt, &request.StatusChangedAt,
		)
		if err != nil {
			return nil, err
		}
		request.Kind = models.KindWithdrawal
		request.RequestedAt = request.CreatedAt
		requests = append(requests, request)
	}

	return requests, rows.Err()
}

func (s *WithdrawalService) queueForPayout(request *models.WithdrawalRequest) error {
	if s.redis == nil {
		return nil
	}

	doc, err := s.payout.CreatePacs008(request)
	if err != nil {
		return err
	}
	xmlData, err := s.payout.ConvertToXML(doc)
	if err != nil {
		return err
	}

	return s.redis.RPush(context.Background(), "payout_queue", xmlData).Err()
}

// Submit creates a new withdrawal request
// @Summary Submit a withdrawal request
// @Description Reserve wallet funds and open a withdrawal request pending admin approval
// @Tags withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitRequest true "Withdrawal request"
// @Success 201 {object} models.WithdrawalRequest
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "A pending request already exists"
// @Failure 422 {object} services.ErrorResponse "Below minimum or insufficient balance"
// @Router /withdrawals [post]
func (s *WithdrawalService) Submit(w http.ResponseWriter, r *http.Request) {
	messengerID, ok := r.Context().Value("messengerID").(string)
	if !ok || messengerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req SubmitRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	bank := models.BankDetails{
		BankName:          req.BankName,
		BankBranch:        req.BankBranch,
		BankAccountNumber: req.BankAccountNumber,
		BankAccountHolder: req.BankAccountHolder,
	}

	request, err := s.SubmitWithdrawal(messengerID, req.Amount, bank)
	if err != nil {
		log.Printf("[WITHDRAWAL] Submit failed for messenger %s: %v", messengerID, err)
		SendLedgerError(w, err)
		return
	}

	log.Printf("[WITHDRAWAL] Request %s submitted by messenger %s for %d", request.ID, messengerID, req.Amount)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(request)
}

// Approve settles a pending withdrawal request
// @Summary Approve a withdrawal request
// @Description Commit the reserved funds and mark the request completed
// @Tags withdrawals
// @Produce json
// @Security BearerAuth
// @Param requestId path string true "Withdrawal request ID"
// @Success 200 {object} models.WithdrawalRequest
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "Request already settled"
// @Router /admin/withdrawals/{requestId}/approve [post]
func (s *WithdrawalService) Approve(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value("messengerID").(string)
	requestID := chi.URLParam(r, "requestId")

	request, err := s.ApproveWithdrawal(requestID, adminID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Withdrawal request not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[WITHDRAWAL] Approve failed for request %s: %v", requestID, err)
		SendLedgerError(w, err)
		return
	}

	log.Printf("[WITHDRAWAL] Request %s approved by admin %s", requestID, adminID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

// Reject refuses a pending withdrawal request
// @Summary Reject a withdrawal request
// @Description Release the reserved funds and mark the request failed with a reason
// @Tags withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param requestId path string true "Withdrawal request ID"
// @Param request body object{reason=string} true "Rejection reason"
// @Success 200 {object} models.WithdrawalRequest
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/withdrawals/{requestId}/reject [post]
func (s *WithdrawalService) Reject(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")

	var req struct {
		Reason string `json:"reason"`
	}
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	request, err := s.RejectWithdrawal(requestID, req.Reason)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Withdrawal request not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[WITHDRAWAL] Reject failed for request %s: %v", requestID, err)
		SendLedgerError(w, err)
		return
	}

	log.Printf("[WITHDRAWAL] Request %s rejected: %s", requestID, req.Reason)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

// ListWithdrawals lists withdrawal requests
// @Summary List withdrawal requests
// @Description Get withdrawal requests, optionally filtered by status. Messengers see their own requests; admins see all.
// @Tags withdrawals
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param limit query int false "Number of requests to return (default: 50)"
// @Success 200 {object} object{requests=[]models.WithdrawalRequest,count=int}
// @Failure 500 {object} services.ErrorResponse
// @Router /withdrawals [get]
func (s *WithdrawalService) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	messengerID, ok := r.Context().Value("messengerID").(string)
	if !ok || messengerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	if role, _ := r.Context().Value("role").(string); role == models.RoleAdmin {
		messengerID = ""
	}

	status := r.URL.Query().Get("status")
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	requests, err := s.fetchWithdrawals(messengerID, status, limit)
	if err != nil {
		log.Printf("[WITHDRAWAL] Failed to list requests: %v", err)
		SendErrorResponse(w, "Failed to fetch withdrawal requests", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"requests": requests,
		"count":    len(requests),
	})
}
