package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amider/backend/internal/audit"
	"github.com/amider/backend/internal/models"
)

// LedgerService is the single source of truth for money movement. Rows are
// append-mostly: the only in-place change ever made is the pending -> terminal
// status transition.
type LedgerService struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{
		db:    db,
		audit: audit.NewLogger(),
	}
}

// NewLedgerEntry is the input for recording a financial event.
type NewLedgerEntry struct {
	MessengerID string
	MemberID    string
	Kind        string
	Amount      int64 // minor units, always positive
	Currency    string
	Status      string // pending or completed
	Description string
}

func validKind(kind string) bool {
	switch kind {
	case models.KindMemberPayment, models.KindMessengerCommission,
		models.KindMessengerSubscription, models.KindWithdrawal:
		return true
	}
	return false
}

// Record inserts a ledger entry in its own transaction.
func (s *LedgerService) Record(e *NewLedgerEntry) (*models.LedgerEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.RecordTx(tx, e)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordTx inserts a ledger entry inside the caller's transaction. Callers
// that also touch the wallet balance must do both in the same transaction so
// ledger and balance never diverge.
func (s *LedgerService) RecordTx(tx *sql.Tx, e *NewLedgerEntry) (*models.LedgerEntry, error) {
	if e.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !validKind(e.Kind) {
		return nil, fmt.Errorf("%w: unknown entry kind %q", ErrValidation, e.Kind)
	}
	if e.Currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrValidation)
	}
	if e.Status != models.StatusPending && e.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: entries are recorded as pending or completed", ErrValidation)
	}

	now := time.Now()
	entry := &models.LedgerEntry{
		ID:              uuid.New().String(),
		Kind:            e.Kind,
		Amount:          e.Amount,
		Currency:        e.Currency,
		Status:          e.Status,
		Description:     e.Description,
		CreatedAt:       now,
		StatusChangedAt: now,
	}
	if e.MessengerID != "" {
		entry.MessengerID = &e.MessengerID
	}
	if e.MemberID != "" {
		entry.MemberID = &e.MemberID
	}

	_, err := tx.Exec(`
		INSERT INTO ledger_entries
		(id, messenger_id, member_id, kind, amount, currency, status, description, created_at, status_changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.MessengerID, entry.MemberID, entry.Kind, entry.Amount,
		entry.Currency, entry.Status, entry.Description, entry.CreatedAt, entry.StatusChangedAt)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// TransitionTx moves a pending entry to a terminal status. The UPDATE is
// guarded on status = 'pending'; zero affected rows on an existing entry means
// it already reached a terminal status and stays untouched.
func (s *LedgerService) TransitionTx(tx *sql.Tx, entryID, newStatus, note string) (*models.LedgerEntry, error) {
	if newStatus != models.StatusCompleted && newStatus != models.StatusFailed && newStatus != models.StatusRefunded {
		return nil, fmt.Errorf("%w: %q is not a valid target status", ErrValidation, newStatus)
	}

	result, err := tx.Exec(`
		UPDATE ledger_entries
		SET status = $1, status_changed_at = $2,
		    description = CASE WHEN $3 <> '' THEN $3 ELSE description END
		WHERE id = $4 AND status = 'pending'`,
		newStatus, time.Now(), note, entryID)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		var current string
		if err := tx.QueryRow(`SELECT status FROM ledger_entries WHERE id = $1`, entryID).Scan(&current); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: entry %s is %s", ErrInvalidTransition, entryID, current)
	}

	entry, err := s.getEntryTx(tx, entryID)
	if err != nil {
		return nil, err
	}

	messengerID := ""
	if entry.MessengerID != nil {
		messengerID = *entry.MessengerID
	}
	s.audit.LogTransition(entry.ID, messengerID, models.StatusPending, newStatus)
	return entry, nil
}

// Transition is TransitionTx in its own transaction.
func (s *LedgerService) Transition(entryID, newStatus, note string) (*models.LedgerEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.TransitionTx(tx, entryID, newStatus, note)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *LedgerService) getEntryTx(tx *sql.Tx, entryID string) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{}
	err := tx.QueryRow(`
		SELECT id, messenger_id, member_id, kind, amount, currency, status, description, created_at, status_changed_at
		FROM ledger_entries
		WHERE id = $1`, entryID).Scan(
		&entry.ID, &entry.MessengerID, &entry.MemberID, &entry.Kind, &entry.Amount,
		&entry.Currency, &entry.Status, &entry.Description, &entry.CreatedAt, &entry.StatusChangedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetEntry fetches a single entry by ID.
func (s *LedgerService) GetEntry(entryID string) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{}
	err := s.db.QueryRow(`
		SELECT id, messenger_id, member_id, kind, amount, currency, status, description, created_at, status_changed_at
		FROM ledger_entries
		WHERE id = $1`, entryID).Scan(
		&entry.ID, &entry.MessengerID, &entry.MemberID, &entry.Kind, &entry.Amount,
		&entry.Currency, &entry.Status, &entry.Description, &entry.CreatedAt, &entry.StatusChangedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// QueryByMessenger returns a messenger's entries, newest first, with optional
// kind, status and date-range filters.
func (s *LedgerService) QueryByMessenger(messengerID, kind, status string, from, to time.Time, limit int) ([]models.LedgerEntry, error) {
	conditions := []string{"messenger_id = $1"}
	args := []interface{}{messengerID}
	argIndex := 2

	if kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIndex))
		args = append(args, kind)
		argIndex++
	}

	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, status)
		argIndex++
	}

	if !from.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, from)
		argIndex++
	}

	if !to.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIndex))
		args = append(args, to)
		argIndex++
	}

	query := `
		SELECT id, messenger_id, member_id, kind, amount, currency, status, description, created_at, status_changed_at
		FROM ledger_entries
		WHERE ` + strings.Join(conditions, " AND ")
	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var entry models.LedgerEntry
		err := rows.Scan(
			&entry.ID, &entry.MessengerID, &entry.MemberID, &entry.Kind, &entry.Amount,
			&entry.Currency, &entry.Status, &entry.Description, &entry.CreatedAt, &entry.StatusChangedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// ListEntries returns the authenticated messenger's payment history
// @Summary List ledger entries
// @Description Get the authenticated messenger's ledger entries, newest first
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Param kind query string false "Filter by entry kind"
// @Param status query string false "Filter by status"
// @Param from query string false "Start of date range (RFC3339)"
// @Param to query string false "End of date range (RFC3339)"
// @Param limit query int false "Number of entries to return (default: 50, max: 200)"
// @Success 200 {object} object{entries=[]models.LedgerEntry,count=int}
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /ledger/entries [get]
func (s *LedgerService) ListEntries(w http.ResponseWriter, r *http.Request) {
	messengerID, ok := r.Context().Value("messengerID").(string)
	if !ok || messengerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	kind := r.URL.Query().Get("kind")
	status := r.URL.Query().Get("status")

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	var from, to time.Time
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		if t, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = t
		}
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		if t, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = t
		}
	}

	entries, err := s.QueryByMessenger(messengerID, kind, status, from, to, limit)
	if err != nil {
		log.Printf("[LEDGER] Failed to fetch entries for messenger %s: %v", messengerID, err)
		SendErrorResponse(w, "Failed to fetch ledger entries", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
