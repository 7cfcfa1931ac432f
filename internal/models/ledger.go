package models

import (
	"time"
)

// Ledger entry kinds. Direction is a property of the kind: commission credits
// increase the wallet, withdrawals and subscription fees decrease it. Amounts
// are always stored positive, in minor units (agorot).
const (
	KindMemberPayment         = "member_payment"
	KindMessengerCommission   = "messenger_commission"
	KindMessengerSubscription = "messenger_subscription_fee"
	KindWithdrawal            = "withdrawal"
)

// Ledger entry statuses. completed, failed and refunded are terminal.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// LedgerEntry is a single financial event. Entries are append-only; once a
// terminal status is reached the row never changes again.
type LedgerEntry struct {
	ID              string    `json:"id" db:"id"`
	MessengerID     *string   `json:"messengerId" db:"messenger_id"`
	MemberID        *string   `json:"memberId,omitempty" db:"member_id"`
	Kind            string    `json:"kind" db:"kind"`
	Amount          int64     `json:"amount" db:"amount"` // minor units
	Currency        string    `json:"currency" db:"currency"`
	Status          string    `json:"status" db:"status"`
	Description     string    `json:"description,omitempty" db:"description"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	StatusChangedAt time.Time `json:"statusChangedAt" db:"status_changed_at"`
}

// IsTerminal reports whether the entry can no longer change status.
func (e *LedgerEntry) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed || e.Status == StatusRefunded
}

// BankDetails is the payout destination a messenger supplies when requesting
// a withdrawal. It is snapshotted onto the ledger entry at request time and
// immutable afterward; editing a messenger's bank profile never rewrites
// past requests.
type BankDetails struct {
	BankName          string `json:"bankName" validate:"required,max=100"`
	BankBranch        string `json:"bankBranch" validate:"required,max=20"`
	BankAccountNumber string `json:"bankAccountNumber" validate:"required,max=20"`
	BankAccountHolder string `json:"bankAccountHolder" validate:"required,max=140"`
}

// WithdrawalRequest is a ledger entry of kind withdrawal together with the
// bank snapshot and the approval trail.
type WithdrawalRequest struct {
	LedgerEntry
	BankDetails
	RequestedAt       time.Time  `json:"requestedAt" db:"requested_at"`
	ApprovedAt        *time.Time `json:"approvedAt,omitempty" db:"approved_at"`
	ApprovedByAdminID *string    `json:"approvedByAdminId,omitempty" db:"approved_by_admin_id"`
	RejectionReason   string     `json:"rejectionReason,omitempty" db:"rejection_reason"`
}

// MessengerAccount holds the cached wallet state for one messenger.
// Invariant: balance equals completed commission credits minus completed
// withdrawal/subscription debits; reserved is the portion earmarked by a
// pending withdrawal. Commission rates are stored in hundredths of a percent
// (1667 = 16.67%).
type MessengerAccount struct {
	MessengerID           string    `json:"messengerId" db:"messenger_id"`
	Balance               int64     `json:"balance" db:"balance"`
	Reserved              int64     `json:"reserved" db:"reserved"`
	CommissionRateOneTime int64     `json:"commissionRateOneTime" db:"commission_rate_one_time"`
	CommissionRateMonthly int64     `json:"commissionRateMonthly" db:"commission_rate_monthly"`
	IsActive              bool      `json:"isActive" db:"is_active"`
	UpdatedAt             time.Time `json:"updatedAt" db:"updated_at"`
}

// Spendable is the balance a new reservation may draw on.
func (a *MessengerAccount) Spendable() int64 {
	return a.Balance - a.Reserved
}
