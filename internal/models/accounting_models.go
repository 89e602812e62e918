package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationTargetType discriminates what an accounting operation is about.
type OperationTargetType string

const (
	OperationTargetUser    OperationTargetType = "USER"
	OperationTargetClub    OperationTargetType = "CLUB"
	OperationTargetAccount OperationTargetType = "ACCOUNT"
	OperationTargetCompany OperationTargetType = "COMPANY"
	OperationTargetOther   OperationTargetType = "OTHER"
)

// OperationMode enumerates how an accounting operation was settled.
type OperationMode string

const (
	OperationModeCheque   OperationMode = "CHEQUE"
	OperationModeCash     OperationMode = "CASH"
	OperationModeTransfer OperationMode = "TRANSFERT"
	OperationModeCard     OperationMode = "CARD"
)

// GeneralJournal is an accounting period of a club. Once closed
// (EndDate set), no new operations may be inserted.
type GeneralJournal struct {
	ID              int64           `json:"id"`
	ClubID          int64           `json:"club_id" db:"club_id"`
	Name            string          `json:"name" db:"name" binding:"required"`
	StartDate       time.Time       `json:"start_date" db:"start_date"`
	EndDate         *time.Time      `json:"end_date,omitempty" db:"end_date"`
	Closed          bool            `json:"closed" db:"closed"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`                     // sum of credit operations
	EffectiveAmount decimal.Decimal `json:"effective_amount" db:"effective_amount"` // sum of done credit operations minus done debits
}

// Operation is one double-entry bookkeeping line of a journal.
// Number is contiguous per journal and (number, journal) is unique.
// The debit-credit pair is modelled by LinkedOperationID, set by a
// post-insert UPDATE to avoid an insertion cycle.
type Operation struct {
	ID                int64               `json:"id"`
	JournalID         int64               `json:"journal_id" db:"journal_id"`
	Number            int                 `json:"number" db:"number"`
	Date              time.Time           `json:"date" db:"date"`
	Amount            decimal.Decimal     `json:"amount" db:"amount"`
	Remark            string              `json:"remark" db:"remark"`
	Mode              OperationMode       `json:"mode" db:"mode"`
	ChequeNumber      *string             `json:"cheque_number,omitempty" db:"cheque_number"`
	IsCredit          bool                `json:"is_credit" db:"is_credit"`
	Done              bool                `json:"done" db:"done"`
	TargetType        OperationTargetType `json:"target_type" db:"target_type"`
	TargetID          *int64              `json:"target_id,omitempty" db:"target_id"`
	TargetLabel       string              `json:"target_label" db:"target_label"` // denormalised, required when target_type = OTHER
	LinkedOperationID *int64              `json:"linked_operation_id,omitempty" db:"linked_operation_id"`
}
