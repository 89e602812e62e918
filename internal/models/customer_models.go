package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the monetary account of a user inside the association.
// It shares its primary key with the owning user.
type Customer struct {
	UserID           int64           `json:"user_id" db:"user_id"`
	AccountID        string          `json:"account_id" db:"account_id"` // digits + check letter, e.g. "12345A"
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	RecordedProducts int             `json:"recorded_products" db:"recorded_products"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	User             *User           `json:"user,omitempty"` // For joining with User
}

// AccountDump tracks the warn-then-drain process of a dormant account.
// A row with a nil DumpOperationID is an ongoing dump.
type AccountDump struct {
	ID                int64      `json:"id"`
	CustomerID        int64      `json:"customer_id" db:"customer_id"`
	WarningMailSentAt time.Time  `json:"warning_mail_sent_at" db:"warning_mail_sent_at"`
	WarningMailError  bool       `json:"warning_mail_error" db:"warning_mail_error"`
	DumpOperationID   *int64     `json:"dump_operation_id,omitempty" db:"dump_operation_id"` // the Selling that emptied the account
	DumpOperation     *Selling   `json:"dump_operation,omitempty"`
	Customer          *Customer  `json:"customer,omitempty"`
}
