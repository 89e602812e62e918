package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how money entered or left a customer account.
type PaymentMethod string

const (
	// Refilling payment methods.
	PaymentMethodCheck   PaymentMethod = "CHECK"
	PaymentMethodCash    PaymentMethod = "CASH"
	PaymentMethodCard    PaymentMethod = "CARD"
	PaymentMethodEboutic PaymentMethod = "EBOUTIC"

	// Selling payment methods. PaymentMethodCard is shared.
	PaymentMethodSithAccount PaymentMethod = "SITH_ACCOUNT"
)

// Bank enumerates the banks accepted for cheque refillings.
type Bank string

const (
	BankOther          Bank = "OTHER"
	BankSocieteGen     Bank = "SOCIETE-GENERALE"
	BankBanquePop      Bank = "BANQUE-POPULAIRE"
	BankBNP            Bank = "BNP"
	BankCaisseEpargne  Bank = "CAISSE-EPARGNE"
	BankCIC            Bank = "CIC"
	BankCreditAgricole Bank = "CREDIT-AGRICOLE"
	BankCreditMutuel   Bank = "CREDIT-MUTUEL"
	BankCreditNord     Bank = "CREDIT-DU-NORD"
	BankLaPoste        Bank = "LA-POSTE"
	BankHSBC           Bank = "HSBC"
)

// Refilling is a credit to a customer account, performed by an operator
// during an open permanency. Validated rows are immutable.
type Refilling struct {
	ID            int64           `json:"id"`
	CounterID     int64           `json:"counter_id" db:"counter_id"`
	OperatorID    int64           `json:"operator_id" db:"operator_id"`
	CustomerID    int64           `json:"customer_id" db:"customer_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Date          time.Time       `json:"date" db:"date"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	Bank          Bank            `json:"bank" db:"bank"`
	ChequeNumber  *string         `json:"cheque_number,omitempty" db:"cheque_number"`
	IsValidated   bool            `json:"is_validated" db:"is_validated"`
	OperationID   *int64          `json:"operation_id,omitempty" db:"operation_id"` // accounting mirror
}

// Selling is a debit from a customer account, or an external card charge.
// The label is a snapshot of the product name at sale time; the product
// reference may be nil (account dumps, deleted products).
type Selling struct {
	ID                int64           `json:"id"`
	Label             string          `json:"label" db:"label"`
	ProductID         *int64          `json:"product_id,omitempty" db:"product_id"`
	CounterID         int64           `json:"counter_id" db:"counter_id"`
	ClubID            int64           `json:"club_id" db:"club_id"`
	SellerID          *int64          `json:"seller_id,omitempty" db:"seller_id"`
	CustomerID        *int64          `json:"customer_id,omitempty" db:"customer_id"` // nil for account-less e-shop sales
	UnitPrice         decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity          int             `json:"quantity" db:"quantity"`
	Date              time.Time       `json:"date" db:"date"`
	PaymentMethod     PaymentMethod   `json:"payment_method" db:"payment_method"`
	IsValidated       bool            `json:"is_validated" db:"is_validated"`
	LinkedOperationID *int64          `json:"linked_operation_id,omitempty" db:"linked_operation_id"` // accounting mirror
}

// Total returns unit_price * quantity.
func (s *Selling) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
