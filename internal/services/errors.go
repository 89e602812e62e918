package services

import (
	"errors"
	"fmt"
)

// Shared error kinds of the POS engine. Handlers translate these into
// HTTP responses; none of them ever leaves a partially committed
// transaction behind.
var (
	ErrNotAuthenticated      = errors.New("caller is not authenticated")
	ErrNotAuthorized         = errors.New("caller is not allowed at this counter")
	ErrPermanencyClosed      = errors.New("seller has no open permanency at this counter")
	ErrPermanencyAlreadyOpen = errors.New("seller already has an open permanency")
	ErrProductNotSellable    = errors.New("product cannot be sold")
	ErrInsufficientFunds     = errors.New("not enough money on the customer account")
	ErrInvalidBasket         = errors.New("invalid basket")
	ErrBasketExpired         = errors.New("basket is older than the allowed TTL")
	ErrBasketAlreadyConsumed = errors.New("basket has already been paid")
	ErrInvalidSignature      = errors.New("bank callback signature verification failed")
	ErrPaymentRefused        = errors.New("payment refused by the bank gateway")
	ErrAccountingClosed      = errors.New("general journal is closed")
	ErrCustomerNotFound      = errors.New("customer account not found")
	ErrValidation            = errors.New("validation failed")
)

// SellabilityReason tells why a product was refused at checkout.
type SellabilityReason string

const (
	ReasonArchived     SellabilityReason = "archived"
	ReasonNotOnCounter SellabilityReason = "not_on_counter"
	ReasonAge          SellabilityReason = "age"
	ReasonGroup        SellabilityReason = "group"
)

// NotSellableError carries the offending product and the refusal reason.
// It unwraps to ErrProductNotSellable.
type NotSellableError struct {
	ProductID   int64
	ProductName string
	Reason      SellabilityReason
}

func (e *NotSellableError) Error() string {
	return fmt.Sprintf("product %q (id %d) cannot be sold: %s", e.ProductName, e.ProductID, e.Reason)
}

func (e *NotSellableError) Unwrap() error {
	return ErrProductNotSellable
}
