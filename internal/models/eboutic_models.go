package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Basket is the persisted e-shop cart. It survives the bank gateway
// redirect; the Consumed flag is the idempotency barrier of the signed
// callback.
type Basket struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id" db:"user_id"`
	MerchantRef string       `json:"merchant_ref" db:"merchant_ref"`
	Date        time.Time    `json:"date" db:"date"`
	Consumed    bool         `json:"consumed" db:"consumed"`
	Items       []BasketItem `json:"items"`
}

// Total returns the sum of quantity * unit price over the basket items.
func (b *Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.ProductUnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// TotalCents returns the basket total in integer cents, as expected on the
// bank gateway wire.
func (b *Basket) TotalCents() int64 {
	return b.Total().Mul(decimal.NewFromInt(100)).IntPart()
}

// BasketItem is one line of a persisted basket. Product name and unit price
// are snapshots taken at add-time.
type BasketItem struct {
	ID               int64           `json:"id"`
	BasketID         int64           `json:"basket_id" db:"basket_id"`
	ProductID        int64           `json:"product_id" db:"product_id"`
	ProductName      string          `json:"product_name" db:"product_name"`
	ProductTypeID    *int64          `json:"product_type_id,omitempty" db:"product_type_id"`
	ProductUnitPrice decimal.Decimal `json:"product_unit_price" db:"product_unit_price"`
	Quantity         int             `json:"quantity" db:"quantity"`
}
