package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CounterType discriminates the three kinds of sales stations.
type CounterType string

const (
	CounterTypeBar     CounterType = "BAR"
	CounterTypeOffice  CounterType = "OFFICE"
	CounterTypeEboutic CounterType = "EBOUTIC"
)

// Club represents a club of the association. Counters and products belong
// to clubs, and sellings are accounted on the owning club.
type Club struct {
	ID       int64  `json:"id"`
	Name     string `json:"name" db:"name"`
	UnixName string `json:"unix_name" db:"unix_name"`
}

// ProductType categorizes products. Read-only to the checkout path.
type ProductType struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name" db:"name" binding:"required"`
	Description  string  `json:"description" db:"description"`
	Comment      string  `json:"comment" db:"comment"`
	Icon         *string `json:"icon,omitempty" db:"icon"`
	DisplayOrder int     `json:"display_order" db:"display_order"`
}

// Product represents a product, with all its related information.
type Product struct {
	ID                  int64           `json:"id"`
	Code                string          `json:"code" db:"code"` // short code, <= 16 chars, optional
	Name                string          `json:"name" db:"name" binding:"required"`
	Description         string          `json:"description" db:"description"`
	ProductTypeID       *int64          `json:"product_type_id,omitempty" db:"product_type_id"`
	ParentProductID     *int64          `json:"parent_product_id,omitempty" db:"parent_product_id"` // bundle/linked product
	ClubID              int64           `json:"club_id" db:"club_id" binding:"required"`
	PurchasePrice       decimal.Decimal `json:"purchase_price" db:"purchase_price"`
	SellingPrice        decimal.Decimal `json:"selling_price" db:"selling_price"`
	SpecialSellingPrice decimal.Decimal `json:"special_selling_price" db:"special_selling_price"` // price for barmen on shift
	VATRate             decimal.Decimal `json:"vat_rate" db:"vat_rate"`
	Icon                *string         `json:"icon,omitempty" db:"icon"`
	LimitAge            int             `json:"limit_age" db:"limit_age"` // 0 = no limit
	Tray                bool            `json:"tray" db:"tray"`
	Archived            bool            `json:"archived" db:"archived"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
	BuyingGroupIDs      []int64         `json:"buying_group_ids,omitempty"` // empty set = public
	ProductType         *ProductType    `json:"product_type,omitempty"`     // For joining with ProductType
}

// Counter represents a sales station (bar, office or the e-shop).
type Counter struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name" db:"name" binding:"required"`
	ClubID    int64       `json:"club_id" db:"club_id" binding:"required"`
	Type      CounterType `json:"type" db:"type" binding:"required"`
	Token     *string     `json:"-" db:"token"` // login token of physical counters
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
	ProductIDs []int64    `json:"product_ids,omitempty"` // products sold at this counter
	SellerIDs  []int64    `json:"seller_ids,omitempty"`  // users allowed to hold a permanency
	Club       *Club      `json:"club,omitempty"`
}

// SellsProduct reports whether the product is in the counter's catalogue.
func (c *Counter) SellsProduct(productID int64) bool {
	for _, id := range c.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// HasSeller reports whether the user is in the counter's seller list.
func (c *Counter) HasSeller(userID int64) bool {
	for _, id := range c.SellerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
