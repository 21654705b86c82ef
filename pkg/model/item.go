package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one immutable line of a basket's ledger. Price is per unit.
type Item struct {
	ID         int64           `json:"id"`
	BasketCode string          `json:"basket_code"`
	Product    string          `json:"product"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	AddedBy    string          `json:"added_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LineTotal is price times quantity, unrounded.
func (i *Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewItem is the body of an add request. Price is a pointer so a missing
// price can be told apart from a zero one. AddedBy must name a participant,
// otherwise the item could never be attributed in totals.
type NewItem struct {
	Product  string           `json:"product" validate:"required,max=200"`
	Price    *decimal.Decimal `json:"price" validate:"required"`
	Quantity int              `json:"quantity" validate:"min=1"`
	AddedBy  string           `json:"added_by" validate:"required,max=100"`
}

type ItemList struct {
	Code  string  `json:"basket_code"`
	Items []*Item `json:"items"`
}
