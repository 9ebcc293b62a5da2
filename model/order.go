package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the priced snapshot of a cart taken at checkout.
type Order struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	UserID    int64           `json:"user_id"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
