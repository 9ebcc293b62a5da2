package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Cart maps product ids to held quantities. Every quantity is > 0.
type Cart struct {
	CartID     int64           `json:"cart_id"`
	UserID     int64           `json:"user_id"`
	Items      map[int64]int   `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// ProductIDs returns the item keys in ascending order.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Items))
	for id := range c.Items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone returns a deep copy so callers never share the item map.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make(map[int64]int, len(c.Items))
	for id, qty := range c.Items {
		out.Items[id] = qty
	}
	return out
}

// CartLine is one priced row of a cart view.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}
