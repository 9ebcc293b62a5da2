package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a time-bounded discount. ProductID and CategoryID select what it
// covers; when both are zero the sale covers every product.
type Sale struct {
	SaleID         int64           `json:"sale_id"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	IsPercentage   bool            `json:"is_percentage"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ProductID      int64           `json:"product_id,omitempty"`
	CategoryID     int64           `json:"category_id,omitempty"`
}

// ActiveAt reports whether now falls inside [StartDate, EndDate].
func (s Sale) ActiveAt(now time.Time) bool {
	return !now.Before(s.StartDate) && !now.After(s.EndDate)
}

// Covers reports whether the sale applies to the given product.
func (s Sale) Covers(p Product) bool {
	if s.ProductID == 0 && s.CategoryID == 0 {
		return true
	}
	if s.ProductID != 0 && s.ProductID == p.ProductID {
		return true
	}
	return s.CategoryID != 0 && s.CategoryID == p.CategoryID
}
