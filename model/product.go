package models

import "github.com/shopspring/decimal"

type Product struct {
	ProductID  int64           `json:"product_id"`
	Name       string          `json:"name"`
	CategoryID int64           `json:"category_id"`
	Stock      int             `json:"stock"`
	Price      decimal.Decimal `json:"price"`
}
