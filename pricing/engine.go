// Package pricing computes discounted unit prices and cart totals.
//
// Sales that cover a product are applied in ascending sale id. Each
// percentage sale multiplies the running price by (100-pct)/100, each flat
// sale subtracts its amount, and the running price is clamped at zero after
// every step. The final unit price is rounded to cents.
package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	models "storefront/model"
)

var hundred = decimal.NewFromInt(100)

// SaleSource is the read side of the sale registry.
type SaleSource interface {
	GetAll() []models.Sale
}

// Resolver looks up the live product record for an id.
type Resolver func(productID int64) (models.Product, bool)

type Engine struct {
	sales SaleSource
}

func NewEngine(sales SaleSource) *Engine {
	return &Engine{sales: sales}
}

// ActiveSales returns the sales covering p at now, in application order.
func (e *Engine) ActiveSales(p models.Product, now time.Time) []models.Sale {
	var out []models.Sale
	for _, s := range e.sales.GetAll() {
		if s.ActiveAt(now) && s.Covers(p) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaleID < out[j].SaleID })
	return out
}

func (e *Engine) UnitPrice(p models.Product, now time.Time) decimal.Decimal {
	return Apply(p.Price, e.ActiveSales(p, now))
}

// Apply compounds the given sales over base in slice order.
func Apply(base decimal.Decimal, sales []models.Sale) decimal.Decimal {
	price := base
	for _, s := range sales {
		if s.IsPercentage {
			price = price.Mul(hundred.Sub(s.DiscountAmount)).Div(hundred)
		} else {
			price = price.Sub(s.DiscountAmount)
		}
		if price.IsNegative() {
			price = decimal.Zero
		}
	}
	return price.Round(2)
}

// CartTotal sums unit price times quantity over the cart's items. A product
// the resolver cannot find is an error: carts only hold reserved products.
func (e *Engine) CartTotal(c models.Cart, resolve Resolver, now time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, id := range c.ProductIDs() {
		p, ok := resolve(id)
		if !ok {
			return decimal.Zero, fmt.Errorf("product %d not found", id)
		}
		total = total.Add(e.UnitPrice(p, now).Mul(decimal.NewFromInt(int64(c.Items[id]))))
	}
	return total, nil
}

// Lines prices each cart item for display.
func (e *Engine) Lines(c models.Cart, resolve Resolver, now time.Time) ([]models.CartLine, error) {
	out := make([]models.CartLine, 0, len(c.Items))
	for _, id := range c.ProductIDs() {
		p, ok := resolve(id)
		if !ok {
			return nil, fmt.Errorf("product %d not found", id)
		}
		unit := e.UnitPrice(p, now)
		qty := c.Items[id]
		out = append(out, models.CartLine{
			ProductID: id,
			Name:      p.Name,
			Quantity:  qty,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return out, nil
}
