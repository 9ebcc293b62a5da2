package store

import models "storefront/model"

// Repository is the persistence collaborator. The in-memory ledger and sale
// registry are seeded from it at boot; admin writes and checkouts go through
// it before they are applied in memory.
type Repository interface {
	ListProducts() ([]models.Product, error)
	CreateProduct(p models.Product) (int64, error)
	UpdateStock(productID int64, newStock int) error

	ListSales() ([]models.Sale, error)
	InsertSale(s models.Sale) error
	UpdateSale(s models.Sale) error

	SaveOrder(o models.Order) (models.Order, error)

	Close() error
}
