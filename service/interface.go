package service

import models "storefront/model"

// ServiceInterface is the boundary request handlers call. Mutations report
// business failures as (false, nil) and internal failures on the error.
type ServiceInterface interface {
	GetUserCart(cartID int64) (*models.Cart, error)
	InitiateCart(c models.Cart) (bool, error)
	AddToCart(cartID int64, product models.Product, amount int) (bool, error)
	RemoveFromCart(cartID int64, product models.Product) (bool, error)
	UpdateAmount(cartID int64, product models.Product, amount int) (bool, error)
	ClearCart(cartID int64) (bool, error)
	GetCartView(cartID int64) (*CartView, error)
	Checkout(cartID int64) (*models.Order, error)

	CreateProduct(p models.Product) (int64, bool, error)
	GetProductByID(productID int64) (*models.Product, error)
	GetProductByName(name string) (*models.Product, error)
	GetProductByCategory(categoryID int64) ([]models.Product, error)
	GetAllProducts() ([]models.Product, error)
	UpdateProductStock(productID int64, stock int) (bool, error)

	GetSaleByID(saleID int64) (*models.Sale, error)
	GetAllSales() ([]models.Sale, error)
	AddSale(s models.Sale) (int64, bool, error)
	UpdateSale(s models.Sale) (bool, error)
}
