package store

import (
	"database/sql"
	"sort"
	"sync"
	"time"

	models "storefront/model"
)

// MemoryRepository is a Repository that keeps everything in process. It is
// used when no database is configured and in tests.
type MemoryRepository struct {
	mu            sync.Mutex
	products      map[int64]models.Product
	sales         map[int64]models.Sale
	orders        []models.Order
	nextProductID int64
	nextOrderID   int64
	now           func() time.Time
}

func NewMemoryRepository(products []models.Product, sales []models.Sale) *MemoryRepository {
	r := &MemoryRepository{
		products:      make(map[int64]models.Product),
		sales:         make(map[int64]models.Sale),
		nextProductID: 1,
		nextOrderID:   1,
		now:           time.Now,
	}
	for _, p := range products {
		r.products[p.ProductID] = p
		if p.ProductID >= r.nextProductID {
			r.nextProductID = p.ProductID + 1
		}
	}
	for _, s := range sales {
		r.sales[s.SaleID] = s
	}
	return r
}

func (r *MemoryRepository) ListProducts() ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *MemoryRepository) CreateProduct(p models.Product) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ProductID = r.nextProductID
	r.nextProductID++
	r.products[p.ProductID] = p
	return p.ProductID, nil
}

func (r *MemoryRepository) UpdateStock(productID int64, newStock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return sql.ErrNoRows
	}
	p.Stock = newStock
	r.products[productID] = p
	return nil
}

func (r *MemoryRepository) ListSales() ([]models.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Sale, 0, len(r.sales))
	for _, s := range r.sales {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaleID < out[j].SaleID })
	return out, nil
}

func (r *MemoryRepository) InsertSale(s models.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sales[s.SaleID]; ok {
		return ErrAlreadyExists
	}
	r.sales[s.SaleID] = s
	return nil
}

func (r *MemoryRepository) UpdateSale(s models.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sales[s.SaleID]; !ok {
		return sql.ErrNoRows
	}
	r.sales[s.SaleID] = s
	return nil
}

// SaveOrder records the order and takes the ordered quantities off the
// persisted stock, mirroring the Postgres checkout transaction.
func (r *MemoryRepository) SaveOrder(o models.Order) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range o.Items {
		if _, ok := r.products[it.ProductID]; !ok {
			return o, sql.ErrNoRows
		}
	}
	o.ID = r.nextOrderID
	r.nextOrderID++
	o.CreatedAt = r.now()
	for _, it := range o.Items {
		p := r.products[it.ProductID]
		p.Stock -= it.Quantity
		r.products[it.ProductID] = p
	}
	r.orders = append(r.orders, o)
	return o, nil
}

// Orders returns the orders saved so far.
func (r *MemoryRepository) Orders() []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Order, len(r.orders))
	copy(out, r.orders)
	return out
}

func (r *MemoryRepository) Close() error { return nil }
