package store

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	models "storefront/model"
)

var hundred = decimal.NewFromInt(100)

// SaleRegistry holds discount records. Expired sales are kept; the pricing
// engine decides which ones are active.
type SaleRegistry struct {
	mu     sync.RWMutex
	sales  map[int64]models.Sale
	nextID int64
	log    *zap.Logger
}

func NewSaleRegistry(log *zap.Logger) *SaleRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	return &SaleRegistry{
		sales:  make(map[int64]models.Sale),
		nextID: 1,
		log:    log.Named("sales"),
	}
}

// ValidateSale checks the date window, the discount range and the scope ids.
func ValidateSale(s models.Sale) error {
	if s.EndDate.Before(s.StartDate) {
		return ErrInvalidSale
	}
	if s.DiscountAmount.IsNegative() {
		return ErrInvalidSale
	}
	if s.IsPercentage && s.DiscountAmount.GreaterThan(hundred) {
		return ErrInvalidSale
	}
	if s.ProductID < 0 || s.CategoryID < 0 || s.SaleID < 0 {
		return ErrInvalidSale
	}
	return nil
}

func (r *SaleRegistry) Get(saleID int64) (models.Sale, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sales[saleID]
	return s, ok
}

// GetAll returns every sale ordered by id, or nil when the registry is empty.
func (r *SaleRegistry) GetAll() []models.Sale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.sales) == 0 {
		return nil
	}
	out := make([]models.Sale, 0, len(r.sales))
	for _, s := range r.sales {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaleID < out[j].SaleID })
	return out
}

// Add stores a new sale. A zero SaleID is replaced with the next free id;
// the stored record is returned.
func (r *SaleRegistry) Add(s models.Sale) (models.Sale, error) {
	if err := ValidateSale(s); err != nil {
		return models.Sale{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.SaleID == 0 {
		for {
			if _, taken := r.sales[r.nextID]; !taken {
				break
			}
			r.nextID++
		}
		s.SaleID = r.nextID
	}
	if _, exists := r.sales[s.SaleID]; exists {
		return models.Sale{}, ErrAlreadyExists
	}
	r.sales[s.SaleID] = s
	if s.SaleID >= r.nextID {
		r.nextID = s.SaleID + 1
	}
	r.log.Debug("sale added", zap.Int64("sale_id", s.SaleID))
	return s, nil
}

// NextID reports the id Add would assign to a sale without one.
func (r *SaleRegistry) NextID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := r.nextID
	for {
		if _, taken := r.sales[id]; !taken {
			return id
		}
		id++
	}
}

func (r *SaleRegistry) Update(s models.Sale) error {
	if err := ValidateSale(s); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sales[s.SaleID]; !exists {
		return ErrNotFound
	}
	r.sales[s.SaleID] = s
	r.log.Debug("sale updated", zap.Int64("sale_id", s.SaleID))
	return nil
}
