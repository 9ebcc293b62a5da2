package store

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	models "storefront/model"
)

// Ledger is the single source of truth for available stock. Each product
// record carries its own mutex, so reservations against different products
// never contend. On-hand stock, the figure the repository stores, is
// available plus reserved.
type Ledger struct {
	records sync.Map // map[int64]*stockRecord
	log     *zap.Logger
}

type stockRecord struct {
	mu       sync.Mutex
	product  models.Product
	reserved int
}

func NewLedger(log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{log: log.Named("ledger")}
}

func (l *Ledger) record(productID int64) (*stockRecord, bool) {
	v, ok := l.records.Load(productID)
	if !ok {
		return nil, false
	}
	return v.(*stockRecord), true
}

// Register adds a product to the ledger. It is the only way a product's
// stock enters the ledger without going through SetStock.
func (l *Ledger) Register(p models.Product) error {
	if p.Stock < 0 || p.Price.IsNegative() {
		return ErrInvalidProduct
	}
	if _, loaded := l.records.LoadOrStore(p.ProductID, &stockRecord{product: p}); loaded {
		return ErrAlreadyExists
	}
	return nil
}

// Reserve takes amount units out of available stock. It either reserves the
// full amount or nothing.
func (l *Ledger) Reserve(productID int64, amount int) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	rec, ok := l.record(productID)
	if !ok {
		return ErrProductNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.product.Stock < amount {
		l.log.Debug("reserve rejected",
			zap.Int64("product_id", productID),
			zap.Int("available", rec.product.Stock),
			zap.Int("requested", amount))
		return ErrInsufficientStock
	}
	rec.product.Stock -= amount
	rec.reserved += amount
	return nil
}

// Release returns amount units to available stock. Callers must only
// release what they previously reserved.
func (l *Ledger) Release(productID int64, amount int) {
	if amount <= 0 {
		return
	}
	rec, ok := l.record(productID)
	if !ok {
		l.log.Warn("release for unknown product", zap.Int64("product_id", productID), zap.Int("amount", amount))
		return
	}
	rec.mu.Lock()
	rec.product.Stock += amount
	rec.reserved = max(rec.reserved-amount, 0)
	rec.mu.Unlock()
}

// Consume settles amount reserved units as sold. Available stock does not
// change; the units leave the on-hand count once the order is stored.
func (l *Ledger) Consume(productID int64, amount int) {
	if amount <= 0 {
		return
	}
	rec, ok := l.record(productID)
	if !ok {
		l.log.Warn("consume for unknown product", zap.Int64("product_id", productID), zap.Int("amount", amount))
		return
	}
	rec.mu.Lock()
	rec.reserved = max(rec.reserved-amount, 0)
	rec.mu.Unlock()
}

// SetStock overwrites the available stock for a product (admin operation).
// When persist is non-nil it is called with the resulting on-hand stock
// while the record is locked, and the ledger only changes if it succeeds.
func (l *Ledger) SetStock(productID int64, newStock int, persist func(onHand int) error) error {
	if newStock < 0 {
		return ErrInvalidQuantity
	}
	rec, ok := l.record(productID)
	if !ok {
		return ErrProductNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if persist != nil {
		if err := persist(newStock + rec.reserved); err != nil {
			return err
		}
	}
	rec.product.Stock = newStock
	return nil
}

// Reserved returns how many units of a product carts currently hold.
func (l *Ledger) Reserved(productID int64) int {
	rec, ok := l.record(productID)
	if !ok {
		return 0
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.reserved
}

// Stock returns current available stock for a product.
func (l *Ledger) Stock(productID int64) (int, bool) {
	p, ok := l.Product(productID)
	if !ok {
		return 0, false
	}
	return p.Stock, true
}

func (l *Ledger) Product(productID int64) (models.Product, bool) {
	rec, ok := l.record(productID)
	if !ok {
		return models.Product{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.product, true
}

// ProductByName matches names case-insensitively; the lowest id wins if
// several products share a name.
func (l *Ledger) ProductByName(name string) (models.Product, bool) {
	name = strings.TrimSpace(name)
	for _, p := range l.Products() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return models.Product{}, false
}

// ProductsByCategory never returns nil; an unknown category yields an empty slice.
func (l *Ledger) ProductsByCategory(categoryID int64) []models.Product {
	out := []models.Product{}
	for _, p := range l.Products() {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

// Products returns a snapshot of every product ordered by id.
func (l *Ledger) Products() []models.Product {
	out := []models.Product{}
	l.records.Range(func(_, v interface{}) bool {
		rec := v.(*stockRecord)
		rec.mu.Lock()
		out = append(out, rec.product)
		rec.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
