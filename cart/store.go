// Package cart owns cart identities and keeps each cart's items, the stock
// reserved for them and the cached total consistent with one another.
package cart

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	models "storefront/model"
	"storefront/pricing"
	"storefront/store"
)

// Inventory is the part of the ledger a cart needs.
type Inventory interface {
	Reserve(productID int64, amount int) error
	Release(productID int64, amount int)
	Consume(productID int64, amount int)
	Product(productID int64) (models.Product, bool)
}

type Pricer interface {
	CartTotal(c models.Cart, resolve pricing.Resolver, now time.Time) (decimal.Decimal, error)
	Lines(c models.Cart, resolve pricing.Resolver, now time.Time) ([]models.CartLine, error)
}

// Store serializes every operation on a cart behind that cart's mutex.
// Operations on different carts never share a lock.
type Store struct {
	carts  sync.Map // map[int64]*entry
	inv    Inventory
	pricer Pricer
	now    func() time.Time
	log    *zap.Logger
}

type entry struct {
	mu   sync.Mutex
	live bool
	cart models.Cart
}

type Option func(*Store)

// WithClock overrides the instant used to price carts.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log.Named("cart") }
}

func NewStore(inv Inventory, pricer Pricer, opts ...Option) *Store {
	s := &Store{
		inv:    inv,
		pricer: pricer,
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// acquire locks the cart and returns it. The caller must unlock e.mu.
func (s *Store) acquire(cartID int64) (*entry, error) {
	v, ok := s.carts.Load(cartID)
	if !ok {
		return nil, store.ErrCartNotFound
	}
	e := v.(*entry)
	e.mu.Lock()
	// an entry can be dropped by a failed InitiateCart while we waited
	if !e.live {
		e.mu.Unlock()
		return nil, store.ErrCartNotFound
	}
	return e, nil
}

func (s *Store) reprice(c *models.Cart) error {
	total, err := s.pricer.CartTotal(*c, s.inv.Product, s.now())
	if err != nil {
		return store.Internal("reprice cart", err)
	}
	c.TotalPrice = total
	return nil
}

// InitiateCart starts tracking a cart. Items it already holds are reserved
// all or nothing.
func (s *Store) InitiateCart(c models.Cart) error {
	for _, qty := range c.Items {
		if qty <= 0 {
			return store.ErrInvalidQuantity
		}
	}

	e := &entry{}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, loaded := s.carts.LoadOrStore(c.CartID, e); loaded {
		return store.ErrAlreadyExists
	}

	next := c.Clone()
	var reserved []int64
	rollback := func() {
		for _, id := range reserved {
			s.inv.Release(id, next.Items[id])
		}
		s.carts.Delete(c.CartID)
	}
	for _, id := range next.ProductIDs() {
		if err := s.inv.Reserve(id, next.Items[id]); err != nil {
			rollback()
			return err
		}
		reserved = append(reserved, id)
	}
	if err := s.reprice(&next); err != nil {
		rollback()
		return err
	}

	e.cart = next
	e.live = true
	s.log.Debug("cart initiated", zap.Int64("cart_id", c.CartID), zap.Int("items", len(next.Items)))
	return nil
}

// GetUserCart returns a copy of the cart; absence is not an error.
func (s *Store) GetUserCart(cartID int64) (models.Cart, bool) {
	e, err := s.acquire(cartID)
	if err != nil {
		return models.Cart{}, false
	}
	defer e.mu.Unlock()
	return e.cart.Clone(), true
}

func (s *Store) AddToCart(cartID int64, p models.Product, amount int) error {
	if amount <= 0 {
		return store.ErrInvalidQuantity
	}
	e, err := s.acquire(cartID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if err := s.inv.Reserve(p.ProductID, amount); err != nil {
		return err
	}
	next := e.cart.Clone()
	next.Items[p.ProductID] += amount
	if err := s.reprice(&next); err != nil {
		s.inv.Release(p.ProductID, amount)
		return err
	}
	e.cart = next
	return nil
}

// RemoveFromCart drops the item and releases everything the cart held for it.
func (s *Store) RemoveFromCart(cartID int64, p models.Product) error {
	e, err := s.acquire(cartID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	held, ok := e.cart.Items[p.ProductID]
	if !ok {
		return store.ErrItemNotInCart
	}
	next := e.cart.Clone()
	delete(next.Items, p.ProductID)
	if err := s.reprice(&next); err != nil {
		return err
	}
	s.inv.Release(p.ProductID, held)
	e.cart = next
	return nil
}

// UpdateAmount sets the held quantity, reserving or releasing the
// difference. Zero removes the item.
func (s *Store) UpdateAmount(cartID int64, p models.Product, newAmount int) error {
	if newAmount < 0 {
		return store.ErrInvalidQuantity
	}
	e, err := s.acquire(cartID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	held, ok := e.cart.Items[p.ProductID]
	if !ok {
		return store.ErrItemNotInCart
	}
	delta := newAmount - held
	if delta > 0 {
		if err := s.inv.Reserve(p.ProductID, delta); err != nil {
			return err
		}
	}

	next := e.cart.Clone()
	if newAmount == 0 {
		delete(next.Items, p.ProductID)
	} else {
		next.Items[p.ProductID] = newAmount
	}
	if err := s.reprice(&next); err != nil {
		if delta > 0 {
			s.inv.Release(p.ProductID, delta)
		}
		return err
	}
	if delta < 0 {
		s.inv.Release(p.ProductID, -delta)
	}
	e.cart = next
	return nil
}

// ClearCart releases every held quantity and empties the cart.
func (s *Store) ClearCart(cartID int64) error {
	e, err := s.acquire(cartID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	for _, id := range e.cart.ProductIDs() {
		s.inv.Release(id, e.cart.Items[id])
	}
	e.cart.Items = map[int64]int{}
	e.cart.TotalPrice = decimal.Zero
	return nil
}

// View returns the cart together with its priced lines, both taken under
// the same lock.
func (s *Store) View(cartID int64) (models.Cart, []models.CartLine, bool, error) {
	e, err := s.acquire(cartID)
	if err != nil {
		return models.Cart{}, nil, false, nil
	}
	defer e.mu.Unlock()
	lines, err := s.pricer.Lines(e.cart, s.inv.Product, s.now())
	if err != nil {
		return models.Cart{}, nil, true, store.Internal("price cart lines", err)
	}
	return e.cart.Clone(), lines, true, nil
}

// Checkout prices the cart, hands the order to place and, once place
// succeeds, empties the cart. Reservations are consumed by the order rather
// than released: available stock stays as it is and the ledger stops
// counting the units as held.
func (s *Store) Checkout(cartID int64, place func(models.Order) (models.Order, error)) (models.Order, error) {
	e, err := s.acquire(cartID)
	if err != nil {
		return models.Order{}, err
	}
	defer e.mu.Unlock()

	if len(e.cart.Items) == 0 {
		return models.Order{}, store.ErrEmptyCart
	}
	lines, err := s.pricer.Lines(e.cart, s.inv.Product, s.now())
	if err != nil {
		return models.Order{}, store.Internal("price checkout", err)
	}

	o := models.Order{CartID: e.cart.CartID, UserID: e.cart.UserID, Total: decimal.Zero}
	for _, l := range lines {
		o.Items = append(o.Items, models.OrderItem{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
		o.Total = o.Total.Add(l.LineTotal)
	}
	placed, err := place(o)
	if err != nil {
		return models.Order{}, store.Internal("place order", err)
	}

	for _, it := range o.Items {
		s.inv.Consume(it.ProductID, it.Quantity)
	}
	e.cart.Items = map[int64]int{}
	e.cart.TotalPrice = decimal.Zero
	s.log.Info("cart checked out", zap.Int64("cart_id", cartID), zap.Int64("order_id", placed.ID))
	return placed, nil
}
