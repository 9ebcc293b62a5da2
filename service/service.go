package service

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/cart"
	models "storefront/model"
	"storefront/pricing"
	"storefront/store"
)

// Service wires the ledger, the sale registry, the pricing engine and the
// cart store behind ServiceInterface.
type Service struct {
	repo   store.Repository
	ledger *store.Ledger
	sales  *store.SaleRegistry
	engine *pricing.Engine
	carts  *cart.Store
	log    *zap.Logger

	// serializes admin writes so the repository and memory apply in the same order
	adminMu sync.Mutex
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock fixes the instant carts are priced at.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewService(repo store.Repository, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	ledger := store.NewLedger(log)
	sales := store.NewSaleRegistry(log)
	engine := pricing.NewEngine(sales)
	return &Service{
		repo:   repo,
		ledger: ledger,
		sales:  sales,
		engine: engine,
		carts:  cart.NewStore(ledger, engine, cart.WithClock(o.now), cart.WithLogger(log)),
		log:    log.Named("service"),
	}
}

// Seed loads products and sales from the repository into memory.
func (s *Service) Seed() error {
	var (
		products []models.Product
		sales    []models.Sale
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		products, err = s.repo.ListProducts()
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.repo.ListSales()
		return err
	})
	if err := g.Wait(); err != nil {
		return store.Internal("seed", err)
	}

	for _, p := range products {
		if err := s.ledger.Register(p); err != nil {
			return store.Internalf("seed", "product %d: %v", p.ProductID, err)
		}
	}
	for _, sl := range sales {
		if _, err := s.sales.Add(sl); err != nil {
			return store.Internalf("seed", "sale %d: %v", sl.SaleID, err)
		}
	}
	s.log.Info("seeded", zap.Int("products", len(products)), zap.Int("sales", len(sales)))
	return nil
}

// outcome splits err into the business-failure and internal-failure channels.
func (s *Service) outcome(op string, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if store.IsFailure(err) {
		s.log.Info("rejected", zap.String("op", op), zap.Error(err))
		return false, nil
	}
	s.log.Error("failed", zap.String("op", op), zap.Error(err))
	return false, err
}

// --- carts ---

func (s *Service) GetUserCart(cartID int64) (*models.Cart, error) {
	c, ok := s.carts.GetUserCart(cartID)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Service) InitiateCart(c models.Cart) (bool, error) {
	return s.outcome("initiate cart", s.carts.InitiateCart(c))
}

func (s *Service) AddToCart(cartID int64, product models.Product, amount int) (bool, error) {
	return s.outcome("add to cart", s.carts.AddToCart(cartID, product, amount))
}

func (s *Service) RemoveFromCart(cartID int64, product models.Product) (bool, error) {
	return s.outcome("remove from cart", s.carts.RemoveFromCart(cartID, product))
}

func (s *Service) UpdateAmount(cartID int64, product models.Product, amount int) (bool, error) {
	return s.outcome("update amount", s.carts.UpdateAmount(cartID, product, amount))
}

func (s *Service) ClearCart(cartID int64) (bool, error) {
	return s.outcome("clear cart", s.carts.ClearCart(cartID))
}

func (s *Service) GetCartView(cartID int64) (*CartView, error) {
	c, lines, ok, err := s.carts.View(cartID)
	if err != nil {
		s.log.Error("failed", zap.String("op", "view cart"), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return &CartView{CartID: c.CartID, UserID: c.UserID, Items: lines, Total: total}, nil
}

// Checkout returns nil without an error when the cart is unknown or empty.
func (s *Service) Checkout(cartID int64) (*models.Order, error) {
	o, err := s.carts.Checkout(cartID, s.repo.SaveOrder)
	if ok, err := s.outcome("checkout", err); !ok {
		return nil, err
	}
	return &o, nil
}

// --- products ---

func (s *Service) CreateProduct(p models.Product) (int64, bool, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || p.Price.IsNegative() || p.Stock < 0 {
		ok, err := s.outcome("create product", store.ErrInvalidProduct)
		return 0, ok, err
	}

	s.adminMu.Lock()
	defer s.adminMu.Unlock()
	if _, exists := s.ledger.ProductByName(p.Name); exists {
		ok, err := s.outcome("create product", store.ErrAlreadyExists)
		return 0, ok, err
	}
	id, err := s.repo.CreateProduct(p)
	if err != nil {
		ok, err := s.outcome("create product", store.Internal("create product", err))
		return 0, ok, err
	}
	p.ProductID = id
	if err := s.ledger.Register(p); err != nil {
		ok, err := s.outcome("create product", store.Internal("register product", err))
		return 0, ok, err
	}
	return id, true, nil
}

func (s *Service) GetProductByID(productID int64) (*models.Product, error) {
	p, ok := s.ledger.Product(productID)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Service) GetProductByName(name string) (*models.Product, error) {
	p, ok := s.ledger.ProductByName(name)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Service) GetProductByCategory(categoryID int64) ([]models.Product, error) {
	return s.ledger.ProductsByCategory(categoryID), nil
}

func (s *Service) GetAllProducts() ([]models.Product, error) {
	return s.ledger.Products(), nil
}

// UpdateProductStock sets available stock. The repository stores on-hand
// stock, so units held by carts are added back before persisting.
func (s *Service) UpdateProductStock(productID int64, stock int) (bool, error) {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()
	err := s.ledger.SetStock(productID, stock, func(onHand int) error {
		if err := s.repo.UpdateStock(productID, onHand); err != nil {
			return store.Internal("persist stock", err)
		}
		return nil
	})
	return s.outcome("update stock", err)
}

// --- sales ---

func (s *Service) GetSaleByID(saleID int64) (*models.Sale, error) {
	sl, ok := s.sales.Get(saleID)
	if !ok {
		return nil, nil
	}
	return &sl, nil
}

// GetAllSales returns nil when there are no sales at all.
func (s *Service) GetAllSales() ([]models.Sale, error) {
	return s.sales.GetAll(), nil
}

// AddSale returns the id the sale was stored under.
func (s *Service) AddSale(sl models.Sale) (int64, bool, error) {
	if err := store.ValidateSale(sl); err != nil {
		ok, err := s.outcome("add sale", err)
		return 0, ok, err
	}
	s.adminMu.Lock()
	defer s.adminMu.Unlock()
	if sl.SaleID == 0 {
		sl.SaleID = s.sales.NextID()
	}
	if _, exists := s.sales.Get(sl.SaleID); exists {
		ok, err := s.outcome("add sale", store.ErrAlreadyExists)
		return 0, ok, err
	}
	if err := s.repo.InsertSale(sl); err != nil {
		ok, err := s.outcome("add sale", store.Internal("persist sale", err))
		return 0, ok, err
	}
	added, err := s.sales.Add(sl)
	if ok, err := s.outcome("add sale", err); !ok {
		return 0, ok, err
	}
	return added.SaleID, true, nil
}

func (s *Service) UpdateSale(sl models.Sale) (bool, error) {
	if err := store.ValidateSale(sl); err != nil {
		return s.outcome("update sale", err)
	}
	s.adminMu.Lock()
	defer s.adminMu.Unlock()
	if _, exists := s.sales.Get(sl.SaleID); !exists {
		return s.outcome("update sale", store.ErrNotFound)
	}
	if err := s.repo.UpdateSale(sl); err != nil {
		return s.outcome("update sale", store.Internal("persist sale", err))
	}
	return s.outcome("update sale", s.sales.Update(sl))
}

// DTOs
type CartView struct {
	CartID int64             `json:"cart_id"`
	UserID int64             `json:"user_id"`
	Items  []models.CartLine `json:"items"`
	Total  decimal.Decimal   `json:"total"`
}
