package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	models "storefront/model"
	"storefront/service"
)

// ---- fakeService implementing service.ServiceInterface for tests ----
type fakeService struct {
	GetUserCartFn          func(cartID int64) (*models.Cart, error)
	InitiateCartFn         func(c models.Cart) (bool, error)
	AddToCartFn            func(cartID int64, p models.Product, amount int) (bool, error)
	RemoveFromCartFn       func(cartID int64, p models.Product) (bool, error)
	UpdateAmountFn         func(cartID int64, p models.Product, amount int) (bool, error)
	ClearCartFn            func(cartID int64) (bool, error)
	GetCartViewFn          func(cartID int64) (*service.CartView, error)
	CheckoutFn             func(cartID int64) (*models.Order, error)
	CreateProductFn        func(p models.Product) (int64, bool, error)
	GetProductByIDFn       func(id int64) (*models.Product, error)
	GetProductByNameFn     func(name string) (*models.Product, error)
	GetProductByCategoryFn func(categoryID int64) ([]models.Product, error)
	GetAllProductsFn       func() ([]models.Product, error)
	UpdateProductStockFn   func(id int64, stock int) (bool, error)
	GetSaleByIDFn          func(id int64) (*models.Sale, error)
	GetAllSalesFn          func() ([]models.Sale, error)
	AddSaleFn              func(s models.Sale) (int64, bool, error)
	UpdateSaleFn           func(s models.Sale) (bool, error)
}

func (f *fakeService) GetUserCart(cartID int64) (*models.Cart, error) { return f.GetUserCartFn(cartID) }
func (f *fakeService) InitiateCart(c models.Cart) (bool, error)       { return f.InitiateCartFn(c) }
func (f *fakeService) AddToCart(cartID int64, p models.Product, amount int) (bool, error) {
	return f.AddToCartFn(cartID, p, amount)
}
func (f *fakeService) RemoveFromCart(cartID int64, p models.Product) (bool, error) {
	return f.RemoveFromCartFn(cartID, p)
}
func (f *fakeService) UpdateAmount(cartID int64, p models.Product, amount int) (bool, error) {
	return f.UpdateAmountFn(cartID, p, amount)
}
func (f *fakeService) ClearCart(cartID int64) (bool, error) { return f.ClearCartFn(cartID) }
func (f *fakeService) GetCartView(cartID int64) (*service.CartView, error) {
	return f.GetCartViewFn(cartID)
}
func (f *fakeService) Checkout(cartID int64) (*models.Order, error) { return f.CheckoutFn(cartID) }
func (f *fakeService) CreateProduct(p models.Product) (int64, bool, error) {
	return f.CreateProductFn(p)
}
func (f *fakeService) GetProductByID(id int64) (*models.Product, error) { return f.GetProductByIDFn(id) }
func (f *fakeService) GetProductByName(name string) (*models.Product, error) {
	return f.GetProductByNameFn(name)
}
func (f *fakeService) GetProductByCategory(categoryID int64) ([]models.Product, error) {
	return f.GetProductByCategoryFn(categoryID)
}
func (f *fakeService) GetAllProducts() ([]models.Product, error) { return f.GetAllProductsFn() }
func (f *fakeService) UpdateProductStock(id int64, stock int) (bool, error) {
	return f.UpdateProductStockFn(id, stock)
}
func (f *fakeService) GetSaleByID(id int64) (*models.Sale, error) { return f.GetSaleByIDFn(id) }
func (f *fakeService) GetAllSales() ([]models.Sale, error)        { return f.GetAllSalesFn() }
func (f *fakeService) AddSale(s models.Sale) (int64, bool, error) { return f.AddSaleFn(s) }
func (f *fakeService) UpdateSale(s models.Sale) (bool, error)     { return f.UpdateSaleFn(s) }

var chair = models.Product{ProductID: 3, Name: "Chair", CategoryID: 7, Stock: 4, Price: decimal.RequireFromString("10.00")}

func findChair(id int64) (*models.Product, error) {
	if id == chair.ProductID {
		p := chair
		return &p, nil
	}
	return nil, nil
}

func newRouter(svc service.ServiceInterface, log *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	NewHandler(svc, log).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

// ---- Tests ----

func TestInitiateCart(t *testing.T) {
	var got models.Cart
	svc := &fakeService{InitiateCartFn: func(c models.Cart) (bool, error) {
		got = c
		return c.CartID != 2, nil
	}}
	r := newRouter(svc, nil)

	rec := do(t, r, http.MethodPost, "/carts", `{"cart_id":1,"user_id":9,"items":{"3":2}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), got.UserID)
	assert.Equal(t, 2, got.Items[3])

	rec = do(t, r, http.MethodPost, "/carts", `{"cart_id":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var out map[string]bool
	decodeBody(t, rec, &out)
	assert.False(t, out["ok"])

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/carts", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/carts", `{"user_id":1}`).Code)
}

func TestGetUserCart(t *testing.T) {
	svc := &fakeService{GetUserCartFn: func(cartID int64) (*models.Cart, error) {
		if cartID != 1 {
			return nil, nil
		}
		return &models.Cart{CartID: 1, Items: map[int64]int{3: 2}, TotalPrice: decimal.RequireFromString("20")}, nil
	}}
	r := newRouter(svc, nil)

	rec := do(t, r, http.MethodGet, "/carts/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var c models.Cart
	decodeBody(t, rec, &c)
	assert.Equal(t, 2, c.Items[3])
	assert.True(t, c.TotalPrice.Equal(decimal.NewFromInt(20)))

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/carts/5", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/carts/abc", "").Code)
}

func TestAddToCart(t *testing.T) {
	var gotCart int64
	var gotAmount int
	svc := &fakeService{
		GetProductByIDFn: findChair,
		AddToCartFn: func(cartID int64, p models.Product, amount int) (bool, error) {
			gotCart, gotAmount = cartID, amount
			return amount <= p.Stock, nil
		},
	}
	r := newRouter(svc, nil)

	rec := do(t, r, http.MethodPost, "/carts/4/items", `{"product_id":3,"amount":2}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), gotCart)
	assert.Equal(t, 2, gotAmount)

	assert.Equal(t, http.StatusConflict, do(t, r, http.MethodPost, "/carts/4/items", `{"product_id":3,"amount":9}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/carts/4/items", `{"product_id":3,"amount":0}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/carts/4/items", `{"product_id":8,"amount":1}`).Code)
}

func TestInternalErrorsAre500(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	svc := &fakeService{
		GetProductByIDFn: findChair,
		AddToCartFn: func(int64, models.Product, int) (bool, error) {
			return false, errors.New("reprice cart: internal: boom")
		},
	}
	r := newRouter(svc, zap.New(core))

	rec := do(t, r, http.MethodPost, "/carts/1/items", `{"product_id":3,"amount":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestUpdateRemoveAndClear(t *testing.T) {
	var calls []string
	svc := &fakeService{
		GetProductByIDFn: findChair,
		UpdateAmountFn: func(cartID int64, p models.Product, amount int) (bool, error) {
			calls = append(calls, "update")
			return true, nil
		},
		RemoveFromCartFn: func(cartID int64, p models.Product) (bool, error) {
			calls = append(calls, "remove")
			return false, nil
		},
		ClearCartFn: func(cartID int64) (bool, error) {
			calls = append(calls, "clear")
			return true, nil
		},
	}
	r := newRouter(svc, nil)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/carts/1/items/3", `{"amount":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPut, "/carts/1/items/3", `{"amount":-1}`).Code)
	assert.Equal(t, http.StatusConflict, do(t, r, http.MethodDelete, "/carts/1/items/3", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/carts/1/items/99", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/carts/1/items", "").Code)
	assert.Equal(t, []string{"update", "remove", "clear"}, calls)
}

func TestCheckout(t *testing.T) {
	svc := &fakeService{CheckoutFn: func(cartID int64) (*models.Order, error) {
		if cartID == 1 {
			return &models.Order{ID: 10, CartID: 1, Total: decimal.NewFromInt(20)}, nil
		}
		return nil, nil
	}}
	r := newRouter(svc, nil)

	rec := do(t, r, http.MethodPost, "/carts/1/checkout", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var o models.Order
	decodeBody(t, rec, &o)
	assert.Equal(t, int64(10), o.ID)

	assert.Equal(t, http.StatusConflict, do(t, r, http.MethodPost, "/carts/2/checkout", "").Code)
}

func TestCartView(t *testing.T) {
	svc := &fakeService{GetCartViewFn: func(cartID int64) (*service.CartView, error) {
		if cartID != 1 {
			return nil, nil
		}
		return &service.CartView{CartID: 1, Items: []models.CartLine{{ProductID: 3, Name: "Chair", Quantity: 1}}}, nil
	}}
	r := newRouter(svc, nil)

	rec := do(t, r, http.MethodGet, "/carts/1/view", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v service.CartView
	decodeBody(t, rec, &v)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Chair", v.Items[0].Name)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/carts/2/view", "").Code)
}

func TestProducts(t *testing.T) {
	var created models.Product
	svc := &fakeService{
		GetProductByIDFn: findChair,
		GetProductByNameFn: func(name string) (*models.Product, error) {
			if strings.EqualFold(name, "chair") {
				return findChair(3)
			}
			return nil, nil
		},
		GetProductByCategoryFn: func(categoryID int64) ([]models.Product, error) {
			if categoryID == 7 {
				return []models.Product{chair}, nil
			}
			return []models.Product{}, nil
		},
		GetAllProductsFn: func() ([]models.Product, error) { return []models.Product{chair}, nil },
		CreateProductFn: func(p models.Product) (int64, bool, error) {
			created = p
			return 12, p.Name != "Dup", nil
		},
		UpdateProductStockFn: func(id int64, stock int) (bool, error) { return id == 3 && stock >= 0, nil },
	}
	r := newRouter(svc, nil)

	rec := do(t, r, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []models.Product
	decodeBody(t, rec, &all)
	assert.Len(t, all, 1)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/products/3", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/products/4", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/products/name/chair", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/products/name/sofa", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/products/category/7", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/products/category/8", "").Code)

	rec = do(t, r, http.MethodPost, "/products", `{"name":"Desk","category_id":7,"price":"99.50","stock":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var idOut map[string]int64
	decodeBody(t, rec, &idOut)
	assert.Equal(t, int64(12), idOut["id"])
	assert.True(t, created.Price.Equal(decimal.RequireFromString("99.50")))
	assert.Equal(t, 3, created.Stock)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/products", `{"name":"","price":"1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/products", `{"name":"x","price":"-1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/products", `{"name":"Dup","price":"1"}`).Code)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/products/3/stock", `{"stock":8}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPut, "/products/3/stock", `{"stock":-8}`).Code)
}

func TestNoProducts(t *testing.T) {
	svc := &fakeService{GetAllProductsFn: func() ([]models.Product, error) { return nil, nil }}
	rec := do(t, newRouter(svc, nil), http.MethodGet, "/products", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var out map[string]string
	decodeBody(t, rec, &out)
	assert.Equal(t, "No products found.", out["error"])
}

func TestSales(t *testing.T) {
	var added, updated models.Sale
	sales := []models.Sale(nil)
	svc := &fakeService{
		GetAllSalesFn: func() ([]models.Sale, error) { return sales, nil },
		GetSaleByIDFn: func(id int64) (*models.Sale, error) {
			if id == 1 {
				return &models.Sale{SaleID: 1}, nil
			}
			return nil, nil
		},
		AddSaleFn: func(s models.Sale) (int64, bool, error) {
			added = s
			if s.DiscountAmount.GreaterThan(decimal.NewFromInt(100)) {
				return 0, false, nil
			}
			return 6, true, nil
		},
		UpdateSaleFn: func(s models.Sale) (bool, error) {
			updated = s
			return s.SaleID == 1, nil
		},
	}
	r := newRouter(svc, nil)

	rec := do(t, r, http.MethodGet, "/sales", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var msg map[string]string
	decodeBody(t, rec, &msg)
	assert.Equal(t, "No sales going on right now!", msg["error"])

	sales = []models.Sale{{SaleID: 1}}
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/sales", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/sales/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/sales/2", "").Code)

	body := `{"start_date":"2026-01-01T00:00:00Z","end_date":"2026-01-31T00:00:00Z","is_percentage":true,"discount_amount":"15","category_id":7}`
	rec = do(t, r, http.MethodPost, "/sales", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Status string `json:"status"`
		SaleID int64  `json:"sale_id"`
	}
	decodeBody(t, rec, &created)
	assert.Equal(t, int64(6), created.SaleID, "assigned id is returned to the caller")
	assert.Equal(t, "Sale added successfully", created.Status)
	assert.Equal(t, int64(0), added.SaleID)
	assert.Equal(t, int64(7), added.CategoryID)
	assert.True(t, added.IsPercentage)

	assert.Equal(t, http.StatusBadRequest,
		do(t, r, http.MethodPost, "/sales", `{"is_percentage":true,"discount_amount":"150"}`).Code)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/sales/1", body).Code)
	assert.Equal(t, int64(1), updated.SaleID)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPut, "/sales/2", body).Code)
}

func TestRequestIDAndAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := &fakeService{ClearCartFn: func(int64) (bool, error) { return true, nil }}
	r := newRouter(svc, zap.New(core))

	req := httptest.NewRequest(http.MethodDelete, "/carts/1/items", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc-123", fields["request_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])

	rec = do(t, r, http.MethodDelete, "/carts/1/items", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
