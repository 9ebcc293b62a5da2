package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	models "storefront/model"
	"storefront/service"
)

// Handler is the HTTP layer that talks to service.ServiceInterface
type Handler struct {
	svc service.ServiceInterface
	log *zap.Logger
}

// NewHandler returns a Handler instance
func NewHandler(s service.ServiceInterface, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: s, log: log.Named("http")}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(h.requestID, h.accessLog)

	// Carts
	r.HandleFunc("/carts", h.InitiateCart).Methods("POST")
	r.HandleFunc("/carts/{cartId:[0-9]+}", h.GetUserCart).Methods("GET")
	r.HandleFunc("/carts/{cartId:[0-9]+}/view", h.GetCartView).Methods("GET")
	r.HandleFunc("/carts/{cartId:[0-9]+}/items", h.AddToCart).Methods("POST")
	r.HandleFunc("/carts/{cartId:[0-9]+}/items", h.ClearCart).Methods("DELETE")
	r.HandleFunc("/carts/{cartId:[0-9]+}/items/{productId:[0-9]+}", h.UpdateAmount).Methods("PUT")
	r.HandleFunc("/carts/{cartId:[0-9]+}/items/{productId:[0-9]+}", h.RemoveFromCart).Methods("DELETE")
	r.HandleFunc("/carts/{cartId:[0-9]+}/checkout", h.Checkout).Methods("POST")

	// Products
	r.HandleFunc("/products", h.GetAllProducts).Methods("GET")
	r.HandleFunc("/products", h.CreateProduct).Methods("POST")
	r.HandleFunc("/products/{productId:[0-9]+}", h.GetProductByID).Methods("GET")
	r.HandleFunc("/products/name/{name}", h.GetProductByName).Methods("GET")
	r.HandleFunc("/products/category/{categoryId:[0-9]+}", h.GetProductByCategory).Methods("GET")
	r.HandleFunc("/products/{productId:[0-9]+}/stock", h.UpdateProductStock).Methods("PUT")

	// Sales
	r.HandleFunc("/sales", h.GetAllSales).Methods("GET")
	r.HandleFunc("/sales", h.AddSale).Methods("POST")
	r.HandleFunc("/sales/{saleId:[0-9]+}", h.GetSaleByID).Methods("GET")
	r.HandleFunc("/sales/{saleId:[0-9]+}", h.UpdateSale).Methods("PUT")
}

// --- request / response shapes ---
type amountReq struct {
	ProductID int64 `json:"product_id,omitempty"` // ignored when the path names the product
	Amount    int   `json:"amount"`
}

type createProductReq struct {
	Name       string          `json:"name"`
	CategoryID int64           `json:"category_id"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
}

type updateStockReq struct {
	Stock int `json:"stock"`
}

type saleReq struct {
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	IsPercentage   bool            `json:"is_percentage"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ProductID      int64           `json:"product_id,omitempty"`
	CategoryID     int64           `json:"category_id,omitempty"`
}

type addSaleResp struct {
	Status string `json:"status"`
	SaleID int64  `json:"sale_id"`
}

func (req saleReq) sale(id int64) models.Sale {
	return models.Sale{
		SaleID:         id,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		IsPercentage:   req.IsPercentage,
		DiscountAmount: req.DiscountAmount,
		ProductID:      req.ProductID,
		CategoryID:     req.CategoryID,
	}
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (h *Handler) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("request failed", zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
	writeErr(w, http.StatusInternalServerError, err.Error())
}

// writeOutcome maps a service mutation result onto a response.
func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, ok bool, err error) {
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]bool{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func pathID(r *http.Request, name string) int64 {
	// routes constrain these to digits; overflow parses to 0, which never exists
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

// resolveProduct looks up the product named by id, writing the response
// itself when it cannot.
func (h *Handler) resolveProduct(w http.ResponseWriter, r *http.Request, id int64) (models.Product, bool) {
	p, err := h.svc.GetProductByID(id)
	if err != nil {
		h.writeInternal(w, r, err)
		return models.Product{}, false
	}
	if p == nil {
		writeErr(w, http.StatusNotFound, "product not found")
		return models.Product{}, false
	}
	return *p, true
}

// --- Carts ---

// InitiateCart handles POST /carts
// body: { "cart_id": 1, "user_id": 7, "items": { "3": 2 } }
func (h *Handler) InitiateCart(w http.ResponseWriter, r *http.Request) {
	var c models.Cart
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if c.CartID <= 0 {
		writeErr(w, http.StatusBadRequest, "cart_id is required")
		return
	}
	ok, err := h.svc.InitiateCart(c)
	h.writeOutcome(w, r, ok, err)
}

// GetUserCart handles GET /carts/{cartId}
func (h *Handler) GetUserCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetUserCart(pathID(r, "cartId"))
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if c == nil {
		writeErr(w, http.StatusNotFound, "cart not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetCartView handles GET /carts/{cartId}/view
func (h *Handler) GetCartView(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetCartView(pathID(r, "cartId"))
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if v == nil {
		writeErr(w, http.StatusNotFound, "cart not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// AddToCart handles POST /carts/{cartId}/items
// body: { "product_id": 1, "amount": 2 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req amountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Amount <= 0 {
		writeErr(w, http.StatusBadRequest, "amount must be > 0")
		return
	}
	p, found := h.resolveProduct(w, r, req.ProductID)
	if !found {
		return
	}
	ok, err := h.svc.AddToCart(pathID(r, "cartId"), p, req.Amount)
	h.writeOutcome(w, r, ok, err)
}

// UpdateAmount handles PUT /carts/{cartId}/items/{productId}
// body: { "amount": 3 }
func (h *Handler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	var req amountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Amount < 0 {
		writeErr(w, http.StatusBadRequest, "amount must be >= 0")
		return
	}
	p, found := h.resolveProduct(w, r, pathID(r, "productId"))
	if !found {
		return
	}
	ok, err := h.svc.UpdateAmount(pathID(r, "cartId"), p, req.Amount)
	h.writeOutcome(w, r, ok, err)
}

// RemoveFromCart handles DELETE /carts/{cartId}/items/{productId}
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	p, found := h.resolveProduct(w, r, pathID(r, "productId"))
	if !found {
		return
	}
	ok, err := h.svc.RemoveFromCart(pathID(r, "cartId"), p)
	h.writeOutcome(w, r, ok, err)
}

// ClearCart handles DELETE /carts/{cartId}/items
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.ClearCart(pathID(r, "cartId"))
	h.writeOutcome(w, r, ok, err)
}

// Checkout handles POST /carts/{cartId}/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ord, err := h.svc.Checkout(pathID(r, "cartId"))
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if ord == nil {
		// unknown or empty cart
		writeJSON(w, http.StatusConflict, map[string]bool{"ok": false})
		return
	}
	writeJSON(w, http.StatusCreated, ord)
}

// --- Products ---

// CreateProduct handles POST /products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price.IsNegative() {
		writeErr(w, http.StatusBadRequest, "price must be >= 0")
		return
	}

	id, ok, err := h.svc.CreateProduct(models.Product{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Price:      req.Price,
		Stock:      req.Stock,
	})
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusBadRequest, "Failed to create product.")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GetAllProducts handles GET /products
func (h *Handler) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.GetAllProducts()
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if len(ps) == 0 {
		writeErr(w, http.StatusNotFound, "No products found.")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// GetProductByID handles GET /products/{productId}
func (h *Handler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	p, found := h.resolveProduct(w, r, pathID(r, "productId"))
	if !found {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetProductByName handles GET /products/name/{name}
func (h *Handler) GetProductByName(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProductByName(mux.Vars(r)["name"])
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if p == nil {
		writeErr(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetProductByCategory handles GET /products/category/{categoryId}
func (h *Handler) GetProductByCategory(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.GetProductByCategory(pathID(r, "categoryId"))
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if len(ps) == 0 {
		writeErr(w, http.StatusNotFound, "No products found in this category.")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// UpdateProductStock handles PUT /products/{productId}/stock
// body: { "stock": 10 }
func (h *Handler) UpdateProductStock(w http.ResponseWriter, r *http.Request) {
	var req updateStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ok, err := h.svc.UpdateProductStock(pathID(r, "productId"), req.Stock)
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusBadRequest, "Failed to update stock.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Stock updated successfully."})
}

// --- Sales ---

// GetAllSales handles GET /sales
func (h *Handler) GetAllSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.GetAllSales()
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if sales == nil {
		writeErr(w, http.StatusNotFound, "No sales going on right now!")
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

// GetSaleByID handles GET /sales/{saleId}
func (h *Handler) GetSaleByID(w http.ResponseWriter, r *http.Request) {
	sl, err := h.svc.GetSaleByID(pathID(r, "saleId"))
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if sl == nil {
		writeErr(w, http.StatusNotFound, "sale not found")
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

// AddSale handles POST /sales
func (h *Handler) AddSale(w http.ResponseWriter, r *http.Request) {
	var req saleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	id, ok, err := h.svc.AddSale(req.sale(0))
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusBadRequest, "Failed to add sale.")
		return
	}
	writeJSON(w, http.StatusCreated, addSaleResp{Status: "Sale added successfully", SaleID: id})
}

// UpdateSale handles PUT /sales/{saleId}
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	var req saleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ok, err := h.svc.UpdateSale(req.sale(pathID(r, "saleId")))
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusBadRequest, "Failed to update sale.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Sale update successfully"})
}
