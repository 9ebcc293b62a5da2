package store

import (
	"database/sql"

	_ "github.com/lib/pq"

	models "storefront/model"
)

// PostgresStore is a Repository backed by Postgres. Schema lives in
// migrations.sql at the module root.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	DB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := DB.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{DB: DB}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// Migrate runs the given schema script.
func (s *PostgresStore) Migrate(script string) error {
	_, err := s.DB.Exec(script)
	return err
}

func (s *PostgresStore) ListProducts() ([]models.Product, error) {
	rows, err := s.DB.Query(`SELECT id, name, category_id, price, stock FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.CategoryID, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateProduct inserts a product and returns its id
func (s *PostgresStore) CreateProduct(p models.Product) (int64, error) {
	var id int64
	err := s.DB.QueryRow(
		`INSERT INTO products (name, category_id, price, stock) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Name, p.CategoryID, p.Price, p.Stock,
	).Scan(&id)
	return id, err
}

// UpdateStock sets the absolute stock for a product (admin operation).
func (s *PostgresStore) UpdateStock(productID int64, newStock int) error {
	if newStock < 0 {
		return ErrInvalidQuantity
	}
	res, err := s.DB.Exec(`UPDATE products SET stock=$1 WHERE id=$2`, newStock, productID)
	if err != nil {
		return err
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) ListSales() ([]models.Sale, error) {
	rows, err := s.DB.Query(`
		SELECT id, start_date, end_date, is_percentage, discount_amount, product_id, category_id
		FROM sales
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Sale{}
	for rows.Next() {
		var sl models.Sale
		if err := rows.Scan(&sl.SaleID, &sl.StartDate, &sl.EndDate, &sl.IsPercentage,
			&sl.DiscountAmount, &sl.ProductID, &sl.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertSale(sl models.Sale) error {
	_, err := s.DB.Exec(`
		INSERT INTO sales (id, start_date, end_date, is_percentage, discount_amount, product_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sl.SaleID, sl.StartDate, sl.EndDate, sl.IsPercentage, sl.DiscountAmount, sl.ProductID, sl.CategoryID)
	return err
}

func (s *PostgresStore) UpdateSale(sl models.Sale) error {
	res, err := s.DB.Exec(`
		UPDATE sales
		SET start_date=$2, end_date=$3, is_percentage=$4, discount_amount=$5, product_id=$6, category_id=$7
		WHERE id=$1
	`, sl.SaleID, sl.StartDate, sl.EndDate, sl.IsPercentage, sl.DiscountAmount, sl.ProductID, sl.CategoryID)
	if err != nil {
		return err
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaveOrder writes the order, its items and the stock consumed by the
// checkout in one transaction. Reservations were taken in memory when the
// items went into the cart; this makes them permanent.
func (s *PostgresStore) SaveOrder(o models.Order) (saved models.Order, err error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return o, err
	}
	// ensure rollback on early return
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.QueryRow(
		`INSERT INTO orders (cart_id, user_id, total) VALUES ($1,$2,$3) RETURNING id, created_at`,
		o.CartID, o.UserID, o.Total,
	).Scan(&o.ID, &o.CreatedAt); err != nil {
		return o, err
	}

	itemStmt, err := tx.Prepare(`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1,$2,$3,$4)`)
	if err != nil {
		return o, err
	}
	defer itemStmt.Close()
	for _, it := range o.Items {
		if _, err = itemStmt.Exec(o.ID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return o, err
		}
	}

	stockStmt, err := tx.Prepare(`UPDATE products SET stock = stock - $1 WHERE id = $2`)
	if err != nil {
		return o, err
	}
	defer stockStmt.Close()
	for _, it := range o.Items {
		var res sql.Result
		if res, err = stockStmt.Exec(it.Quantity, it.ProductID); err != nil {
			return o, err
		}
		if ra, _ := res.RowsAffected(); ra == 0 {
			err = sql.ErrNoRows
			return o, err
		}
	}

	if err = tx.Commit(); err != nil {
		return o, err
	}
	return o, nil
}
