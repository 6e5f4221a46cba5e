package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storeops-api/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StoreService is the relational store for customers, products, inventory and
// orders. The copilot pipeline only reads from it; the CRUD endpoints write.
type StoreService struct {
	pool *pgxpool.Pool
}

// NewStoreService opens a pgx pool against databaseURL and verifies the
// connection.
func NewStoreService(ctx context.Context, databaseURL string) (*StoreService, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &StoreService{pool: pool}, nil
}

// Close releases the connection pool.
func (s *StoreService) Close() {
	s.pool.Close()
}

// Ping reports database reachability.
func (s *StoreService) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Copilot lookups ---

// GetOrderStatus returns status, total and creation time for one order.
// A missing order returns (nil, nil).
func (s *StoreService) GetOrderStatus(ctx context.Context, orderID int) (*models.OrderStatus, error) {
	var os models.OrderStatus
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, total, created_at FROM orders WHERE id=$1`, orderID,
	).Scan(&os.ID, &os.Status, &os.Total, &os.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("order status lookup failed: %w", err)
	}
	return &os, nil
}

// ListInStock returns products with a positive on-hand quantity.
func (s *StoreService) ListInStock(ctx context.Context) ([]models.StockItem, error) {
	return s.queryStockItems(ctx, `
		SELECT p.sku, p.name, COALESCE(i.qty, 0) AS qty, p.threshold
		FROM products p LEFT JOIN inventory i ON p.sku = i.sku
		WHERE COALESCE(i.qty, 0) > 0
		ORDER BY p.sku`)
}

// ListOutOfStock returns products that are depleted or below their reorder
// threshold.
func (s *StoreService) ListOutOfStock(ctx context.Context) ([]models.StockItem, error) {
	return s.queryStockItems(ctx, `
		SELECT p.sku, p.name, COALESCE(i.qty, 0) AS qty, p.threshold
		FROM products p LEFT JOIN inventory i ON p.sku = i.sku
		WHERE COALESCE(i.qty, 0) <= 0 OR COALESCE(i.qty, 0) < p.threshold
		ORDER BY p.sku`)
}

func (s *StoreService) queryStockItems(ctx context.Context, query string) ([]models.StockItem, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("stock listing failed: %w", err)
	}
	defer rows.Close()

	items := make([]models.StockItem, 0)
	for rows.Next() {
		var item models.StockItem
		if err := rows.Scan(&item.SKU, &item.Name, &item.Qty, &item.Threshold); err != nil {
			return nil, fmt.Errorf("stock row scan failed: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UnitsSold sums the quantity sold for a SKU over an inclusive date range.
func (s *StoreService) UnitsSold(ctx context.Context, sku string, from, to time.Time) (int, error) {
	var sold int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(oi.qty), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.sku = $1 AND o.created_at >= $2 AND o.created_at <= $3`,
		sku, from, to,
	).Scan(&sold)
	if err != nil {
		return 0, fmt.Errorf("units-sold aggregate failed: %w", err)
	}
	return sold, nil
}

// GetProductStock returns the inventory view of one product. An unknown SKU
// returns (nil, nil).
func (s *StoreService) GetProductStock(ctx context.Context, sku string) (*models.ProductStock, error) {
	var ps models.ProductStock
	var name string
	err := s.pool.QueryRow(ctx, `
		SELECT p.sku, p.name, COALESCE(i.qty, 0), p.threshold
		FROM products p LEFT JOIN inventory i ON p.sku = i.sku
		WHERE p.sku = $1`, sku,
	).Scan(&ps.SKU, &name, &ps.Qty, &ps.Threshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("product stock lookup failed: %w", err)
	}
	ps.Name = &name
	return &ps, nil
}

// --- Customers ---

// ListCustomers returns customers, optionally filtered by a name/email match.
func (s *StoreService) ListCustomers(ctx context.Context, q string) ([]models.Customer, error) {
	var rows pgx.Rows
	var err error
	if q != "" {
		rows, err = s.pool.Query(ctx,
			`SELECT id, name, email, phone, address, created_at FROM customers
			 WHERE name ILIKE $1 OR email ILIKE $1 ORDER BY id DESC`, "%"+q+"%")
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, name, email, phone, address, created_at FROM customers ORDER BY id DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("customer listing failed: %w", err)
	}
	defer rows.Close()

	customers := make([]models.Customer, 0)
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("customer row scan failed: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// CreateCustomer inserts a customer and returns the stored record.
func (s *StoreService) CreateCustomer(ctx context.Context, in models.CustomerInput) (*models.Customer, error) {
	var c models.Customer
	err := s.pool.QueryRow(ctx,
		`INSERT INTO customers (name, email, phone, address) VALUES ($1, $2, $3, $4)
		 RETURNING id, name, email, phone, address, created_at`,
		in.Name, in.Email, in.Phone, in.Address,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("customer insert failed: %w", err)
	}
	return &c, nil
}

// UpdateCustomer overwrites a customer record.
func (s *StoreService) UpdateCustomer(ctx context.Context, id int, in models.CustomerInput) (*models.Customer, error) {
	var c models.Customer
	err := s.pool.QueryRow(ctx,
		`UPDATE customers SET name=$1, email=$2, phone=$3, address=$4 WHERE id=$5
		 RETURNING id, name, email, phone, address, created_at`,
		in.Name, in.Email, in.Phone, in.Address, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("customer update failed: %w", err)
	}
	return &c, nil
}

// DeleteCustomer removes a customer.
func (s *StoreService) DeleteCustomer(ctx context.Context, id int) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM customers WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("customer delete failed: %w", err)
	}
	return nil
}

// --- Products & inventory ---

// ListProducts returns the catalog joined with inventory, optionally filtered
// by a SKU/name match.
func (s *StoreService) ListProducts(ctx context.Context, q string) ([]models.Product, error) {
	base := `SELECT p.sku, p.name, p.price, p.threshold, COALESCE(i.qty, 0)
	         FROM products p LEFT JOIN inventory i ON p.sku = i.sku`
	var rows pgx.Rows
	var err error
	if q != "" {
		rows, err = s.pool.Query(ctx, base+` WHERE p.sku ILIKE $1 OR p.name ILIKE $1 ORDER BY p.sku`, "%"+q+"%")
	} else {
		rows, err = s.pool.Query(ctx, base+` ORDER BY p.sku`)
	}
	if err != nil {
		return nil, fmt.Errorf("product listing failed: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Price, &p.Threshold, &p.Qty); err != nil {
			return nil, fmt.Errorf("product row scan failed: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpsertProduct creates or updates a product and pins its inventory quantity.
func (s *StoreService) UpsertProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO products (sku, name, price, threshold) VALUES ($1, $2, $3, $4)
		ON CONFLICT (sku) DO UPDATE SET name=EXCLUDED.name, price=EXCLUDED.price, threshold=EXCLUDED.threshold`,
		in.SKU, in.Name, in.Price, in.Threshold)
	if err != nil {
		return nil, fmt.Errorf("product upsert failed: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO inventory (sku, qty) VALUES ($1, $2)
		ON CONFLICT (sku) DO UPDATE SET qty=EXCLUDED.qty`,
		in.SKU, in.Qty)
	if err != nil {
		return nil, fmt.Errorf("inventory upsert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit product upsert: %w", err)
	}

	return &models.Product{SKU: in.SKU, Name: in.Name, Price: in.Price, Threshold: in.Threshold, Qty: in.Qty}, nil
}

// DeleteProduct removes a product and its dependent rows.
func (s *StoreService) DeleteProduct(ctx context.Context, sku string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE sku=$1`, sku); err != nil {
		return fmt.Errorf("order item cleanup failed: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM inventory WHERE sku=$1`, sku); err != nil {
		return fmt.Errorf("inventory cleanup failed: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM products WHERE sku=$1`, sku); err != nil {
		return fmt.Errorf("product delete failed: %w", err)
	}
	return tx.Commit(ctx)
}

// SetInventoryQty pins the on-hand quantity for a known SKU.
func (s *StoreService) SetInventoryQty(ctx context.Context, sku string, qty int) (*models.Product, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE sku=$1)`, sku).Scan(&exists); err != nil {
		return nil, fmt.Errorf("product existence check failed: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("unknown SKU: %s", sku)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO inventory (sku, qty) VALUES ($1, $2)
		ON CONFLICT (sku) DO UPDATE SET qty=EXCLUDED.qty`, sku, qty)
	if err != nil {
		return nil, fmt.Errorf("inventory update failed: %w", err)
	}

	var p models.Product
	err = s.pool.QueryRow(ctx, `
		SELECT p.sku, p.name, p.price, p.threshold, COALESCE(i.qty, 0)
		FROM products p LEFT JOIN inventory i ON p.sku = i.sku
		WHERE p.sku = $1`, sku,
	).Scan(&p.SKU, &p.Name, &p.Price, &p.Threshold, &p.Qty)
	if err != nil {
		return nil, fmt.Errorf("product readback failed: %w", err)
	}
	return &p, nil
}

// --- Orders ---

// ListOrders returns the most recent orders without their items.
func (s *StoreService) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if limit < 1 {
		limit = 25
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, customer_id, status, total, created_at
		FROM orders ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("order listing failed: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.Total, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("order row scan failed: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetOrder returns one order with its items, or (nil, nil) when missing.
func (s *StoreService) GetOrder(ctx context.Context, orderID int) (*models.Order, error) {
	var o models.Order
	err := s.pool.QueryRow(ctx,
		`SELECT id, customer_id, status, total, created_at FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.CustomerID, &o.Status, &o.Total, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT oi.sku, oi.qty, oi.price, COALESCE(p.name, '')
		FROM order_items oi LEFT JOIN products p ON oi.sku = p.sku
		WHERE oi.order_id=$1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order item listing failed: %w", err)
	}
	defer rows.Close()

	o.Items = make([]models.OrderItem, 0)
	for rows.Next() {
		var item models.OrderItem
		var price float64
		if err := rows.Scan(&item.SKU, &item.Qty, &price, &item.Name); err != nil {
			return nil, fmt.Errorf("order item scan failed: %w", err)
		}
		item.Price = &price
		o.Items = append(o.Items, item)
	}
	return &o, rows.Err()
}

// CreateOrder inserts an order with its items, computing the total from the
// product price when an item price is omitted, and decrements inventory
// (never below zero).
func (s *StoreService) CreateOrder(ctx context.Context, in models.OrderInput) (*models.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	prices := make([]float64, len(in.Items))
	total := 0.0
	for i, item := range in.Items {
		price := 0.0
		if item.Price != nil {
			price = *item.Price
		} else {
			// Fall back to the catalog price; unknown SKUs price at zero.
			err := tx.QueryRow(ctx, `SELECT price FROM products WHERE sku=$1`, item.SKU).Scan(&price)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("price lookup failed: %w", err)
			}
		}
		prices[i] = price
		total += float64(item.Qty) * price
	}

	var o models.Order
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (customer_id, status, total) VALUES ($1, 'pending', $2)
		 RETURNING id, customer_id, status, total, created_at`,
		in.CustomerID, total,
	).Scan(&o.ID, &o.CustomerID, &o.Status, &o.Total, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("order insert failed: %w", err)
	}

	for i, item := range in.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, sku, qty, price) VALUES ($1, $2, $3, $4)`,
			o.ID, item.SKU, item.Qty, prices[i])
		if err != nil {
			return nil, fmt.Errorf("order item insert failed: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO inventory (sku, qty) VALUES ($1, 0)
			ON CONFLICT (sku) DO NOTHING`, item.SKU)
		if err != nil {
			return nil, fmt.Errorf("inventory ensure failed: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE inventory SET qty = GREATEST(0, qty - $1) WHERE sku=$2`,
			item.Qty, item.SKU)
		if err != nil {
			return nil, fmt.Errorf("inventory decrement failed: %w", err)
		}

		price := prices[i]
		o.Items = append(o.Items, models.OrderItem{SKU: item.SKU, Qty: item.Qty, Price: &price})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return &o, nil
}

// UpdateOrderStatus sets the status of one order.
func (s *StoreService) UpdateOrderStatus(ctx context.Context, orderID int, status string) (*models.Order, error) {
	var o models.Order
	err := s.pool.QueryRow(ctx,
		`UPDATE orders SET status=$1 WHERE id=$2
		 RETURNING id, customer_id, status, total, created_at`,
		status, orderID,
	).Scan(&o.ID, &o.CustomerID, &o.Status, &o.Total, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("order status update failed: %w", err)
	}
	return &o, nil
}

// DeleteOrder removes an order and its items.
func (s *StoreService) DeleteOrder(ctx context.Context, orderID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return fmt.Errorf("order item cleanup failed: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID); err != nil {
		return fmt.Errorf("order delete failed: %w", err)
	}
	return tx.Commit(ctx)
}

// --- Analytics ---

// SalesWeekOverWeek compares order count and revenue for the trailing seven
// days against the seven days before that.
func (s *StoreService) SalesWeekOverWeek(ctx context.Context) (*models.WeekOverWeek, error) {
	now := time.Now().UTC()
	currStart := now.AddDate(0, 0, -7)
	prevStart := now.AddDate(0, 0, -14)

	var out models.WeekOverWeek
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders WHERE created_at >= $1 AND created_at < $2`,
		prevStart, currStart,
	).Scan(&out.PrevWeek.Count, &out.PrevWeek.Total)
	if err != nil {
		return nil, fmt.Errorf("previous week aggregate failed: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders WHERE created_at >= $1 AND created_at <= $2`,
		currStart, now,
	).Scan(&out.CurrWeek.Count, &out.CurrWeek.Total)
	if err != nil {
		return nil, fmt.Errorf("current week aggregate failed: %w", err)
	}

	return &out, nil
}
