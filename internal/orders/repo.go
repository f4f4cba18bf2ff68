package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

// CreateOrderTx persists a whole order as one transaction:
// header insert -> item inserts -> clear the user's cart. Any failure rolls
// everything back; no partial order is ever visible.
func (r *Repo) CreateOrderTx(ctx context.Context, userID int64, ship ShippingInfo, items []ItemInput, total float64) (orderID int64, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, total, item_count, recipient_name, address, phone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, userID, total, len(items), ship.RecipientName, ship.Address, ship.Phone, StatusPending).Scan(&orderID)
	if err != nil {
		return 0, err
	}

	for _, it := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)`,
			orderID, it.ProductID, it.Quantity, it.Price,
		)
		if err != nil {
			return 0, err
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM carts WHERE user_id=$1`, userID); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return orderID, nil
}

// ListAll joins users for the admin order overview, newest first.
func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.user_id, o.total, o.item_count, o.recipient_name, o.address,
		       o.phone, o.status, o.created_at, u.name, u.email
		FROM orders o
		JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.ItemCount, &o.RecipientName,
			&o.Address, &o.Phone, &o.Status, &o.CreatedAt, &o.CustomerName, &o.CustomerEmail); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, total, item_count, recipient_name, address, phone, status, created_at
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.ItemCount, &o.RecipientName,
			&o.Address, &o.Phone, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetByID returns one order with its items joined against products for the
// display name and image.
func (r *Repo) GetByID(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT o.id, o.user_id, o.total, o.item_count, o.recipient_name, o.address,
		       o.phone, o.status, o.created_at, u.name, u.email
		FROM orders o
		JOIN users u ON o.user_id = u.id
		WHERE o.id=$1`, id).Scan(&o.ID, &o.UserID, &o.Total, &o.ItemCount, &o.RecipientName,
		&o.Address, &o.Phone, &o.Status, &o.CreatedAt, &o.CustomerName, &o.CustomerEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT oi.order_id, oi.product_id, oi.quantity, oi.unit_price, p.name, p.image
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id=$1`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&it.ProductName, &it.ProductImage); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *Repo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the items first, then the header. Runs in a transaction so a
// failed header delete does not leave an item-less order behind.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, id); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, image, price, stock, created_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Image, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
