package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%s", uuid.New())
}

// PlaceOrder converts the requester's cart into an immutable order inside one
// serializable transaction: the cart lines are read and locked, each line's
// current product price is snapshotted into an order item, the aggregate
// stock is conditionally decremented, and the cart is emptied. If any step
// fails nothing persists.
func PlaceOrder(ctx context.Context, db *sql.DB, requester models.Identity, shipping json.RawMessage) (*models.Order, error) {
	var orderID int64

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT ci.product_id, ci.quantity, p.price
			 FROM cart_items ci
			 JOIN products p ON p.id = ci.product_id
			 WHERE ci.user_id = $1
			 ORDER BY ci.id
			 FOR UPDATE`,
			requester.ID)
		if err != nil {
			return internalErr("load cart", err)
		}

		type cartLine struct {
			productID int64
			quantity  int
			price     decimal.Decimal
		}
		var lines []cartLine
		for rows.Next() {
			var line cartLine
			if err := rows.Scan(&line.productID, &line.quantity, &line.price); err != nil {
				rows.Close()
				return internalErr("scan cart line", err)
			}
			lines = append(lines, line)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return internalErr("cart rows", err)
		}

		if len(lines) == 0 {
			return conflictErr("cart is empty")
		}

		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.price.Mul(decimal.NewFromInt(int64(line.quantity))))
		}

		var shippingArg interface{}
		if len(shipping) > 0 {
			shippingArg = []byte(shipping)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, order_number, status, total, shipping, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 RETURNING id`,
			requester.ID, generateOrderNumber(), models.OrderStatusProcessing, total, shippingArg).Scan(&orderID)
		if err != nil {
			return internalErr("create order", err)
		}

		for _, line := range lines {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
				 VALUES ($1, $2, $3, $4)`,
				orderID, line.productID, line.quantity, line.price)
			if err != nil {
				return internalErr("create order item", err)
			}

			result, err := tx.ExecContext(ctx,
				`UPDATE products
				 SET stock = stock - $1, updated_at = NOW()
				 WHERE id = $2 AND stock >= $1`,
				line.quantity, line.productID)
			if err != nil {
				return internalErr("decrement stock", err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return internalErr("decrement rows affected", err)
			}
			if affected == 0 {
				return conflictErr(fmt.Sprintf("insufficient stock for product %d", line.productID))
			}
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE user_id = $1`, requester.ID)
		if err != nil {
			return internalErr("clear cart", err)
		}

		return nil
	})
	if err != nil {
		return nil, asStoreError("place order", err)
	}

	return loadOrder(ctx, db, orderID)
}

// ListOrders returns every order for admins and only the requester's own
// orders otherwise, newest first.
func ListOrders(ctx context.Context, db *sql.DB, requester models.Identity) ([]models.Order, error) {
	where := "WHERE o.user_id = $1"
	args := []interface{}{requester.ID}
	if requester.IsAdmin() {
		where = ""
		args = nil
	}

	query := `
		SELECT o.id, o.user_id, o.order_number, o.status, o.total, o.shipping, o.created_at,
		       u.email, u.role
		FROM orders o
		JOIN users u ON u.id = o.user_id
		` + where + `
		ORDER BY o.created_at DESC, o.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalErr("list orders", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("order rows", err)
	}

	if err := attachOrderItems(ctx, db, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetOrder returns one order. Only the owner or an admin may see it;
// not-found and forbidden are never conflated.
func GetOrder(ctx context.Context, db *sql.DB, requester models.Identity, id int64) (*models.Order, error) {
	order, err := loadOrder(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if order.UserID != requester.ID && !requester.IsAdmin() {
		return nil, forbiddenErr()
	}

	return order, nil
}

// SetOrderStatus moves an order through the status machine. Admin only; the
// status vocabulary is validated before any database access.
func SetOrderStatus(ctx context.Context, db *sql.DB, requester models.Identity, id int64, status string) (*models.Order, error) {
	if !requester.IsAdmin() {
		return nil, forbiddenErr()
	}
	if !models.ValidOrderStatus(status) {
		return nil, validationErr("invalid order status")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return nil, internalErr("update order status", err)
	}
	if err := requireRowAffected(result, "order not found"); err != nil {
		return nil, err
	}

	return loadOrder(ctx, db, id)
}

func loadOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	row := db.QueryRowContext(ctx,
		`SELECT o.id, o.user_id, o.order_number, o.status, o.total, o.shipping, o.created_at,
		        u.email, u.role
		 FROM orders o
		 JOIN users u ON u.id = o.user_id
		 WHERE o.id = $1`,
		id)

	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	orders := []models.Order{*order}
	if err := attachOrderItems(ctx, db, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	user := &models.UserSummary{}
	var shipping []byte

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.Status,
		&order.Total,
		&shipping,
		&order.CreatedAt,
		&user.Email,
		&user.Role,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundErr("order not found")
		}
		return nil, internalErr("scan order", err)
	}

	user.ID = order.UserID
	order.User = user
	order.Shipping = shipping
	order.Items = []models.OrderItem{}

	return order, nil
}

func attachOrderItems(ctx context.Context, db *sql.DB, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	orderIDs := make([]int64, len(orders))
	index := make(map[int64]*models.Order, len(orders))
	for i := range orders {
		orderIDs[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`,
		pq.Array(orderIDs))
	if err != nil {
		return internalErr("list order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return internalErr("scan order item", err)
		}
		order := index[item.OrderID]
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return internalErr("order item rows", err)
	}

	return nil
}
