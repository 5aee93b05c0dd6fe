package store

import (
	"context"
	"database/sql"

	"github.com/safar/go-storefront/internal/models"
)

// GetCart returns the user's full cart with product data attached.
func GetCart(ctx context.Context, db *sql.DB, userID int64) (*models.Cart, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, product_id, quantity
		 FROM cart_items
		 WHERE user_id = $1
		 ORDER BY id`,
		userID)
	if err != nil {
		return nil, internalErr("list cart items", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity); err != nil {
			return nil, internalErr("scan cart item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("cart rows", err)
	}

	for i := range items {
		product, err := getProduct(ctx, db, items[i].ProductID, true)
		if err != nil {
			return nil, err
		}
		items[i].Product = product
	}

	return &models.Cart{Items: items}, nil
}

// UpsertCartItem adds a product to the cart or overwrites the quantity of the
// existing (user, product) line. Returns the full refreshed cart.
func UpsertCartItem(ctx context.Context, db *sql.DB, userID, productID int64, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, validationErr("quantity must be at least 1")
	}

	if _, err := GetActive(ctx, db, productID); err != nil {
		return nil, err
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		userID, productID, quantity)
	if err != nil {
		return nil, internalErr("upsert cart item", err)
	}

	return GetCart(ctx, db, userID)
}

// UpdateCartItem changes the quantity of a line the user owns.
func UpdateCartItem(ctx context.Context, db *sql.DB, userID, itemID int64, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, validationErr("quantity must be at least 1")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE id = $1 AND user_id = $2`,
		itemID, userID, quantity)
	if err != nil {
		return nil, internalErr("update cart item", err)
	}
	if err := requireRowAffected(result, "cart item not found"); err != nil {
		return nil, err
	}

	return GetCart(ctx, db, userID)
}

// RemoveCartItem deletes a line the user owns.
func RemoveCartItem(ctx context.Context, db *sql.DB, userID, itemID int64) (*models.Cart, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`,
		itemID, userID)
	if err != nil {
		return nil, internalErr("remove cart item", err)
	}
	if err := requireRowAffected(result, "cart item not found"); err != nil {
		return nil, err
	}

	return GetCart(ctx, db, userID)
}
