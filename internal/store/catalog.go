package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

const defaultSizeLabel = "OS"

// ProductInput carries typed optional fields: a nil pointer means "keep the
// existing value" on update and "use the default" on create. A non-nil
// Variations pointer, even to an empty slice, triggers a full variation
// replace.
type ProductInput struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Price       *decimal.Decimal  `json:"price"`
	ImageURL    *string           `json:"imageUrl"`
	Stock       *int              `json:"stock"`
	Featured    *bool             `json:"featured"`
	OnSale      *bool             `json:"onSale"`
	DiscountPct *int              `json:"discountPct"`
	Category    *string           `json:"category"`
	Variations  *[]VariationInput `json:"variations"`
}

type VariationInput struct {
	Name  string      `json:"name"`
	Sizes []SizeInput `json:"sizes"`
}

type SizeInput struct {
	Label *string          `json:"label"`
	Stock *int             `json:"stock"`
	Price *decimal.Decimal `json:"price"`
}

// SizePatch is a partial update of a single size row.
type SizePatch struct {
	Label *string          `json:"label"`
	Stock *int             `json:"stock"`
	Price *decimal.Decimal `json:"price"`
}

// ListActive returns all non-deleted products, newest first, with category
// and the variation/size tree attached. Expired trash is purged first so
// customers never race a stale listing against the retention window.
func ListActive(ctx context.Context, db *sql.DB, retention time.Duration) ([]models.Product, error) {
	if _, err := PurgeExpired(ctx, db, retention); err != nil {
		return nil, err
	}

	return queryProducts(ctx, db, "WHERE p.deleted_at IS NULL")
}

// ListTrashed returns soft-deleted products awaiting purge. Admin only.
func ListTrashed(ctx context.Context, db *sql.DB, requester models.Identity) ([]models.Product, error) {
	if !requester.IsAdmin() {
		return nil, forbiddenErr()
	}

	return queryProducts(ctx, db, "WHERE p.deleted_at IS NOT NULL")
}

// GetActive returns a single product, treating soft-deleted rows as absent.
func GetActive(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	return getProduct(ctx, db, id, false)
}

// CreateProduct creates a product with its variation tree in one transaction.
// The category is resolved (or created) by name. When no top-level price is
// given, the price of the first size of the first variation is used.
func CreateProduct(ctx context.Context, db *sql.DB, requester models.Identity, input ProductInput) (*models.Product, error) {
	if !requester.IsAdmin() {
		return nil, forbiddenErr()
	}

	name := derefTrimmed(input.Name)
	if name == "" {
		return nil, validationErr("name is required")
	}

	price := input.Price
	if price == nil {
		price = firstSizePrice(input.Variations)
	}
	if price == nil {
		return nil, validationErr("price is required (set it directly or via the first variation size)")
	}

	if err := validateDiscount(input.DiscountPct); err != nil {
		return nil, err
	}

	var productID int64
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		categoryID, err := resolveCategory(ctx, tx, input.Category)
		if err != nil {
			return err
		}

		stock := 0
		if input.Variations != nil {
			stock = aggregateStock(*input.Variations)
		} else if input.Stock != nil {
			stock = *input.Stock
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO products (name, description, price, image_url, stock, featured, on_sale, discount_pct, category_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			 RETURNING id`,
			name,
			derefString(input.Description),
			*price,
			derefString(input.ImageURL),
			stock,
			derefBool(input.Featured),
			derefBool(input.OnSale),
			derefInt(input.DiscountPct),
			categoryID,
		).Scan(&productID)
		if err != nil {
			return internalErr("create product", err)
		}

		if input.Variations != nil {
			if err := replaceVariationsTx(ctx, tx, productID, *input.Variations); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, asStoreError("create product", err)
	}

	return getProduct(ctx, db, productID, false)
}

// UpdateProduct applies a partial update: every omitted field keeps its
// current value. A supplied Variations slice (even empty) fully replaces the
// existing variations; when the price is omitted alongside new variations,
// it is recomputed from the first new size.
func UpdateProduct(ctx context.Context, db *sql.DB, requester models.Identity, id int64, input ProductInput) (*models.Product, error) {
	if !requester.IsAdmin() {
		return nil, forbiddenErr()
	}

	if input.Name != nil && derefTrimmed(input.Name) == "" {
		return nil, validationErr("name cannot be empty")
	}
	if err := validateDiscount(input.DiscountPct); err != nil {
		return nil, err
	}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		existing := models.Product{}
		err := tx.QueryRowContext(ctx,
			`SELECT id, name, description, price, image_url, stock, featured, on_sale, discount_pct, category_id
			 FROM products
			 WHERE id = $1
			 FOR UPDATE`,
			id).Scan(
			&existing.ID,
			&existing.Name,
			&existing.Description,
			&existing.Price,
			&existing.ImageURL,
			&existing.Stock,
			&existing.Featured,
			&existing.OnSale,
			&existing.DiscountPct,
			&existing.CategoryID,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				return notFoundErr("product not found")
			}
			return internalErr("lock product", err)
		}

		name := existing.Name
		if input.Name != nil {
			name = derefTrimmed(input.Name)
		}
		description := existing.Description
		if input.Description != nil {
			description = *input.Description
		}
		imageURL := existing.ImageURL
		if input.ImageURL != nil {
			imageURL = *input.ImageURL
		}
		featured := existing.Featured
		if input.Featured != nil {
			featured = *input.Featured
		}
		onSale := existing.OnSale
		if input.OnSale != nil {
			onSale = *input.OnSale
		}
		discountPct := existing.DiscountPct
		if input.DiscountPct != nil {
			discountPct = *input.DiscountPct
		}

		price := existing.Price
		if input.Price != nil {
			price = *input.Price
		} else if derived := firstSizePrice(input.Variations); derived != nil {
			price = *derived
		}

		categoryID := existing.CategoryID
		if input.Category != nil {
			categoryID, err = resolveCategory(ctx, tx, input.Category)
			if err != nil {
				return err
			}
		}

		stock := existing.Stock
		if input.Variations != nil {
			if err := replaceVariationsTx(ctx, tx, id, *input.Variations); err != nil {
				return err
			}
			stock = aggregateStock(*input.Variations)
		} else if input.Stock != nil {
			stock = *input.Stock
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE products
			 SET name = $2, description = $3, price = $4, image_url = $5, stock = $6,
			     featured = $7, on_sale = $8, discount_pct = $9, category_id = $10,
			     updated_at = NOW()
			 WHERE id = $1`,
			id, name, description, price, imageURL, stock, featured, onSale, discountPct, categoryID)
		if err != nil {
			return internalErr("update product", err)
		}

		return nil
	})
	if err != nil {
		return nil, asStoreError("update product", err)
	}

	return getProduct(ctx, db, id, true)
}

// ReplaceVariations swaps the product's whole variation tree for the given
// one. All-or-nothing: the previous tree is deleted and the new one inserted
// in a single transaction, and the aggregate stock is recomputed.
func ReplaceVariations(ctx context.Context, db *sql.DB, requester models.Identity, productID int64, variations []VariationInput) (*models.Product, error) {
	if !requester.IsAdmin() {
		return nil, forbiddenErr()
	}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", productID).Scan(&exists)
		if err != nil {
			return internalErr("check product exists", err)
		}
		if !exists {
			return notFoundErr("product not found")
		}

		if err := replaceVariationsTx(ctx, tx, productID, variations); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`,
			productID, aggregateStock(variations))
		if err != nil {
			return internalErr("update aggregate stock", err)
		}

		return nil
	})
	if err != nil {
		return nil, asStoreError("replace variations", err)
	}

	return getProduct(ctx, db, productID, true)
}

// SoftDeleteProduct moves a product to the trash. It disappears from active
// listings but stays restorable for the retention window.
func SoftDeleteProduct(ctx context.Context, db *sql.DB, requester models.Identity, id int64) error {
	if !requester.IsAdmin() {
		return forbiddenErr()
	}

	result, err := db.ExecContext(ctx,
		`UPDATE products SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return internalErr("soft delete product", err)
	}

	return requireRowAffected(result, "product not found")
}

// RestoreProduct clears the trash marker.
func RestoreProduct(ctx context.Context, db *sql.DB, requester models.Identity, id int64) error {
	if !requester.IsAdmin() {
		return forbiddenErr()
	}

	result, err := db.ExecContext(ctx,
		`UPDATE products SET deleted_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return internalErr("restore product", err)
	}

	return requireRowAffected(result, "product not found in trash")
}

// HardDeleteProduct removes the row permanently. Variations cascade,
// historical order items keep their snapshot with the product reference
// nulled by the storage layer.
func HardDeleteProduct(ctx context.Context, db *sql.DB, requester models.Identity, id int64) error {
	if !requester.IsAdmin() {
		return forbiddenErr()
	}

	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return conflictErr("product is referenced and cannot be deleted")
		}
		return internalErr("hard delete product", err)
	}

	return requireRowAffected(result, "product not found")
}

// PurgeExpired permanently deletes products whose trash timestamp is older
// than the retention window. Idempotent: a row already purged by a
// concurrent sweep is simply absent from this pass.
func PurgeExpired(ctx context.Context, db *sql.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	result, err := db.ExecContext(ctx,
		`DELETE FROM products WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return 0, internalErr("purge expired products", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, internalErr("purge rows affected", err)
	}

	return purged, nil
}

// UpdateSize patches one size row and keeps the product's aggregate stock in
// sync with the sum of its size stocks.
func UpdateSize(ctx context.Context, db *sql.DB, requester models.Identity, sizeID int64, patch SizePatch) (*models.VariationSize, error) {
	if !requester.IsAdmin() {
		return nil, forbiddenErr()
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, validationErr("stock cannot be negative")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, validationErr("price cannot be negative")
	}

	size := &models.VariationSize{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`UPDATE variation_sizes
			 SET label = COALESCE($2, label),
			     stock = COALESCE($3, stock),
			     price = COALESCE($4, price)
			 WHERE id = $1
			 RETURNING id, variation_id, label, stock, price`,
			sizeID, patch.Label, patch.Stock, patch.Price).Scan(
			&size.ID,
			&size.VariationID,
			&size.Label,
			&size.Stock,
			&size.Price,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				return notFoundErr("size not found")
			}
			return internalErr("update size", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE products p
			 SET stock = (
			 	SELECT COALESCE(SUM(vs.stock), 0)
			 	FROM product_variations pv
			 	JOIN variation_sizes vs ON vs.variation_id = pv.id
			 	WHERE pv.product_id = p.id
			 ), updated_at = NOW()
			 WHERE p.id = (SELECT product_id FROM product_variations WHERE id = $1)`,
			size.VariationID)
		if err != nil {
			return internalErr("sync aggregate stock", err)
		}

		return nil
	})
	if err != nil {
		return nil, asStoreError("update size", err)
	}

	return size, nil
}

// replaceVariationsTx deletes the product's variations (sizes cascade) and
// inserts the given tree verbatim. No diffing against the prior state.
func replaceVariationsTx(ctx context.Context, tx *sql.Tx, productID int64, variations []VariationInput) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM product_variations WHERE product_id = $1`, productID)
	if err != nil {
		return internalErr("delete variations", err)
	}

	for _, variation := range variations {
		name := strings.TrimSpace(variation.Name)
		if name == "" {
			return validationErr("variation name is required")
		}

		var variationID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO product_variations (product_id, name) VALUES ($1, $2) RETURNING id`,
			productID, name).Scan(&variationID)
		if err != nil {
			return internalErr("create variation", err)
		}

		for _, size := range variation.Sizes {
			label := defaultSizeLabel
			if size.Label != nil && strings.TrimSpace(*size.Label) != "" {
				label = strings.TrimSpace(*size.Label)
			}
			price := decimal.Zero
			if size.Price != nil {
				price = *size.Price
			}

			_, err := tx.ExecContext(ctx,
				`INSERT INTO variation_sizes (variation_id, label, stock, price) VALUES ($1, $2, $3, $4)`,
				variationID, label, derefInt(size.Stock), price)
			if err != nil {
				return internalErr("create size", err)
			}
		}
	}

	return nil
}

func getProduct(ctx context.Context, db *sql.DB, id int64, includeDeleted bool) (*models.Product, error) {
	where := "WHERE p.id = $1 AND p.deleted_at IS NULL"
	if includeDeleted {
		where = "WHERE p.id = $1"
	}

	products, err := queryProducts(ctx, db, where, id)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, notFoundErr("product not found")
	}

	return &products[0], nil
}

func queryProducts(ctx context.Context, db *sql.DB, where string, args ...interface{}) ([]models.Product, error) {
	query := `
		SELECT p.id, p.name, p.description, p.price, p.image_url, p.stock,
		       p.featured, p.on_sale, p.discount_pct, p.category_id,
		       p.deleted_at, p.created_at, p.updated_at,
		       c.name
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		` + where + `
		ORDER BY p.created_at DESC, p.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalErr("list products", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		var categoryName sql.NullString

		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.ImageURL,
			&product.Stock,
			&product.Featured,
			&product.OnSale,
			&product.DiscountPct,
			&product.CategoryID,
			&product.DeletedAt,
			&product.CreatedAt,
			&product.UpdatedAt,
			&categoryName,
		)
		if err != nil {
			return nil, internalErr("scan product", err)
		}

		if product.CategoryID != nil && categoryName.Valid {
			product.Category = &models.Category{ID: *product.CategoryID, Name: categoryName.String}
		}
		product.Variations = []models.ProductVariation{}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("product rows", err)
	}

	if err := attachVariations(ctx, db, products); err != nil {
		return nil, err
	}

	return products, nil
}

func attachVariations(ctx context.Context, db *sql.DB, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	productIDs := make([]int64, len(products))
	index := make(map[int64]*models.Product, len(products))
	for i := range products {
		productIDs[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, name
		 FROM product_variations
		 WHERE product_id = ANY($1)
		 ORDER BY id`,
		pq.Array(productIDs))
	if err != nil {
		return internalErr("list variations", err)
	}
	defer rows.Close()

	variationIDs := []int64{}
	variationIndex := map[int64]*models.ProductVariation{}
	for rows.Next() {
		var variation models.ProductVariation
		if err := rows.Scan(&variation.ID, &variation.ProductID, &variation.Name); err != nil {
			return internalErr("scan variation", err)
		}
		variation.Sizes = []models.VariationSize{}

		product := index[variation.ProductID]
		product.Variations = append(product.Variations, variation)
		variationIDs = append(variationIDs, variation.ID)
		variationIndex[variation.ID] = &product.Variations[len(product.Variations)-1]
	}
	if err := rows.Err(); err != nil {
		return internalErr("variation rows", err)
	}

	if len(variationIDs) == 0 {
		return nil
	}

	sizeRows, err := db.QueryContext(ctx,
		`SELECT id, variation_id, label, stock, price
		 FROM variation_sizes
		 WHERE variation_id = ANY($1)
		 ORDER BY id`,
		pq.Array(variationIDs))
	if err != nil {
		return internalErr("list sizes", err)
	}
	defer sizeRows.Close()

	for sizeRows.Next() {
		var size models.VariationSize
		if err := sizeRows.Scan(&size.ID, &size.VariationID, &size.Label, &size.Stock, &size.Price); err != nil {
			return internalErr("scan size", err)
		}
		variation := variationIndex[size.VariationID]
		variation.Sizes = append(variation.Sizes, size)
	}
	if err := sizeRows.Err(); err != nil {
		return internalErr("size rows", err)
	}

	return nil
}

func resolveCategory(ctx context.Context, tx *sql.Tx, name *string) (*int64, error) {
	if name == nil {
		return nil, nil
	}

	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		trimmed).Scan(&id)
	if err != nil {
		return nil, internalErr("resolve category", err)
	}

	return &id, nil
}

func firstSizePrice(variations *[]VariationInput) *decimal.Decimal {
	if variations == nil {
		return nil
	}
	for _, variation := range *variations {
		for _, size := range variation.Sizes {
			if size.Price != nil {
				return size.Price
			}
		}
		break
	}
	return nil
}

func aggregateStock(variations []VariationInput) int {
	total := 0
	for _, variation := range variations {
		for _, size := range variation.Sizes {
			total += derefInt(size.Stock)
		}
	}
	return total
}

func validateDiscount(pct *int) error {
	if pct != nil && (*pct < 0 || *pct > 100) {
		return validationErr("discountPct must be between 0 and 100")
	}
	return nil
}

func requireRowAffected(result sql.Result, missing string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return internalErr("rows affected", err)
	}
	if affected == 0 {
		return notFoundErr(missing)
	}
	return nil
}

// asStoreError keeps already-typed errors intact and wraps everything else
// as internal, so transaction plumbing failures never leak raw detail.
func asStoreError(op string, err error) error {
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return internalErr(op, err)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTrimmed(s *string) string {
	return strings.TrimSpace(derefString(s))
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}
