package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

// ListCategories returns all categories with product counts, sorted by name.
func ListCategories(ctx context.Context, db *sql.DB) ([]models.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.name, COUNT(p.id)
		 FROM categories c
		 LEFT JOIN products p ON p.category_id = c.id
		 GROUP BY c.id, c.name
		 ORDER BY c.name`)
	if err != nil {
		return nil, internalErr("list categories", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.ProductCount); err != nil {
			return nil, internalErr("scan category", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("category rows", err)
	}

	return categories, nil
}

// CreateCategory upserts by name: creating an existing name returns the
// existing row instead of failing.
func CreateCategory(ctx context.Context, db *sql.DB, requester models.Identity, name string) (*models.Category, error) {
	if !requester.IsAdmin() {
		return nil, forbiddenErr()
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("name is required")
	}

	category := &models.Category{}
	err := db.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name`,
		name).Scan(&category.ID, &category.Name)
	if err != nil {
		return nil, internalErr("create category", err)
	}

	return category, nil
}

func RenameCategory(ctx context.Context, db *sql.DB, requester models.Identity, id int64, name string) (*models.Category, error) {
	if !requester.IsAdmin() {
		return nil, forbiddenErr()
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("name is required")
	}

	category := &models.Category{}
	err := db.QueryRowContext(ctx,
		`UPDATE categories SET name = $2 WHERE id = $1 RETURNING id, name`,
		id, name).Scan(&category.ID, &category.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundErr("category not found")
		}
		if database.IsUniqueViolation(err) {
			return nil, conflictErr("category name already in use")
		}
		return nil, internalErr("rename category", err)
	}

	return category, nil
}

// DeleteCategory removes the category; its products are detached (category
// nulled by the FK rule), never deleted.
func DeleteCategory(ctx context.Context, db *sql.DB, requester models.Identity, id int64) error {
	if !requester.IsAdmin() {
		return forbiddenErr()
	}

	result, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return internalErr("delete category", err)
	}

	return requireRowAffected(result, "category not found")
}
