package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

// CreateUser registers a customer account. Role assignment is seed-only;
// every user created through this path is a CUSTOMER.
func CreateUser(ctx context.Context, db *sql.DB, email, passwordHash string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, validationErr("email is required")
	}

	user := &models.User{}

	query := `
		INSERT INTO users (email, password_hash, role, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, email, password_hash, role, created_at`

	err := db.QueryRowContext(ctx, query, email, passwordHash, models.RoleCustomer).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflictErr("email already in use")
		}
		return nil, internalErr("create user", err)
	}

	return user, nil
}

func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user := &models.User{}

	query := `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE email = $1`

	err := db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundErr("user not found")
		}
		return nil, internalErr("get user by email", err)
	}

	return user, nil
}

func GetUserByID(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundErr("user not found")
		}
		return nil, internalErr("get user", err)
	}

	return user, nil
}

// UpsertAdmin creates or refreshes the seeded admin account. This is the only
// code path that assigns the ADMIN role.
func UpsertAdmin(ctx context.Context, db *sql.DB, email, passwordHash string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user := &models.User{}

	query := `
		INSERT INTO users (email, password_hash, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
		RETURNING id, email, password_hash, role, created_at`

	err := db.QueryRowContext(ctx, query, email, passwordHash, models.RoleAdmin).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, internalErr("upsert admin", err)
	}

	return user, nil
}
