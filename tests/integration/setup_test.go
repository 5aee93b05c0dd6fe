package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

func createCustomer(t *testing.T, db *sql.DB, email string) models.Identity {
	t.Helper()

	user, err := store.CreateUser(context.Background(), db, email, "test-hash")
	require.NoError(t, err)
	return models.Identity{ID: user.ID, Role: user.Role}
}

func createAdmin(t *testing.T, db *sql.DB, email string) models.Identity {
	t.Helper()

	user, err := store.UpsertAdmin(context.Background(), db, email, "test-hash")
	require.NoError(t, err)
	return models.Identity{ID: user.ID, Role: user.Role}
}

// createSneakers creates the canonical test product: one "Standard"
// variation with sizes 7 (stock 10) and 8 (stock 15), both 59.99, and no
// top-level price so it is derived from the first size.
func createSneakers(t *testing.T, db *sql.DB, admin models.Identity) *models.Product {
	t.Helper()

	product, err := store.CreateProduct(context.Background(), db, admin, store.ProductInput{
		Name:       strPtr("Canvas Sneakers"),
		Variations: variations("Standard", sizeInput("7", 10, "59.99"), sizeInput("8", 15, "59.99")),
	})
	require.NoError(t, err)
	return product
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sizeInput(label string, stock int, price string) store.SizeInput {
	return store.SizeInput{Label: strPtr(label), Stock: intPtr(stock), Price: decPtr(price)}
}

func variations(name string, sizes ...store.SizeInput) *[]store.VariationInput {
	v := []store.VariationInput{{Name: name, Sizes: sizes}}
	return &v
}
