package main

import (
	"context"
	"log"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
)

// Seeds the admin account (the only path that assigns the ADMIN role) and a
// few demo products. Safe to rerun.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(cfg.Seed.AdminPassword, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatalf("Hash admin password: %v", err)
	}

	admin, err := store.UpsertAdmin(ctx, db, cfg.Seed.AdminEmail, hash)
	if err != nil {
		log.Fatalf("Seed admin: %v", err)
	}
	log.Printf("Seeded admin %s", admin.Email)

	identity := models.Identity{ID: admin.ID, Role: admin.Role}

	products := []struct {
		name        string
		description string
		price       decimal.Decimal
		imageURL    string
		stock       int
	}{
		{"Canvas Sneakers", "Lightweight everyday sneakers with breathable canvas.", decimal.NewFromFloat(59.99), "https://via.placeholder.com/300x200?text=Sneakers", 50},
		{"Leather Wallet", "Minimal bifold wallet with RFID blocking.", decimal.NewFromFloat(39.5), "https://via.placeholder.com/300x200?text=Wallet", 150},
		{"Bluetooth Headphones", "Over-ear headphones with 30h battery life.", decimal.NewFromFloat(129.0), "https://via.placeholder.com/300x200?text=Headphones", 75},
	}

	for _, p := range products {
		var exists bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM products WHERE name = $1)", p.name).Scan(&exists)
		if err != nil {
			log.Fatalf("Check product %q: %v", p.name, err)
		}
		if exists {
			continue
		}

		name, description, imageURL := p.name, p.description, p.imageURL
		price, stock := p.price, p.stock
		_, err = store.CreateProduct(ctx, db, identity, store.ProductInput{
			Name:        &name,
			Description: &description,
			Price:       &price,
			ImageURL:    &imageURL,
			Stock:       &stock,
		})
		if err != nil {
			log.Fatalf("Seed product %q: %v", p.name, err)
		}
		log.Printf("Seeded product %s", p.name)
	}
}
